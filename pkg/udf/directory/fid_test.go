package directory

import (
	"testing"

	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
	"github.com/stretchr/testify/require"
)

func newFID(name string, block uint32, characteristics uint8) *FileIdentifierDescriptor {
	return &FileIdentifierDescriptor{
		FileVersionNumber:   1,
		FileCharacteristics: characteristics,
		ICB: allocation.LongAD{
			Type:         allocation.EXTENT_RECORDED,
			ExtentLength: 2048,
			ExtentLocation: allocation.LBAddr{
				LogicalBlockNumber: block,
			},
		},
		FileIdentifier: encoding.EncodeDCharacters(name),
	}
}

func TestFileIdentifierDescriptor_MarshalUnmarshal(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		fid := newFID("LICENSE.md", 12, 0)

		data, err := fid.Marshal()
		require.NoError(t, err)
		require.Equal(t, fid.Len(), len(data))

		var got FileIdentifierDescriptor
		n, err := got.Unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, len(data), n)

		name, err := got.Name()
		require.NoError(t, err)
		require.Equal(t, "LICENSE.md", name)
		require.Equal(t, uint32(12), got.ICB.BlockNumber())
		require.False(t, got.IsDirectory())
		require.False(t, got.IsParent())
	})

	t.Run("parent entry has an empty identifier", func(t *testing.T) {
		fid := newFID("", 1, FILE_CHAR_DIRECTORY|FILE_CHAR_PARENT)

		data, err := fid.Marshal()
		require.NoError(t, err)

		var got FileIdentifierDescriptor
		_, err = got.Unmarshal(data)
		require.NoError(t, err)
		require.True(t, got.IsParent())
		require.True(t, got.IsDirectory())

		name, err := got.Name()
		require.NoError(t, err)
		require.Empty(t, name)
	})

	t.Run("characteristics bits", func(t *testing.T) {
		fid := newFID("gone", 2, FILE_CHAR_HIDDEN|FILE_CHAR_DELETED)
		data, err := fid.Marshal()
		require.NoError(t, err)

		var got FileIdentifierDescriptor
		_, err = got.Unmarshal(data)
		require.NoError(t, err)
		require.True(t, got.IsHidden())
		require.True(t, got.IsDeleted())
	})

	t.Run("record that extends past the window fails", func(t *testing.T) {
		fid := newFID("truncated.bin", 3, 0)
		data, err := fid.Marshal()
		require.NoError(t, err)

		var got FileIdentifierDescriptor
		_, err = got.Unmarshal(data[:len(data)-4])
		require.ErrorIs(t, err, descriptor.ErrMalformedRecord)
	})
}

// The record length must land on a four-byte boundary for every combination
// of identifier and implementation-use lengths, with fewer than four pad
// bytes added.
func TestFileIdentifierDescriptor_Padding(t *testing.T) {
	for _, implLen := range []int{0, 3, 8} {
		for nameLen := 0; nameLen <= 16; nameLen++ {
			fid := &FileIdentifierDescriptor{
				FileVersionNumber: 1,
				ImplementationUse: make([]byte, implLen),
				FileIdentifier:    make([]byte, nameLen),
			}

			total := fid.Len()
			require.Zero(t, total%4, "nameLen=%d implLen=%d total=%d", nameLen, implLen, total)

			unpadded := nameLen + implLen + 38
			pad := total - unpadded
			require.GreaterOrEqual(t, pad, 0)
			require.Less(t, pad, 4)

			data, err := fid.Marshal()
			require.NoError(t, err)
			require.Equal(t, total, len(data))

			var got FileIdentifierDescriptor
			n, err := got.Unmarshal(data)
			require.NoError(t, err)
			require.Equal(t, total, n)
		}
	}
}

func TestDecodeStream(t *testing.T) {
	t.Run("back-to-back records", func(t *testing.T) {
		var window []byte
		names := []string{"", "alpha", "beta.txt", "a-much-longer-name.tar.gz"}
		for i, name := range names {
			characteristics := uint8(0)
			if name == "" {
				characteristics = FILE_CHAR_DIRECTORY | FILE_CHAR_PARENT
			}
			data, err := newFID(name, uint32(i), characteristics).Marshal()
			require.NoError(t, err)
			window = append(window, data...)
		}

		fids, err := DecodeStream(window)
		require.NoError(t, err)
		require.Len(t, fids, len(names))

		for i, fid := range fids {
			name, err := fid.Name()
			require.NoError(t, err)
			require.Equal(t, names[i], name)
			require.Equal(t, uint32(i), fid.ICB.BlockNumber())
		}
		require.True(t, fids[0].IsParent())
	})

	t.Run("empty window", func(t *testing.T) {
		fids, err := DecodeStream(nil)
		require.NoError(t, err)
		require.Empty(t, fids)
	})

	t.Run("truncated final record", func(t *testing.T) {
		data, err := newFID("only.txt", 9, 0).Marshal()
		require.NoError(t, err)

		_, err = DecodeStream(data[:len(data)-2])
		require.ErrorIs(t, err, descriptor.ErrMalformedRecord)
	})
}
