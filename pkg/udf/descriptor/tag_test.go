package descriptor

import (
	"testing"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/stretchr/testify/require"
)

func TestTag_MarshalUnmarshal(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		tag := &Tag{
			TagIdentifier:       consts.TAG_PRIMARY_VOLUME_DESCRIPTOR,
			DescriptorVersion:   3,
			TagSerialNumber:     7,
			DescriptorCRC:       0x1234,
			DescriptorCRCLength: 496,
			TagLocation:         257,
		}

		data, err := tag.Marshal()
		require.NoError(t, err)

		var got Tag
		require.NoError(t, got.Unmarshal(data[:], consts.TAG_PRIMARY_VOLUME_DESCRIPTOR))
		require.Equal(t, *tag, got)
	})

	t.Run("identifier mismatch", func(t *testing.T) {
		tag := &Tag{TagIdentifier: consts.TAG_PARTITION_DESCRIPTOR}
		data, err := tag.Marshal()
		require.NoError(t, err)

		var got Tag
		err = got.Unmarshal(data[:], consts.TAG_PRIMARY_VOLUME_DESCRIPTOR)
		require.ErrorIs(t, err, ErrTagMismatch)
	})

	t.Run("checksum failure", func(t *testing.T) {
		tag := &Tag{TagIdentifier: consts.TAG_FILE_ENTRY, TagLocation: 42}
		data, err := tag.Marshal()
		require.NoError(t, err)
		data[12] ^= 0xFF // corrupt the tag location

		var got Tag
		err = got.Unmarshal(data[:], consts.TAG_FILE_ENTRY)
		require.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("truncated input", func(t *testing.T) {
		var got Tag
		err := got.Unmarshal(make([]byte, 10), consts.TAG_FILE_ENTRY)
		require.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestPeek(t *testing.T) {
	tag := &Tag{TagIdentifier: consts.TAG_LOGICAL_VOLUME_DESCRIPTOR}
	data, err := tag.Marshal()
	require.NoError(t, err)

	kind, err := Peek(data[:])
	require.NoError(t, err)
	require.Equal(t, uint16(consts.TAG_LOGICAL_VOLUME_DESCRIPTOR), kind)

	_, err = Peek([]byte{0x01})
	require.ErrorIs(t, err, ErrMalformedRecord)
}
