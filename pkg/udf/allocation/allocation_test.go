package allocation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtentLength_PackSplit(t *testing.T) {
	cases := []struct {
		name   string
		ty     ExtentType
		length uint32
	}{
		{"recorded", EXTENT_RECORDED, 2048},
		{"not recorded", EXTENT_NOT_RECORDED, 4096},
		{"not allocated", EXTENT_NOT_ALLOCATED, 0},
		{"next descriptor", EXTENT_NEXT_DESCRIPTOR, 2048},
		{"maximum length", EXTENT_RECORDED, EXTENT_LENGTH_MASK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			packed := PackExtentLength(tc.ty, tc.length)
			ty, length := SplitExtentLength(packed)
			require.Equal(t, tc.ty, ty)
			require.Equal(t, tc.length, length)
		})
	}
}

func TestAllocTypeFromFlags(t *testing.T) {
	t.Run("valid selectors", func(t *testing.T) {
		for flags, want := range map[uint16]AllocType{
			0x0000: ALLOC_TYPE_SHORT,
			0x0001: ALLOC_TYPE_LONG,
			0x0002: ALLOC_TYPE_EXTENDED,
			0x0720: ALLOC_TYPE_SHORT, // upper flag bits do not matter
			0x0031: ALLOC_TYPE_LONG,
		} {
			got, err := AllocTypeFromFlags(flags)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("reserved selectors", func(t *testing.T) {
		for _, flags := range []uint16{0x0003, 0x0004, 0x000F} {
			_, err := AllocTypeFromFlags(flags)
			require.ErrorIs(t, err, ErrUnknownAllocType)
		}
	})
}

func TestShortAD_MarshalUnmarshal(t *testing.T) {
	ad := &ShortAD{
		Type:               EXTENT_RECORDED,
		ExtentLength:       1234,
		LogicalBlockNumber: 42,
	}
	data, err := ad.Marshal()
	require.NoError(t, err)

	var got ShortAD
	require.NoError(t, got.Unmarshal(data[:]))
	require.Equal(t, *ad, got)

	require.ErrorIs(t, got.Unmarshal(data[:4]), ErrInsufficientBytes)
}

func TestLongAD_MarshalUnmarshal(t *testing.T) {
	ad := &LongAD{
		Type:         EXTENT_NOT_RECORDED,
		ExtentLength: 2048,
		ExtentLocation: LBAddr{
			LogicalBlockNumber:       7,
			PartitionReferenceNumber: 1,
		},
		ImplementationUse: [6]byte{1, 2, 3, 4, 5, 6},
	}
	data, err := ad.Marshal()
	require.NoError(t, err)

	var got LongAD
	require.NoError(t, got.Unmarshal(data[:]))
	require.Equal(t, *ad, got)

	require.ErrorIs(t, got.Unmarshal(data[:10]), ErrInsufficientBytes)
}

func TestExtendedAD_MarshalUnmarshal(t *testing.T) {
	ad := &ExtendedAD{
		Type:              EXTENT_RECORDED,
		ExtentLength:      4096,
		RecordedType:      EXTENT_RECORDED,
		RecordedLength:    2048,
		InformationLength: 2000,
		ExtentLocation: LBAddr{
			LogicalBlockNumber:       99,
			PartitionReferenceNumber: 0,
		},
	}
	data, err := ad.Marshal()
	require.NoError(t, err)

	var got ExtendedAD
	require.NoError(t, got.Unmarshal(data[:]))
	require.Equal(t, *ad, got)

	require.ErrorIs(t, got.Unmarshal(data[:19]), ErrInsufficientBytes)
}

func TestDecode(t *testing.T) {
	t.Run("selects the format by type", func(t *testing.T) {
		short := &ShortAD{Type: EXTENT_RECORDED, ExtentLength: 100, LogicalBlockNumber: 5}
		data, err := short.Marshal()
		require.NoError(t, err)

		ad, rest, err := Decode(ALLOC_TYPE_SHORT, data[:])
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, EXTENT_RECORDED, ad.ExtentType())
		require.Equal(t, uint32(100), ad.Length())
		require.Equal(t, uint32(5), ad.BlockNumber())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, err := Decode(AllocType(3), make([]byte, 32))
		require.ErrorIs(t, err, ErrUnknownAllocType)
	})
}

func TestDecodeAll(t *testing.T) {
	t.Run("iterates the blob to exhaustion", func(t *testing.T) {
		var blob []byte
		for i := uint32(0); i < 3; i++ {
			ad := &ShortAD{Type: EXTENT_RECORDED, ExtentLength: 2048, LogicalBlockNumber: 10 + i}
			data, err := ad.Marshal()
			require.NoError(t, err)
			blob = append(blob, data[:]...)
		}

		descs, err := DecodeAll(ALLOC_TYPE_SHORT, blob)
		require.NoError(t, err)
		require.Len(t, descs, 3)
		for i, ad := range descs {
			require.Equal(t, uint32(10+i), ad.BlockNumber())
		}
	})

	t.Run("trailing partial bytes terminate the iteration", func(t *testing.T) {
		ad := &ShortAD{Type: EXTENT_RECORDED, ExtentLength: 2048, LogicalBlockNumber: 3}
		data, err := ad.Marshal()
		require.NoError(t, err)
		blob := append(data[:], 0x00, 0x00, 0x00)

		descs, err := DecodeAll(ALLOC_TYPE_SHORT, blob)
		require.NoError(t, err)
		require.Len(t, descs, 1)
	})

	t.Run("empty blob yields an empty sequence", func(t *testing.T) {
		descs, err := DecodeAll(ALLOC_TYPE_LONG, nil)
		require.NoError(t, err)
		require.Empty(t, descs)
	})

	t.Run("reserved selector fails even with no bytes", func(t *testing.T) {
		_, err := DecodeAll(AllocType(3), nil)
		require.ErrorIs(t, err, ErrUnknownAllocType)
	})
}
