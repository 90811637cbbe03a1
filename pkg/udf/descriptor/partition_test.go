package descriptor

import (
	"testing"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/stretchr/testify/require"
)

func TestPartitionDescriptor_MarshalUnmarshal(t *testing.T) {
	pd := &PartitionDescriptor{
		VolumeDescriptorSequenceNumber: 2,
		PartitionFlags:                 1,
		PartitionNumber:                0,
		AccessType:                     1, // read-only
		PartitionStartingLocation:      280,
		PartitionLength:                1 << 20,
	}
	pd.PartitionContents.SetIdentifier("+NSR03")
	pd.ImplementationIdentifier.SetIdentifier("*test implementation")

	data, err := pd.Marshal()
	require.NoError(t, err)

	var got PartitionDescriptor
	require.NoError(t, got.Unmarshal(data[:]))

	require.Equal(t, uint16(1), got.PartitionFlags)
	require.Equal(t, uint16(0), got.PartitionNumber)
	require.Equal(t, "+NSR03", got.PartitionContents.IdentifierString())
	require.Equal(t, uint32(1), got.AccessType)
	require.Equal(t, uint32(280), got.PartitionStartingLocation)
	require.Equal(t, uint32(1<<20), got.PartitionLength)
}

func TestPartitionMap_MarshalUnmarshal(t *testing.T) {
	t.Run("type 1", func(t *testing.T) {
		m := &PartitionMap{
			Type1: &Type1PartitionMap{VolumeSequenceNumber: 1, PartitionNumber: 0},
		}
		data, err := m.Marshal()
		require.NoError(t, err)
		require.Len(t, data, consts.UDF_PARTITION_MAP_TYPE1_SIZE)

		var got PartitionMap
		n, err := got.Unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, consts.UDF_PARTITION_MAP_TYPE1_SIZE, n)
		require.NotNil(t, got.Type1)
		require.Equal(t, uint16(1), got.Type1.VolumeSequenceNumber)
		require.Equal(t, uint16(0), got.Type1.PartitionNumber)
	})

	t.Run("type 2 metadata map", func(t *testing.T) {
		m := &PartitionMap{
			Type2: &Type2PartitionMap{
				VolumeSequenceNumber:       1,
				PartitionNumber:            0,
				MetadataFileLocation:       32,
				MetadataMirrorFileLocation: 511,
				AllocationUnitSize:         32,
				AlignmentUnitSize:          2,
				Flags:                      0,
			},
		}
		m.Type2.PartitionTypeIdentifier.SetIdentifier("*UDF Metadata Partition")

		data, err := m.Marshal()
		require.NoError(t, err)
		require.Len(t, data, consts.UDF_PARTITION_MAP_TYPE2_SIZE)

		var got PartitionMap
		n, err := got.Unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, consts.UDF_PARTITION_MAP_TYPE2_SIZE, n)
		require.NotNil(t, got.Type2)
		require.Equal(t, "*UDF Metadata Partition", got.Type2.PartitionTypeIdentifier.IdentifierString())
		require.Equal(t, uint32(32), got.Type2.MetadataFileLocation)
		require.Equal(t, uint32(511), got.Type2.MetadataMirrorFileLocation)
	})

	t.Run("unrecognized type preserved raw", func(t *testing.T) {
		raw := []byte{9, 8, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00}
		var got PartitionMap
		n, err := got.Unmarshal(raw)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.NotNil(t, got.Unknown)
		require.Equal(t, raw[2:], got.Unknown.Data)

		out, err := got.Marshal()
		require.NoError(t, err)
		require.Equal(t, raw, out)
	})

	t.Run("type 1 with wrong declared length", func(t *testing.T) {
		data := make([]byte, 8)
		data[0] = consts.PARTITION_MAP_TYPE_1
		data[1] = 8
		var got PartitionMap
		_, err := got.Unmarshal(data)
		require.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("type 2 with wrong declared length", func(t *testing.T) {
		data := make([]byte, 64)
		data[0] = consts.PARTITION_MAP_TYPE_2
		data[1] = 32
		var got PartitionMap
		_, err := got.Unmarshal(data)
		require.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("truncated entry", func(t *testing.T) {
		var got PartitionMap
		_, err := got.Unmarshal([]byte{consts.PARTITION_MAP_TYPE_1})
		require.ErrorIs(t, err, ErrMalformedRecord)
	})
}
