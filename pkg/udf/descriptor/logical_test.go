package descriptor

import (
	"encoding/binary"
	"testing"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/stretchr/testify/require"
)

func TestLogicalVolumeDescriptor_MarshalUnmarshal(t *testing.T) {
	t.Run("round trip with partition maps", func(t *testing.T) {
		lvd := &LogicalVolumeDescriptor{
			VolumeDescriptorSequenceNumber: 3,
			LogicalVolumeIdentifier:        "TESTVOL",
			LogicalBlockSize:               consts.UDF_SECTOR_SIZE,
			IntegritySequenceExtent:        ExtentAD{Length: 8192, Location: 64},
			PartitionMaps: []PartitionMap{
				{Type1: &Type1PartitionMap{VolumeSequenceNumber: 1, PartitionNumber: 0}},
				{Type2: &Type2PartitionMap{
					VolumeSequenceNumber: 1,
					PartitionNumber:      0,
					MetadataFileLocation: 32,
				}},
			},
		}
		lvd.DomainIdentifier.SetIdentifier("*OSTA UDF Compliant")

		data, err := lvd.Marshal()
		require.NoError(t, err)

		var got LogicalVolumeDescriptor
		require.NoError(t, got.Unmarshal(data[:]))

		require.Equal(t, "TESTVOL", got.LogicalVolumeIdentifier)
		require.Equal(t, uint32(consts.UDF_SECTOR_SIZE), got.LogicalBlockSize)
		require.Equal(t, "*OSTA UDF Compliant", got.DomainIdentifier.IdentifierString())
		require.Equal(t, uint32(2), got.NumberOfPartitionMaps)
		require.Equal(t,
			uint32(consts.UDF_PARTITION_MAP_TYPE1_SIZE+consts.UDF_PARTITION_MAP_TYPE2_SIZE),
			got.MapTableLength)

		require.Len(t, got.PartitionMaps, 2)
		require.NotNil(t, got.PartitionMaps[0].Type1)
		require.NotNil(t, got.PartitionMaps[1].Type2)
		require.Equal(t, uint32(32), got.PartitionMaps[1].Type2.MetadataFileLocation)
		require.Equal(t, lvd.IntegritySequenceExtent, got.IntegritySequenceExtent)
	})

	t.Run("declared block size other than 2048", func(t *testing.T) {
		lvd := &LogicalVolumeDescriptor{
			LogicalVolumeIdentifier: "TESTVOL",
			LogicalBlockSize:        consts.UDF_SECTOR_SIZE,
		}
		data, err := lvd.Marshal()
		require.NoError(t, err)

		// Rewrite the block size field; the tag checksum does not cover
		// the body so the tag still validates.
		binary.LittleEndian.PutUint32(data[212:216], 512)

		var got LogicalVolumeDescriptor
		require.ErrorIs(t, got.Unmarshal(data[:]), ErrBlockSizeMismatch)
	})
}
