package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
)

// LogicalVolumeDescriptor describes the logical volume built on top of the
// physical partitions (ECMA-167 3/10.6). Its LogicalVolumeContentsUse field
// holds the long allocation descriptor of the File Set Descriptor, and its
// partition map table realizes partition references.
type LogicalVolumeDescriptor struct {
	Tag Tag `json:"tag"`
	// Volume Descriptor Sequence Number.
	VolumeDescriptorSequenceNumber uint32 `json:"volume_descriptor_sequence_number"`
	// Descriptor Character Set for the identifier below.
	DescriptorCharacterSet CharSpec `json:"descriptor_character_set"`
	// Logical Volume Identifier, a d-string of up to 128 bytes.
	LogicalVolumeIdentifier string `json:"logical_volume_identifier"`
	// Logical Block Size in bytes. Must equal consts.UDF_SECTOR_SIZE.
	LogicalBlockSize uint32 `json:"logical_block_size"`
	// Domain Identifier, "*OSTA UDF Compliant" for UDF volumes.
	DomainIdentifier EntityID `json:"domain_identifier"`
	// Logical Volume Contents Use: the FSD's long allocation descriptor.
	LogicalVolumeContentsUse [16]byte `json:"logical_volume_contents_use"`
	// Map Table Length in bytes.
	MapTableLength uint32 `json:"map_table_length"`
	// Number of Partition Maps in the table.
	NumberOfPartitionMaps uint32 `json:"number_of_partition_maps"`
	// Implementation Identifier and use area.
	ImplementationIdentifier EntityID  `json:"implementation_identifier"`
	ImplementationUse        [128]byte `json:"implementation_use"`
	// Integrity Sequence Extent.
	IntegritySequenceExtent ExtentAD `json:"integrity_sequence_extent"`
	// Partition Maps, decoded from the map table.
	PartitionMaps []PartitionMap `json:"partition_maps"`
}

func (l *LogicalVolumeDescriptor) Unmarshal(data []byte) error {
	if err := l.Tag.Unmarshal(data, consts.TAG_LOGICAL_VOLUME_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal logical volume descriptor tag: %w", err)
	}
	if len(data) < 440 {
		return fmt.Errorf("%w: logical volume descriptor needs 440 bytes, have %d",
			ErrMalformedRecord, len(data))
	}

	l.VolumeDescriptorSequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	l.DescriptorCharacterSet.Unmarshal(data[20:84])

	var err error
	if l.LogicalVolumeIdentifier, err = encoding.DecodeDString(data[84:212]); err != nil {
		return fmt.Errorf("failed to decode logical volume identifier: %w", err)
	}

	l.LogicalBlockSize = binary.LittleEndian.Uint32(data[212:216])
	if l.LogicalBlockSize != consts.UDF_SECTOR_SIZE {
		return fmt.Errorf("%w: declared logical block size %d, expected %d",
			ErrBlockSizeMismatch, l.LogicalBlockSize, consts.UDF_SECTOR_SIZE)
	}

	l.DomainIdentifier.Unmarshal(data[216:248])
	copy(l.LogicalVolumeContentsUse[:], data[248:264])
	l.MapTableLength = binary.LittleEndian.Uint32(data[264:268])
	l.NumberOfPartitionMaps = binary.LittleEndian.Uint32(data[268:272])
	l.ImplementationIdentifier.Unmarshal(data[272:304])
	copy(l.ImplementationUse[:], data[304:432])
	l.IntegritySequenceExtent.Unmarshal(data[432:440])

	table := data[440:]
	if uint32(len(table)) > l.MapTableLength {
		table = table[:l.MapTableLength]
	}
	l.PartitionMaps = make([]PartitionMap, 0, l.NumberOfPartitionMaps)
	for i := uint32(0); i < l.NumberOfPartitionMaps; i++ {
		var m PartitionMap
		n, err := m.Unmarshal(table)
		if err != nil {
			return fmt.Errorf("failed to unmarshal partition map %d: %w", i, err)
		}
		l.PartitionMaps = append(l.PartitionMaps, m)
		table = table[n:]
	}

	return nil
}

func (l *LogicalVolumeDescriptor) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte

	binary.LittleEndian.PutUint32(data[16:20], l.VolumeDescriptorSequenceNumber)
	l.DescriptorCharacterSet.Marshal(data[20:84])

	lvid, err := encoding.EncodeDString(l.LogicalVolumeIdentifier, 128)
	if err != nil {
		return data, fmt.Errorf("failed to encode logical volume identifier: %w", err)
	}
	copy(data[84:212], lvid)

	binary.LittleEndian.PutUint32(data[212:216], l.LogicalBlockSize)
	l.DomainIdentifier.Marshal(data[216:248])
	copy(data[248:264], l.LogicalVolumeContentsUse[:])

	table := make([]byte, 0)
	for i := range l.PartitionMaps {
		entry, err := l.PartitionMaps[i].Marshal()
		if err != nil {
			return data, fmt.Errorf("failed to marshal partition map %d: %w", i, err)
		}
		table = append(table, entry...)
	}
	if len(data[440:]) < len(table) {
		return data, fmt.Errorf("partition map table of %d bytes does not fit in descriptor", len(table))
	}

	binary.LittleEndian.PutUint32(data[264:268], uint32(len(table)))
	binary.LittleEndian.PutUint32(data[268:272], uint32(len(l.PartitionMaps)))
	l.ImplementationIdentifier.Marshal(data[272:304])
	copy(data[304:432], l.ImplementationUse[:])
	l.IntegritySequenceExtent.Marshal(data[432:440])
	copy(data[440:], table)

	l.MapTableLength = uint32(len(table))
	l.NumberOfPartitionMaps = uint32(len(l.PartitionMaps))

	l.Tag.TagIdentifier = consts.TAG_LOGICAL_VOLUME_DESCRIPTOR
	tag, err := l.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])

	return data, nil
}
