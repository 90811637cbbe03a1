package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
)

// PartitionDescriptor describes one physical partition of the volume
// (ECMA-167 3/10.5). PartitionStartingLocation and PartitionLength are in
// logical sectors.
type PartitionDescriptor struct {
	Tag Tag `json:"tag"`
	// Volume Descriptor Sequence Number.
	VolumeDescriptorSequenceNumber uint32 `json:"volume_descriptor_sequence_number"`
	// Partition Flags, bit 0 set means space has been allocated.
	PartitionFlags uint16 `json:"partition_flags"`
	// Partition Number referenced by partition maps.
	PartitionNumber uint16 `json:"partition_number"`
	// Partition Contents, e.g. "+NSR02" or "+NSR03" for UDF file structures.
	PartitionContents EntityID `json:"partition_contents"`
	// Partition Contents Use, holds the partition header descriptor.
	PartitionContentsUse [128]byte `json:"partition_contents_use"`
	// Access Type: 0 unspecified, 1 read-only, 2 write-once, 3 rewritable,
	// 4 overwritable.
	AccessType uint32 `json:"access_type"`
	// Partition Starting Location, in logical sectors.
	PartitionStartingLocation uint32 `json:"partition_starting_location"`
	// Partition Length, in logical sectors.
	PartitionLength uint32 `json:"partition_length"`
	// Implementation Identifier and use area.
	ImplementationIdentifier EntityID  `json:"implementation_identifier"`
	ImplementationUse        [128]byte `json:"implementation_use"`
}

func (p *PartitionDescriptor) Unmarshal(data []byte) error {
	if err := p.Tag.Unmarshal(data, consts.TAG_PARTITION_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal partition descriptor tag: %w", err)
	}
	if len(data) < 356 {
		return fmt.Errorf("%w: partition descriptor needs 356 bytes, have %d",
			ErrMalformedRecord, len(data))
	}

	p.VolumeDescriptorSequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	p.PartitionFlags = binary.LittleEndian.Uint16(data[20:22])
	p.PartitionNumber = binary.LittleEndian.Uint16(data[22:24])
	p.PartitionContents.Unmarshal(data[24:56])
	copy(p.PartitionContentsUse[:], data[56:184])
	p.AccessType = binary.LittleEndian.Uint32(data[184:188])
	p.PartitionStartingLocation = binary.LittleEndian.Uint32(data[188:192])
	p.PartitionLength = binary.LittleEndian.Uint32(data[192:196])
	p.ImplementationIdentifier.Unmarshal(data[196:228])
	copy(p.ImplementationUse[:], data[228:356])

	return nil
}

func (p *PartitionDescriptor) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte

	binary.LittleEndian.PutUint32(data[16:20], p.VolumeDescriptorSequenceNumber)
	binary.LittleEndian.PutUint16(data[20:22], p.PartitionFlags)
	binary.LittleEndian.PutUint16(data[22:24], p.PartitionNumber)
	p.PartitionContents.Marshal(data[24:56])
	copy(data[56:184], p.PartitionContentsUse[:])
	binary.LittleEndian.PutUint32(data[184:188], p.AccessType)
	binary.LittleEndian.PutUint32(data[188:192], p.PartitionStartingLocation)
	binary.LittleEndian.PutUint32(data[192:196], p.PartitionLength)
	p.ImplementationIdentifier.Marshal(data[196:228])
	copy(data[228:356], p.ImplementationUse[:])

	p.Tag.TagIdentifier = consts.TAG_PARTITION_DESCRIPTOR
	tag, err := p.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])

	return data, nil
}

// PartitionMap is one entry of the LVD's partition map table, a tagged
// variant selected by its leading type byte. Exactly one of Type1, Type2 or
// Unknown is populated, matching MapType.
type PartitionMap struct {
	// Map Type: 0 unrecognized, 1 physical, 2 virtual/metadata.
	MapType uint8 `json:"map_type"`
	// Map Length, bounds the whole entry including the type and length bytes.
	MapLength uint8 `json:"map_length"`

	Type1   *Type1PartitionMap   `json:"type1,omitempty"`
	Type2   *Type2PartitionMap   `json:"type2,omitempty"`
	Unknown *UnknownPartitionMap `json:"unknown,omitempty"`
}

// Type1PartitionMap references a physical partition directly
// (ECMA-167 3/10.7.2).
type Type1PartitionMap struct {
	VolumeSequenceNumber uint16 `json:"volume_sequence_number"`
	PartitionNumber      uint16 `json:"partition_number"`
}

// Type2PartitionMap identifies a metadata partition (UDF 2.2.10): logical
// block numbers within the mapped partition are indirected through the
// metadata file whose location it carries.
type Type2PartitionMap struct {
	PartitionTypeIdentifier EntityID `json:"partition_type_identifier"`
	VolumeSequenceNumber    uint16   `json:"volume_sequence_number"`
	PartitionNumber         uint16   `json:"partition_number"`
	// Metadata File Location, a logical block number within the partition.
	MetadataFileLocation uint32 `json:"metadata_file_location"`
	// Metadata Mirror File Location.
	MetadataMirrorFileLocation uint32 `json:"metadata_mirror_file_location"`
	// Metadata Bitmap File Location.
	MetadataBitmapFileLocation uint32 `json:"metadata_bitmap_file_location"`
	// Allocation Unit Size, in blocks.
	AllocationUnitSize uint32 `json:"allocation_unit_size"`
	// Alignment Unit Size, in blocks.
	AlignmentUnitSize uint16 `json:"alignment_unit_size"`
	Flags             uint8  `json:"flags"`
}

// UnknownPartitionMap preserves the raw payload of an unrecognized map type.
type UnknownPartitionMap struct {
	Data []byte `json:"data"`
}

// Unmarshal decodes one partition map entry from the front of data and
// returns the number of bytes it occupied. Unrecognized map types are bounded
// by their declared length and preserved raw rather than rejected.
func (m *PartitionMap) Unmarshal(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: partition map needs 2 bytes for type and length, have %d",
			ErrMalformedRecord, len(data))
	}
	m.MapType = data[0]
	m.MapLength = data[1]

	switch m.MapType {
	case consts.PARTITION_MAP_TYPE_1:
		if m.MapLength != consts.UDF_PARTITION_MAP_TYPE1_SIZE {
			return 0, fmt.Errorf("%w: type 1 partition map length %d, expected %d",
				ErrMalformedRecord, m.MapLength, consts.UDF_PARTITION_MAP_TYPE1_SIZE)
		}
		if len(data) < consts.UDF_PARTITION_MAP_TYPE1_SIZE {
			return 0, fmt.Errorf("%w: truncated type 1 partition map", ErrMalformedRecord)
		}
		m.Type1 = &Type1PartitionMap{
			VolumeSequenceNumber: binary.LittleEndian.Uint16(data[2:4]),
			PartitionNumber:      binary.LittleEndian.Uint16(data[4:6]),
		}
		return consts.UDF_PARTITION_MAP_TYPE1_SIZE, nil

	case consts.PARTITION_MAP_TYPE_2:
		if m.MapLength != consts.UDF_PARTITION_MAP_TYPE2_SIZE {
			return 0, fmt.Errorf("%w: type 2 partition map length %d, expected %d",
				ErrMalformedRecord, m.MapLength, consts.UDF_PARTITION_MAP_TYPE2_SIZE)
		}
		if len(data) < consts.UDF_PARTITION_MAP_TYPE2_SIZE {
			return 0, fmt.Errorf("%w: truncated type 2 partition map", ErrMalformedRecord)
		}
		t2 := &Type2PartitionMap{}
		// Bytes 2-3 are reserved.
		t2.PartitionTypeIdentifier.Unmarshal(data[4:36])
		t2.VolumeSequenceNumber = binary.LittleEndian.Uint16(data[36:38])
		t2.PartitionNumber = binary.LittleEndian.Uint16(data[38:40])
		t2.MetadataFileLocation = binary.LittleEndian.Uint32(data[40:44])
		t2.MetadataMirrorFileLocation = binary.LittleEndian.Uint32(data[44:48])
		t2.MetadataBitmapFileLocation = binary.LittleEndian.Uint32(data[48:52])
		t2.AllocationUnitSize = binary.LittleEndian.Uint32(data[52:56])
		t2.AlignmentUnitSize = binary.LittleEndian.Uint16(data[56:58])
		t2.Flags = data[58]
		m.Type2 = t2
		return consts.UDF_PARTITION_MAP_TYPE2_SIZE, nil

	default:
		if int(m.MapLength) < 2 || len(data) < int(m.MapLength) {
			return 0, fmt.Errorf("%w: unrecognized partition map with invalid length %d",
				ErrMalformedRecord, m.MapLength)
		}
		m.Unknown = &UnknownPartitionMap{Data: append([]byte(nil), data[2:m.MapLength]...)}
		return int(m.MapLength), nil
	}
}

// Marshal renders the partition map entry and returns its on-disk bytes.
func (m *PartitionMap) Marshal() ([]byte, error) {
	switch {
	case m.Type1 != nil:
		data := make([]byte, consts.UDF_PARTITION_MAP_TYPE1_SIZE)
		data[0] = consts.PARTITION_MAP_TYPE_1
		data[1] = consts.UDF_PARTITION_MAP_TYPE1_SIZE
		binary.LittleEndian.PutUint16(data[2:4], m.Type1.VolumeSequenceNumber)
		binary.LittleEndian.PutUint16(data[4:6], m.Type1.PartitionNumber)
		return data, nil
	case m.Type2 != nil:
		data := make([]byte, consts.UDF_PARTITION_MAP_TYPE2_SIZE)
		data[0] = consts.PARTITION_MAP_TYPE_2
		data[1] = consts.UDF_PARTITION_MAP_TYPE2_SIZE
		m.Type2.PartitionTypeIdentifier.Marshal(data[4:36])
		binary.LittleEndian.PutUint16(data[36:38], m.Type2.VolumeSequenceNumber)
		binary.LittleEndian.PutUint16(data[38:40], m.Type2.PartitionNumber)
		binary.LittleEndian.PutUint32(data[40:44], m.Type2.MetadataFileLocation)
		binary.LittleEndian.PutUint32(data[44:48], m.Type2.MetadataMirrorFileLocation)
		binary.LittleEndian.PutUint32(data[48:52], m.Type2.MetadataBitmapFileLocation)
		binary.LittleEndian.PutUint32(data[52:56], m.Type2.AllocationUnitSize)
		binary.LittleEndian.PutUint16(data[56:58], m.Type2.AlignmentUnitSize)
		data[58] = m.Type2.Flags
		return data, nil
	case m.Unknown != nil:
		data := make([]byte, 2+len(m.Unknown.Data))
		data[0] = m.MapType
		data[1] = byte(len(data))
		copy(data[2:], m.Unknown.Data)
		return data, nil
	default:
		return nil, fmt.Errorf("partition map has no variant populated")
	}
}
