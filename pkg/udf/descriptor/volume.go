package descriptor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
)

// AnchorVolumeDescriptorPointer is the fixed-location descriptor at sector
// 256 that frames the main and reserve Volume Descriptor Sequences
// (ECMA-167 3/10.2).
type AnchorVolumeDescriptorPointer struct {
	Tag Tag `json:"tag"`
	// Main Volume Descriptor Sequence extent.
	MainVolumeDescriptorSequence ExtentAD `json:"main_volume_descriptor_sequence"`
	// Reserve Volume Descriptor Sequence extent.
	ReserveVolumeDescriptorSequence ExtentAD `json:"reserve_volume_descriptor_sequence"`
}

func (a *AnchorVolumeDescriptorPointer) Unmarshal(data []byte) error {
	if err := a.Tag.Unmarshal(data, consts.TAG_ANCHOR_VOLUME_POINTER); err != nil {
		return fmt.Errorf("failed to unmarshal anchor volume descriptor pointer tag: %w", err)
	}
	if len(data) < 32 {
		return fmt.Errorf("%w: anchor volume descriptor pointer needs 32 bytes, have %d",
			ErrMalformedRecord, len(data))
	}
	a.MainVolumeDescriptorSequence.Unmarshal(data[16:24])
	a.ReserveVolumeDescriptorSequence.Unmarshal(data[24:32])
	return nil
}

func (a *AnchorVolumeDescriptorPointer) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte
	a.Tag.TagIdentifier = consts.TAG_ANCHOR_VOLUME_POINTER
	tag, err := a.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])
	a.MainVolumeDescriptorSequence.Marshal(data[16:24])
	a.ReserveVolumeDescriptorSequence.Marshal(data[24:32])
	return data, nil
}

// PrimaryVolumeDescriptor identifies the volume itself (ECMA-167 3/10.1).
type PrimaryVolumeDescriptor struct {
	Tag Tag `json:"tag"`
	// Volume Descriptor Sequence Number, position of this descriptor in the VDS.
	VolumeDescriptorSequenceNumber uint32 `json:"volume_descriptor_sequence_number"`
	// Primary Volume Descriptor Number within the volume set.
	PrimaryVolumeDescriptorNumber uint32 `json:"primary_volume_descriptor_number"`
	// Volume Identifier, a d-string of up to 32 bytes.
	VolumeIdentifier string `json:"volume_identifier"`
	// Volume Sequence Number of this volume within its set.
	VolumeSequenceNumber uint16 `json:"volume_sequence_number"`
	// Maximum Volume Sequence Number in the set.
	MaximumVolumeSequenceNumber uint16 `json:"maximum_volume_sequence_number"`
	// Interchange Level and the maximum level this volume may be recorded at.
	InterchangeLevel        uint16 `json:"interchange_level"`
	MaximumInterchangeLevel uint16 `json:"maximum_interchange_level"`
	// Character Set List bitmaps.
	CharacterSetList        uint32 `json:"character_set_list"`
	MaximumCharacterSetList uint32 `json:"maximum_character_set_list"`
	// Volume Set Identifier, a d-string of up to 128 bytes.
	VolumeSetIdentifier string `json:"volume_set_identifier"`
	// Descriptor and Explanatory character sets.
	DescriptorCharacterSet  CharSpec `json:"descriptor_character_set"`
	ExplanatoryCharacterSet CharSpec `json:"explanatory_character_set"`
	// Volume Abstract and Volume Copyright Notice extents.
	VolumeAbstract              ExtentAD `json:"volume_abstract"`
	VolumeCopyrightNoticeExtent ExtentAD `json:"volume_copyright_notice_extent"`
	// Application Identifier.
	ApplicationIdentifier EntityID `json:"application_identifier"`
	// Recording Date and Time.
	RecordingDateAndTime time.Time `json:"recording_date_and_time"`
	// Implementation Identifier and use area.
	ImplementationIdentifier EntityID `json:"implementation_identifier"`
	ImplementationUse        [64]byte `json:"implementation_use"`
	// Predecessor Volume Descriptor Sequence Location.
	PredecessorVDSLocation uint32 `json:"predecessor_vds_location"`
	Flags                  uint16 `json:"flags"`
}

func (p *PrimaryVolumeDescriptor) Unmarshal(data []byte) error {
	if err := p.Tag.Unmarshal(data, consts.TAG_PRIMARY_VOLUME_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal primary volume descriptor tag: %w", err)
	}
	if len(data) < 490 {
		return fmt.Errorf("%w: primary volume descriptor needs 490 bytes, have %d",
			ErrMalformedRecord, len(data))
	}

	p.VolumeDescriptorSequenceNumber = binary.LittleEndian.Uint32(data[16:20])
	p.PrimaryVolumeDescriptorNumber = binary.LittleEndian.Uint32(data[20:24])

	var err error
	if p.VolumeIdentifier, err = encoding.DecodeDString(data[24:56]); err != nil {
		return fmt.Errorf("failed to decode volume identifier: %w", err)
	}

	p.VolumeSequenceNumber = binary.LittleEndian.Uint16(data[56:58])
	p.MaximumVolumeSequenceNumber = binary.LittleEndian.Uint16(data[58:60])
	p.InterchangeLevel = binary.LittleEndian.Uint16(data[60:62])
	p.MaximumInterchangeLevel = binary.LittleEndian.Uint16(data[62:64])
	p.CharacterSetList = binary.LittleEndian.Uint32(data[64:68])
	p.MaximumCharacterSetList = binary.LittleEndian.Uint32(data[68:72])

	if p.VolumeSetIdentifier, err = encoding.DecodeDString(data[72:200]); err != nil {
		return fmt.Errorf("failed to decode volume set identifier: %w", err)
	}

	p.DescriptorCharacterSet.Unmarshal(data[200:264])
	p.ExplanatoryCharacterSet.Unmarshal(data[264:328])
	p.VolumeAbstract.Unmarshal(data[328:336])
	p.VolumeCopyrightNoticeExtent.Unmarshal(data[336:344])
	p.ApplicationIdentifier.Unmarshal(data[344:376])
	p.RecordingDateAndTime = encoding.UnmarshalTimestamp([12]byte(data[376:388]))
	p.ImplementationIdentifier.Unmarshal(data[388:420])
	copy(p.ImplementationUse[:], data[420:484])
	p.PredecessorVDSLocation = binary.LittleEndian.Uint32(data[484:488])
	p.Flags = binary.LittleEndian.Uint16(data[488:490])

	return nil
}

func (p *PrimaryVolumeDescriptor) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte

	binary.LittleEndian.PutUint32(data[16:20], p.VolumeDescriptorSequenceNumber)
	binary.LittleEndian.PutUint32(data[20:24], p.PrimaryVolumeDescriptorNumber)

	volID, err := encoding.EncodeDString(p.VolumeIdentifier, 32)
	if err != nil {
		return data, fmt.Errorf("failed to encode volume identifier: %w", err)
	}
	copy(data[24:56], volID)

	binary.LittleEndian.PutUint16(data[56:58], p.VolumeSequenceNumber)
	binary.LittleEndian.PutUint16(data[58:60], p.MaximumVolumeSequenceNumber)
	binary.LittleEndian.PutUint16(data[60:62], p.InterchangeLevel)
	binary.LittleEndian.PutUint16(data[62:64], p.MaximumInterchangeLevel)
	binary.LittleEndian.PutUint32(data[64:68], p.CharacterSetList)
	binary.LittleEndian.PutUint32(data[68:72], p.MaximumCharacterSetList)

	volSetID, err := encoding.EncodeDString(p.VolumeSetIdentifier, 128)
	if err != nil {
		return data, fmt.Errorf("failed to encode volume set identifier: %w", err)
	}
	copy(data[72:200], volSetID)

	p.DescriptorCharacterSet.Marshal(data[200:264])
	p.ExplanatoryCharacterSet.Marshal(data[264:328])
	p.VolumeAbstract.Marshal(data[328:336])
	p.VolumeCopyrightNoticeExtent.Marshal(data[336:344])
	p.ApplicationIdentifier.Marshal(data[344:376])

	recorded, err := encoding.MarshalTimestamp(p.RecordingDateAndTime)
	if err != nil {
		return data, fmt.Errorf("failed to encode recording date and time: %w", err)
	}
	copy(data[376:388], recorded[:])

	p.ImplementationIdentifier.Marshal(data[388:420])
	copy(data[420:484], p.ImplementationUse[:])
	binary.LittleEndian.PutUint32(data[484:488], p.PredecessorVDSLocation)
	binary.LittleEndian.PutUint16(data[488:490], p.Flags)

	p.Tag.TagIdentifier = consts.TAG_PRIMARY_VOLUME_DESCRIPTOR
	tag, err := p.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])

	return data, nil
}

// TerminatingDescriptor ends a Volume Descriptor Sequence (ECMA-167 3/10.9).
// Its body is reserved.
type TerminatingDescriptor struct {
	Tag Tag `json:"tag"`
}

func (t *TerminatingDescriptor) Unmarshal(data []byte) error {
	if err := t.Tag.Unmarshal(data, consts.TAG_TERMINATING_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal terminating descriptor tag: %w", err)
	}
	return nil
}

func (t *TerminatingDescriptor) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte
	t.Tag.TagIdentifier = consts.TAG_TERMINATING_DESCRIPTOR
	tag, err := t.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])
	return data, nil
}
