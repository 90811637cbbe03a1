package fileset

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
)

// FileSetDescriptor is the entry point of a partition's file structure
// (ECMA-167 4/14.1). Its RootDirectoryICB long allocation descriptor locates
// the root directory's ICB.
type FileSetDescriptor struct {
	Tag descriptor.Tag `json:"tag"`
	// Recording Date and Time of the file set.
	RecordingDateAndTime time.Time `json:"recording_date_and_time"`
	// Interchange Level and the maximum level of the file set.
	InterchangeLevel        uint16 `json:"interchange_level"`
	MaximumInterchangeLevel uint16 `json:"maximum_interchange_level"`
	// Character Set List bitmaps.
	CharacterSetList        uint32 `json:"character_set_list"`
	MaximumCharacterSetList uint32 `json:"maximum_character_set_list"`
	// File Set Number and File Set Descriptor Number.
	FileSetNumber           uint32 `json:"file_set_number"`
	FileSetDescriptorNumber uint32 `json:"file_set_descriptor_number"`
	// Logical Volume Identifier character set and d-string.
	LogicalVolumeIdentifierCharacterSet descriptor.CharSpec `json:"logical_volume_identifier_character_set"`
	LogicalVolumeIdentifier             string              `json:"logical_volume_identifier"`
	// File Set character set and identifier d-strings.
	FileSetCharacterSet descriptor.CharSpec `json:"file_set_character_set"`
	FileSetIdentifier   string              `json:"file_set_identifier"`
	// Copyright and Abstract File Identifier d-strings.
	CopyrightFileIdentifier string `json:"copyright_file_identifier"`
	AbstractFileIdentifier  string `json:"abstract_file_identifier"`
	// Root Directory ICB location.
	RootDirectoryICB allocation.LongAD `json:"root_directory_icb"`
	// Domain Identifier.
	DomainIdentifier descriptor.EntityID `json:"domain_identifier"`
	// Next Extent of file set descriptors, if any.
	NextExtent allocation.LongAD `json:"next_extent"`
	// System Stream Directory ICB location.
	SystemStreamDirectoryICB allocation.LongAD `json:"system_stream_directory_icb"`
}

func (f *FileSetDescriptor) Unmarshal(data []byte) error {
	if err := f.Tag.Unmarshal(data, consts.TAG_FILE_SET_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal file set descriptor tag: %w", err)
	}
	if len(data) < 480 {
		return fmt.Errorf("%w: file set descriptor needs 480 bytes, have %d",
			descriptor.ErrMalformedRecord, len(data))
	}

	f.RecordingDateAndTime = encoding.UnmarshalTimestamp([12]byte(data[16:28]))
	f.InterchangeLevel = binary.LittleEndian.Uint16(data[28:30])
	f.MaximumInterchangeLevel = binary.LittleEndian.Uint16(data[30:32])
	f.CharacterSetList = binary.LittleEndian.Uint32(data[32:36])
	f.MaximumCharacterSetList = binary.LittleEndian.Uint32(data[36:40])
	f.FileSetNumber = binary.LittleEndian.Uint32(data[40:44])
	f.FileSetDescriptorNumber = binary.LittleEndian.Uint32(data[44:48])
	f.LogicalVolumeIdentifierCharacterSet.Unmarshal(data[48:112])

	var err error
	if f.LogicalVolumeIdentifier, err = encoding.DecodeDString(data[112:240]); err != nil {
		return fmt.Errorf("failed to decode logical volume identifier: %w", err)
	}
	f.FileSetCharacterSet.Unmarshal(data[240:304])
	if f.FileSetIdentifier, err = encoding.DecodeDString(data[304:336]); err != nil {
		return fmt.Errorf("failed to decode file set identifier: %w", err)
	}
	if f.CopyrightFileIdentifier, err = encoding.DecodeDString(data[336:368]); err != nil {
		return fmt.Errorf("failed to decode copyright file identifier: %w", err)
	}
	if f.AbstractFileIdentifier, err = encoding.DecodeDString(data[368:400]); err != nil {
		return fmt.Errorf("failed to decode abstract file identifier: %w", err)
	}

	if err = f.RootDirectoryICB.Unmarshal(data[400:416]); err != nil {
		return fmt.Errorf("failed to unmarshal root directory ICB descriptor: %w", err)
	}
	f.DomainIdentifier.Unmarshal(data[416:448])
	if err = f.NextExtent.Unmarshal(data[448:464]); err != nil {
		return fmt.Errorf("failed to unmarshal next extent descriptor: %w", err)
	}
	if err = f.SystemStreamDirectoryICB.Unmarshal(data[464:480]); err != nil {
		return fmt.Errorf("failed to unmarshal system stream directory ICB descriptor: %w", err)
	}

	return nil
}

func (f *FileSetDescriptor) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte

	recorded, err := encoding.MarshalTimestamp(f.RecordingDateAndTime)
	if err != nil {
		return data, fmt.Errorf("failed to encode recording date and time: %w", err)
	}
	copy(data[16:28], recorded[:])

	binary.LittleEndian.PutUint16(data[28:30], f.InterchangeLevel)
	binary.LittleEndian.PutUint16(data[30:32], f.MaximumInterchangeLevel)
	binary.LittleEndian.PutUint32(data[32:36], f.CharacterSetList)
	binary.LittleEndian.PutUint32(data[36:40], f.MaximumCharacterSetList)
	binary.LittleEndian.PutUint32(data[40:44], f.FileSetNumber)
	binary.LittleEndian.PutUint32(data[44:48], f.FileSetDescriptorNumber)
	f.LogicalVolumeIdentifierCharacterSet.Marshal(data[48:112])

	for _, field := range []struct {
		value string
		size  int
		at    int
	}{
		{f.LogicalVolumeIdentifier, 128, 112},
		{f.FileSetIdentifier, 32, 304},
		{f.CopyrightFileIdentifier, 32, 336},
		{f.AbstractFileIdentifier, 32, 368},
	} {
		encoded, err := encoding.EncodeDString(field.value, field.size)
		if err != nil {
			return data, fmt.Errorf("failed to encode d-string %q: %w", field.value, err)
		}
		copy(data[field.at:field.at+field.size], encoded)
	}
	f.FileSetCharacterSet.Marshal(data[240:304])

	rootICB, err := f.RootDirectoryICB.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[400:416], rootICB[:])
	f.DomainIdentifier.Marshal(data[416:448])
	nextExtent, err := f.NextExtent.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[448:464], nextExtent[:])
	ssd, err := f.SystemStreamDirectoryICB.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[464:480], ssd[:])

	f.Tag.TagIdentifier = consts.TAG_FILE_SET_DESCRIPTOR
	tag, err := f.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])

	return data, nil
}
