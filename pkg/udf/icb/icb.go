package icb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
)

// ErrUnsupportedFileType is returned when an ICB tag's file type selects a
// body this library does not decode (indirect entries, symlinks, stream
// directories and the other entry kinds outside the file entry set).
var ErrUnsupportedFileType = errors.New("unsupported ICB file type")

// FileType values carried in an ICB tag (ECMA-167 4/14.6.6).
type FileType uint8

const (
	FILE_TYPE_UNSPECIFIED         FileType = 0
	FILE_TYPE_UNALLOCATED_SPACE   FileType = 1
	FILE_TYPE_PARTITION_INTEGRITY FileType = 2
	FILE_TYPE_INDIRECT_ENTRY      FileType = 3
	FILE_TYPE_DIRECTORY           FileType = 4
	FILE_TYPE_BYTES               FileType = 5
	FILE_TYPE_BLOCK_DEVICE        FileType = 6
	FILE_TYPE_CHARACTER_DEVICE    FileType = 7
	FILE_TYPE_EXTENDED_ATTRIBUTES FileType = 8
	FILE_TYPE_FIFO                FileType = 9
	FILE_TYPE_SOCKET              FileType = 10
	FILE_TYPE_TERMINAL_ENTRY      FileType = 11
	FILE_TYPE_SYMLINK             FileType = 12
	FILE_TYPE_STREAM_DIRECTORY    FileType = 13
	FILE_TYPE_METADATA_MAIN       FileType = 250
	FILE_TYPE_METADATA_MIRROR     FileType = 251
)

// ICBTag is the 20-byte tag following the descriptor tag in every ICB entry
// (ECMA-167 4/14.6). Its file type selects the legal body variant, and the
// low four bits of its flags select the allocation descriptor format.
type ICBTag struct {
	// Prior Recorded Number of Direct Entries in this ICB hierarchy.
	PriorRecordedEntries uint32 `json:"prior_recorded_entries"`
	// Strategy Type, 4 for the flat strategy used on read-only media.
	StrategyType uint16 `json:"strategy_type"`
	// Strategy Parameter bytes.
	StrategyParameter [2]byte `json:"strategy_parameter"`
	// Maximum Number of Entries in this ICB.
	MaximumEntries uint16 `json:"maximum_entries"`
	// File Type selects the body variant.
	FileType FileType `json:"file_type"`
	// Parent ICB Location, the zero address when not recorded.
	ParentICBLocation allocation.LBAddr `json:"parent_icb_location"`
	// Flags: allocation type in bits 3-0, plus sorted/non-relocatable/
	// archive/setuid bits above.
	Flags uint16 `json:"flags"`
}

// AllocType extracts the allocation descriptor format selector from the
// flags field, failing with allocation.ErrUnknownAllocType for reserved
// values.
func (t *ICBTag) AllocType() (allocation.AllocType, error) {
	return allocation.AllocTypeFromFlags(t.Flags)
}

func (t *ICBTag) Unmarshal(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("%w: ICB tag needs 20 bytes, have %d",
			descriptor.ErrMalformedRecord, len(data))
	}
	t.PriorRecordedEntries = binary.LittleEndian.Uint32(data[0:4])
	t.StrategyType = binary.LittleEndian.Uint16(data[4:6])
	copy(t.StrategyParameter[:], data[6:8])
	t.MaximumEntries = binary.LittleEndian.Uint16(data[8:10])
	t.FileType = FileType(data[11])
	t.ParentICBLocation.Unmarshal(data[12:18])
	t.Flags = binary.LittleEndian.Uint16(data[18:20])
	return nil
}

func (t *ICBTag) Marshal(data []byte) {
	binary.LittleEndian.PutUint32(data[0:4], t.PriorRecordedEntries)
	binary.LittleEndian.PutUint16(data[4:6], t.StrategyType)
	copy(data[6:8], t.StrategyParameter[:])
	binary.LittleEndian.PutUint16(data[8:10], t.MaximumEntries)
	data[11] = byte(t.FileType)
	t.ParentICBLocation.Marshal(data[12:18])
	binary.LittleEndian.PutUint16(data[18:20], t.Flags)
}

// FileEntry is the full file entry body of an ICB (ECMA-167 4/14.9): fixed
// metadata followed by two variable-length blobs, the extended attributes
// and the allocation descriptors, each sized by a preceding length field.
type FileEntry struct {
	// UID and GID of the file, 0xFFFFFFFF when not specified.
	UID uint32 `json:"uid"`
	GID uint32 `json:"gid"`
	// Permissions bits: read/write/execute plus change-attribute and delete,
	// for owner, group and other (ECMA-167 4/14.9.5).
	Permissions uint32 `json:"permissions"`
	// File Link Count, the number of FIDs referencing this ICB.
	FileLinkCount           uint16 `json:"file_link_count"`
	RecordFormat            uint8  `json:"record_format"`
	RecordDisplayAttributes uint8  `json:"record_display_attributes"`
	RecordLength            uint32 `json:"record_length"`
	// Information Length, the file's byte size.
	InformationLength uint64 `json:"information_length"`
	// Logical Blocks Recorded for the file's data.
	LogicalBlocksRecorded uint64 `json:"logical_blocks_recorded"`
	// Access, modification and attribute timestamps.
	AccessTime       time.Time `json:"access_time"`
	ModificationTime time.Time `json:"modification_time"`
	AttributeTime    time.Time `json:"attribute_time"`
	// Checkpoint number of the file.
	Checkpoint uint32 `json:"checkpoint"`
	// Extended Attribute ICB location.
	ExtendedAttributeICB allocation.LongAD `json:"extended_attribute_icb"`
	// Implementation Identifier.
	ImplementationIdentifier descriptor.EntityID `json:"implementation_identifier"`
	// Unique ID of the file within the volume.
	UniqueID uint64 `json:"unique_id"`
	// Extended Attributes, captured raw. Interpreting them is out of scope.
	ExtendedAttributes []byte `json:"extended_attributes"`
	// Allocation Descriptors blob; re-parsed descriptor by descriptor using
	// the ICB tag's allocation type selector.
	AllocationDescriptorBytes []byte `json:"allocation_descriptor_bytes"`
}

func (f *FileEntry) Unmarshal(data []byte) error {
	if len(data) < 140 {
		return fmt.Errorf("%w: file entry body needs 140 bytes, have %d",
			descriptor.ErrMalformedRecord, len(data))
	}

	f.UID = binary.LittleEndian.Uint32(data[0:4])
	f.GID = binary.LittleEndian.Uint32(data[4:8])
	f.Permissions = binary.LittleEndian.Uint32(data[8:12])
	f.FileLinkCount = binary.LittleEndian.Uint16(data[12:14])
	f.RecordFormat = data[14]
	f.RecordDisplayAttributes = data[15]
	f.RecordLength = binary.LittleEndian.Uint32(data[16:20])
	f.InformationLength = binary.LittleEndian.Uint64(data[20:28])
	f.LogicalBlocksRecorded = binary.LittleEndian.Uint64(data[28:36])
	f.AccessTime = encoding.UnmarshalTimestamp([12]byte(data[36:48]))
	f.ModificationTime = encoding.UnmarshalTimestamp([12]byte(data[48:60]))
	f.AttributeTime = encoding.UnmarshalTimestamp([12]byte(data[60:72]))
	f.Checkpoint = binary.LittleEndian.Uint32(data[72:76])
	if err := f.ExtendedAttributeICB.Unmarshal(data[76:92]); err != nil {
		return fmt.Errorf("failed to unmarshal extended attribute ICB descriptor: %w", err)
	}
	f.ImplementationIdentifier.Unmarshal(data[92:124])
	f.UniqueID = binary.LittleEndian.Uint64(data[124:132])

	eaLength := binary.LittleEndian.Uint32(data[132:136])
	adLength := binary.LittleEndian.Uint32(data[136:140])

	blobs := data[140:]
	if uint64(len(blobs)) < uint64(eaLength)+uint64(adLength) {
		return fmt.Errorf("%w: file entry declares %d extended attribute and %d allocation descriptor bytes, have %d",
			descriptor.ErrMalformedRecord, eaLength, adLength, len(blobs))
	}
	f.ExtendedAttributes = append([]byte(nil), blobs[:eaLength]...)
	f.AllocationDescriptorBytes = append([]byte(nil), blobs[eaLength:uint64(eaLength)+uint64(adLength)]...)

	return nil
}

func (f *FileEntry) Marshal(data []byte) error {
	need := 140 + len(f.ExtendedAttributes) + len(f.AllocationDescriptorBytes)
	if len(data) < need {
		return fmt.Errorf("file entry body of %d bytes does not fit in %d", need, len(data))
	}

	binary.LittleEndian.PutUint32(data[0:4], f.UID)
	binary.LittleEndian.PutUint32(data[4:8], f.GID)
	binary.LittleEndian.PutUint32(data[8:12], f.Permissions)
	binary.LittleEndian.PutUint16(data[12:14], f.FileLinkCount)
	data[14] = f.RecordFormat
	data[15] = f.RecordDisplayAttributes
	binary.LittleEndian.PutUint32(data[16:20], f.RecordLength)
	binary.LittleEndian.PutUint64(data[20:28], f.InformationLength)
	binary.LittleEndian.PutUint64(data[28:36], f.LogicalBlocksRecorded)

	for i, ts := range []time.Time{f.AccessTime, f.ModificationTime, f.AttributeTime} {
		encoded, err := encoding.MarshalTimestamp(ts)
		if err != nil {
			return fmt.Errorf("failed to encode file entry timestamp: %w", err)
		}
		copy(data[36+i*12:48+i*12], encoded[:])
	}

	binary.LittleEndian.PutUint32(data[72:76], f.Checkpoint)
	eaICB, err := f.ExtendedAttributeICB.Marshal()
	if err != nil {
		return err
	}
	copy(data[76:92], eaICB[:])
	f.ImplementationIdentifier.Marshal(data[92:124])
	binary.LittleEndian.PutUint64(data[124:132], f.UniqueID)
	binary.LittleEndian.PutUint32(data[132:136], uint32(len(f.ExtendedAttributes)))
	binary.LittleEndian.PutUint32(data[136:140], uint32(len(f.AllocationDescriptorBytes)))
	copy(data[140:], f.ExtendedAttributes)
	copy(data[140+len(f.ExtendedAttributes):], f.AllocationDescriptorBytes)

	return nil
}

// ICB is one Information Control Block entry: descriptor tag, ICB tag, and a
// body variant selected entirely by the ICB tag's file type. Exactly one of
// Terminal or FileEntry is populated after a successful Unmarshal.
type ICB struct {
	Tag    descriptor.Tag `json:"tag"`
	ICBTag ICBTag         `json:"icb_tag"`

	// Terminal is set for a terminal entry, the end marker of a directory
	// chain. It has no file entry and no allocation descriptors.
	Terminal bool `json:"terminal"`
	// FileEntry is the full file entry body, nil for a terminal entry.
	FileEntry *FileEntry `json:"file_entry,omitempty"`
}

// Unmarshal decodes tag, ICB tag, and the body variant selected by the ICB
// tag's file type. File types without a decoder here (indirect entries,
// symlinks, stream directories, ...) fail with ErrUnsupportedFileType.
func (i *ICB) Unmarshal(data []byte) error {
	kind, err := descriptor.Peek(data)
	if err != nil {
		return err
	}
	switch kind {
	case consts.TAG_FILE_ENTRY, consts.TAG_TERMINAL_ENTRY, consts.TAG_INDIRECT_ENTRY:
		// ICB entry kinds; the body decode below is driven by the file type.
	default:
		return fmt.Errorf("%w: tag identifier 0x%04x is not an ICB entry",
			descriptor.ErrTagMismatch, kind)
	}
	if err := i.Tag.Unmarshal(data, kind); err != nil {
		return fmt.Errorf("failed to unmarshal ICB tag: %w", err)
	}
	if len(data) < 36 {
		return fmt.Errorf("%w: ICB needs 36 bytes for its tags, have %d",
			descriptor.ErrMalformedRecord, len(data))
	}
	if err := i.ICBTag.Unmarshal(data[16:36]); err != nil {
		return err
	}

	switch i.ICBTag.FileType {
	case FILE_TYPE_TERMINAL_ENTRY:
		i.Terminal = true
		i.FileEntry = nil
		return nil
	case FILE_TYPE_UNSPECIFIED, FILE_TYPE_DIRECTORY, FILE_TYPE_BYTES,
		FILE_TYPE_BLOCK_DEVICE, FILE_TYPE_CHARACTER_DEVICE,
		FILE_TYPE_EXTENDED_ATTRIBUTES, FILE_TYPE_FIFO, FILE_TYPE_SOCKET,
		FILE_TYPE_METADATA_MAIN, FILE_TYPE_METADATA_MIRROR:
		fe := &FileEntry{}
		if err := fe.Unmarshal(data[36:]); err != nil {
			return fmt.Errorf("failed to unmarshal file entry body: %w", err)
		}
		i.Terminal = false
		i.FileEntry = fe
		return nil
	default:
		return fmt.Errorf("%w: file type %d", ErrUnsupportedFileType, i.ICBTag.FileType)
	}
}

// Marshal renders the ICB into one logical block.
func (i *ICB) Marshal() ([consts.UDF_SECTOR_SIZE]byte, error) {
	var data [consts.UDF_SECTOR_SIZE]byte

	i.ICBTag.Marshal(data[16:36])
	if i.FileEntry != nil {
		if err := i.FileEntry.Marshal(data[36:]); err != nil {
			return data, err
		}
		i.Tag.TagIdentifier = consts.TAG_FILE_ENTRY
	} else {
		i.Tag.TagIdentifier = consts.TAG_TERMINAL_ENTRY
	}

	tag, err := i.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])
	return data, nil
}

// AllocationDescriptors re-parses the file entry's trailing allocation
// descriptor blob, one descriptor at a time, using the allocation type
// selector from the ICB tag's flags. A terminal entry yields an empty
// sequence. Exhausting the blob is the normal termination condition.
func (i *ICB) AllocationDescriptors() ([]allocation.Descriptor, error) {
	ty, err := i.ICBTag.AllocType()
	if err != nil {
		return nil, err
	}
	if i.FileEntry == nil {
		return nil, nil
	}
	return allocation.DecodeAll(ty, i.FileEntry.AllocationDescriptorBytes)
}

// IsDirectory reports whether this ICB describes a directory.
func (i *ICB) IsDirectory() bool {
	return i.ICBTag.FileType == FILE_TYPE_DIRECTORY
}

// UDF permission bit positions (ECMA-167 4/14.9.5.1): five bits per class in
// other, group, owner order, low bits first.
const (
	permExecute = 1 << 0
	permWrite   = 1 << 1
	permRead    = 1 << 2

	permGroupShift = 5
	permOwnerShift = 10
)

// Mode maps the file entry's UDF permission bits onto an os.FileMode,
// including the directory bit from the ICB tag's file type.
func (i *ICB) Mode() os.FileMode {
	var mode os.FileMode
	if i.FileEntry != nil {
		perms := i.FileEntry.Permissions
		for _, class := range []struct {
			shift uint
			bits  os.FileMode
		}{
			{permOwnerShift, 0o100},
			{permGroupShift, 0o010},
			{0, 0o001},
		} {
			p := perms >> class.shift
			if p&permRead != 0 {
				mode |= class.bits << 2
			}
			if p&permWrite != 0 {
				mode |= class.bits << 1
			}
			if p&permExecute != 0 {
				mode |= class.bits
			}
		}
	}
	if i.IsDirectory() {
		mode |= os.ModeDir
	}
	return mode
}
