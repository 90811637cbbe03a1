package directory

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
)

// File Characteristics bits (ECMA-167 4/14.4.3).
const (
	FILE_CHAR_HIDDEN    = 1 << 0
	FILE_CHAR_DIRECTORY = 1 << 1
	FILE_CHAR_DELETED   = 1 << 2
	FILE_CHAR_PARENT    = 1 << 3
	FILE_CHAR_METADATA  = 1 << 4
)

// FileIdentifierDescriptor is one directory entry (ECMA-167 4/14.4): it
// names a child and carries the long allocation descriptor of the child's
// ICB. Records are variable length and padded so that each occupies a
// multiple of four bytes.
type FileIdentifierDescriptor struct {
	Tag descriptor.Tag `json:"tag"`
	// File Version Number, always 1 on UDF volumes.
	FileVersionNumber uint16 `json:"file_version_number"`
	// File Characteristics bits: hidden, directory, deleted, parent, metadata.
	FileCharacteristics uint8 `json:"file_characteristics"`
	// ICB locating the child's information control block.
	ICB allocation.LongAD `json:"icb"`
	// Implementation Use bytes, captured raw.
	ImplementationUse []byte `json:"implementation_use"`
	// File Identifier, the raw OSTA CS0 compressed-unicode name bytes. The
	// parent entry has an empty identifier.
	FileIdentifier []byte `json:"file_identifier"`
}

// padding returns the pad byte count that rounds a record with the given
// identifier and implementation-use lengths up to a four-byte boundary.
func padding(fidLen, implLen int) int {
	used := fidLen + implLen + consts.UDF_FID_FIXED_SIZE
	return (consts.UDF_FID_PADDING*((used+consts.UDF_FID_PADDING-1)/consts.UDF_FID_PADDING) - used)
}

// Len is the record's total on-disk length, padding included. Always a
// multiple of four.
func (f *FileIdentifierDescriptor) Len() int {
	used := len(f.FileIdentifier) + len(f.ImplementationUse) + consts.UDF_FID_FIXED_SIZE
	return used + padding(len(f.FileIdentifier), len(f.ImplementationUse))
}

func (f *FileIdentifierDescriptor) IsHidden() bool {
	return f.FileCharacteristics&FILE_CHAR_HIDDEN != 0
}

func (f *FileIdentifierDescriptor) IsDirectory() bool {
	return f.FileCharacteristics&FILE_CHAR_DIRECTORY != 0
}

func (f *FileIdentifierDescriptor) IsDeleted() bool {
	return f.FileCharacteristics&FILE_CHAR_DELETED != 0
}

func (f *FileIdentifierDescriptor) IsParent() bool {
	return f.FileCharacteristics&FILE_CHAR_PARENT != 0
}

// Name decodes the raw file identifier bytes per OSTA CS0. The parent entry
// decodes to the empty string.
func (f *FileIdentifierDescriptor) Name() (string, error) {
	return encoding.DecodeDCharacters(f.FileIdentifier)
}

// Unmarshal decodes one FID from the front of data and returns the number of
// bytes consumed, padding included.
func (f *FileIdentifierDescriptor) Unmarshal(data []byte) (int, error) {
	if err := f.Tag.Unmarshal(data, consts.TAG_FILE_IDENTIFIER_DESCRIPTOR); err != nil {
		return 0, fmt.Errorf("failed to unmarshal file identifier descriptor tag: %w", err)
	}
	if len(data) < consts.UDF_FID_FIXED_SIZE {
		return 0, fmt.Errorf("%w: file identifier descriptor needs %d bytes, have %d",
			descriptor.ErrMalformedRecord, consts.UDF_FID_FIXED_SIZE, len(data))
	}

	f.FileVersionNumber = binary.LittleEndian.Uint16(data[16:18])
	f.FileCharacteristics = data[18]
	fidLen := int(data[19])
	if err := f.ICB.Unmarshal(data[20:36]); err != nil {
		return 0, fmt.Errorf("failed to unmarshal FID ICB descriptor: %w", err)
	}
	implLen := int(binary.LittleEndian.Uint16(data[36:38]))

	total := consts.UDF_FID_FIXED_SIZE + implLen + fidLen
	total += padding(fidLen, implLen)
	if len(data) < total {
		return 0, fmt.Errorf("%w: file identifier descriptor declares %d bytes, have %d",
			descriptor.ErrMalformedRecord, total, len(data))
	}

	f.ImplementationUse = append([]byte(nil), data[consts.UDF_FID_FIXED_SIZE:consts.UDF_FID_FIXED_SIZE+implLen]...)
	f.FileIdentifier = append([]byte(nil), data[consts.UDF_FID_FIXED_SIZE+implLen:consts.UDF_FID_FIXED_SIZE+implLen+fidLen]...)

	return total, nil
}

// Marshal renders the FID, padding included, and returns its on-disk bytes.
func (f *FileIdentifierDescriptor) Marshal() ([]byte, error) {
	if len(f.FileIdentifier) > 0xFF {
		return nil, fmt.Errorf("file identifier of %d bytes exceeds the 255-byte field", len(f.FileIdentifier))
	}
	if len(f.ImplementationUse) > 0xFFFF {
		return nil, fmt.Errorf("implementation use of %d bytes exceeds the field", len(f.ImplementationUse))
	}

	data := make([]byte, f.Len())
	binary.LittleEndian.PutUint16(data[16:18], f.FileVersionNumber)
	data[18] = f.FileCharacteristics
	data[19] = byte(len(f.FileIdentifier))
	icb, err := f.ICB.Marshal()
	if err != nil {
		return nil, err
	}
	copy(data[20:36], icb[:])
	binary.LittleEndian.PutUint16(data[36:38], uint16(len(f.ImplementationUse)))
	copy(data[consts.UDF_FID_FIXED_SIZE:], f.ImplementationUse)
	copy(data[consts.UDF_FID_FIXED_SIZE+len(f.ImplementationUse):], f.FileIdentifier)

	f.Tag.TagIdentifier = consts.TAG_FILE_IDENTIFIER_DESCRIPTOR
	tag, err := f.Tag.Marshal()
	if err != nil {
		return nil, err
	}
	copy(data[0:16], tag[:])

	return data, nil
}

// DecodeStream decodes a directory's content window as the back-to-back FID
// sequence it is: there is no record count, so decoding proceeds until the
// window is exhausted. A record that extends past the window fails with
// ErrMalformedRecord.
func DecodeStream(data []byte) ([]*FileIdentifierDescriptor, error) {
	var fids []*FileIdentifierDescriptor
	for len(data) > 0 {
		fid := &FileIdentifierDescriptor{}
		n, err := fid.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode directory entry %d: %w", len(fids), err)
		}
		fids = append(fids, fid)
		data = data[n:]
	}
	return fids, nil
}
