package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
)

// Tag is the 16-byte descriptor tag at the front of every UDF descriptor
// (ECMA-167 3/7.2 and 4/7.2). All fields are little-endian.
type Tag struct {
	// Tag Identifier selects the descriptor kind (PVD, PD, LVD, FSD, FID, ...).
	TagIdentifier uint16 `json:"tag_identifier"`
	// Descriptor Version, 2 for NSR02 volumes and 3 for NSR03.
	DescriptorVersion uint16 `json:"descriptor_version"`
	// Tag Checksum is the byte sum of the tag itself, excluding this field.
	TagChecksum uint8 `json:"tag_checksum"`
	// Tag Serial Number distinguishes descriptor instances across reformats.
	TagSerialNumber uint16 `json:"tag_serial_number"`
	// Descriptor CRC covers DescriptorCRCLength bytes following the tag.
	DescriptorCRC uint16 `json:"descriptor_crc"`
	// Descriptor CRC Length is the byte count covered by DescriptorCRC.
	DescriptorCRCLength uint16 `json:"descriptor_crc_length"`
	// Tag Location is the logical sector number this descriptor was written
	// at, relative to the start of its partition for file-structure tags.
	TagLocation uint32 `json:"tag_location"`
}

// checksum computes the tag checksum over the serialized header: the byte sum
// of bytes 0-3 and 5-15, modulo 256.
func checksum(data []byte) uint8 {
	var sum uint8
	for i := 0; i < consts.UDF_TAG_SIZE; i++ {
		if i == 4 {
			continue
		}
		sum += data[i]
	}
	return sum
}

// Unmarshal parses the 16-byte descriptor tag at the front of data and
// verifies that its identifier equals expected. A mismatched identifier fails
// with ErrTagMismatch; a checksum failure fails with ErrMalformedRecord.
func (t *Tag) Unmarshal(data []byte, expected uint16) error {
	if len(data) < consts.UDF_TAG_SIZE {
		return fmt.Errorf("%w: need %d bytes for descriptor tag, have %d",
			ErrMalformedRecord, consts.UDF_TAG_SIZE, len(data))
	}

	t.TagIdentifier = binary.LittleEndian.Uint16(data[0:2])
	t.DescriptorVersion = binary.LittleEndian.Uint16(data[2:4])
	t.TagChecksum = data[4]
	t.TagSerialNumber = binary.LittleEndian.Uint16(data[6:8])
	t.DescriptorCRC = binary.LittleEndian.Uint16(data[8:10])
	t.DescriptorCRCLength = binary.LittleEndian.Uint16(data[10:12])
	t.TagLocation = binary.LittleEndian.Uint32(data[12:16])

	if t.TagIdentifier != expected {
		return fmt.Errorf("%w: expected tag identifier 0x%04x, got 0x%04x",
			ErrTagMismatch, expected, t.TagIdentifier)
	}

	if sum := checksum(data); sum != t.TagChecksum {
		return fmt.Errorf("%w: tag checksum 0x%02x does not match computed 0x%02x",
			ErrMalformedRecord, t.TagChecksum, sum)
	}

	return nil
}

// Peek decodes only the tag identifier from the front of data, without
// validating the rest of the header. The VDS walk uses this to dispatch on
// descriptor kind before committing to a full decode.
func Peek(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: need 2 bytes for tag identifier, have %d",
			ErrMalformedRecord, len(data))
	}
	return binary.LittleEndian.Uint16(data[0:2]), nil
}

// Marshal converts the tag into its 16-byte on-disk representation,
// recomputing the checksum field.
func (t *Tag) Marshal() ([consts.UDF_TAG_SIZE]byte, error) {
	var data [consts.UDF_TAG_SIZE]byte
	binary.LittleEndian.PutUint16(data[0:2], t.TagIdentifier)
	binary.LittleEndian.PutUint16(data[2:4], t.DescriptorVersion)
	binary.LittleEndian.PutUint16(data[6:8], t.TagSerialNumber)
	binary.LittleEndian.PutUint16(data[8:10], t.DescriptorCRC)
	binary.LittleEndian.PutUint16(data[10:12], t.DescriptorCRCLength)
	binary.LittleEndian.PutUint32(data[12:16], t.TagLocation)
	data[4] = checksum(data[:])
	t.TagChecksum = data[4]
	return data, nil
}
