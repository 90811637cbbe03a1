package encoding

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// UDF timestamps are 12 bytes (ECMA-167 1/7.3):
//  | BP 0-1:  type and timezone (type in bits 15-12, offset minutes in bits 11-0)
//  | BP 2-3:  year (signed)
//  | BP 4-9:  month, day, hour, minute, second, centiseconds
//  | BP 10:   hundreds of microseconds
//  | BP 11:   microseconds
const (
	timestampTypeLocal = 1

	// Offset field is a 12-bit two's complement count of minutes. The value
	// -2047 means "no timezone recorded".
	tzOffsetUnspecified = -2047
)

// UnmarshalTimestamp parses a 12-byte UDF timestamp into a time.Time. An
// all-zero date portion yields the zero time. An unspecified timezone is
// interpreted as UTC.
func UnmarshalTimestamp(data [consts.UDF_TIMESTAMP_SIZE]byte) time.Time {
	typeAndTz := binary.LittleEndian.Uint16(data[0:2])
	year := int16(binary.LittleEndian.Uint16(data[2:4]))
	month := data[4]
	day := data[5]
	hour := data[6]
	minute := data[7]
	second := data[8]
	centis := data[9]
	hundredMicros := data[10]
	micros := data[11]

	if year == 0 && month == 0 && day == 0 {
		return time.Time{}
	}

	// Sign-extend the 12-bit offset.
	offset := int16(typeAndTz<<4) >> 4

	loc := time.UTC
	if offset != 0 && offset != tzOffsetUnspecified {
		loc = time.FixedZone("", int(offset)*60)
	}

	nanos := int(centis)*10_000_000 + int(hundredMicros)*100_000 + int(micros)*1_000

	return time.Date(int(year), time.Month(month), int(day),
		int(hour), int(minute), int(second), nanos, loc)
}

// MarshalTimestamp renders t into the 12-byte UDF timestamp layout. The zero
// time marshals to an all-zero field. Sub-microsecond precision is not
// representable and must not be present.
func MarshalTimestamp(t time.Time) ([consts.UDF_TIMESTAMP_SIZE]byte, error) {
	var data [consts.UDF_TIMESTAMP_SIZE]byte
	if t.IsZero() {
		return data, nil
	}

	_, offsetSeconds := t.Zone()
	if offsetSeconds%60 != 0 {
		return data, fmt.Errorf("timezone offset %ds is not a whole number of minutes", offsetSeconds)
	}
	offsetMinutes := offsetSeconds / 60
	if offsetMinutes < -1440 || offsetMinutes > 1440 {
		return data, fmt.Errorf("timezone offset %d minutes out of range", offsetMinutes)
	}

	typeAndTz := uint16(timestampTypeLocal)<<12 | uint16(offsetMinutes)&0x0FFF
	binary.LittleEndian.PutUint16(data[0:2], typeAndTz)
	binary.LittleEndian.PutUint16(data[2:4], uint16(int16(t.Year())))
	data[4] = byte(t.Month())
	data[5] = byte(t.Day())
	data[6] = byte(t.Hour())
	data[7] = byte(t.Minute())
	data[8] = byte(t.Second())

	nanos := t.Nanosecond()
	data[9] = byte(nanos / 10_000_000)
	nanos %= 10_000_000
	data[10] = byte(nanos / 100_000)
	nanos %= 100_000
	data[11] = byte(nanos / 1_000)
	if nanos%1_000 != 0 {
		return data, fmt.Errorf("timestamp precision below 1 microsecond cannot be recorded")
	}

	return data, nil
}

// DecodeDCharacters decodes an OSTA CS0 compressed-unicode byte sequence (as
// found in FID identifiers, where the length is carried separately). The
// first byte selects the compression: 8 for Latin-1 single-byte characters,
// 16 for UTF-16BE. An empty input decodes to the empty string.
func DecodeDCharacters(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	switch data[0] {
	case consts.DSTRING_COMPRESSION_8BIT:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data[1:])
		if err != nil {
			return "", fmt.Errorf("failed to decode 8-bit d-characters: %w", err)
		}
		return string(decoded), nil
	case consts.DSTRING_COMPRESSION_16BIT:
		dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		decoded, err := dec.Bytes(data[1:])
		if err != nil {
			return "", fmt.Errorf("failed to decode 16-bit d-characters: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unknown d-string compression identifier %d", data[0])
	}
}

// DecodeDString decodes a fixed-length OSTA CS0 d-string field, whose final
// byte records how many bytes of the field are in use.
func DecodeDString(field []byte) (string, error) {
	if len(field) == 0 {
		return "", nil
	}
	used := int(field[len(field)-1])
	if used == 0 {
		return "", nil
	}
	if used > len(field)-1 {
		return "", fmt.Errorf("d-string length byte %d exceeds field size %d", used, len(field))
	}
	return DecodeDCharacters(field[:used])
}

// EncodeDCharacters encodes s as OSTA CS0 compressed unicode, choosing 8-bit
// compression when every code point fits in Latin-1 and 16-bit otherwise.
func EncodeDCharacters(s string) []byte {
	if s == "" {
		return nil
	}
	latin1 := true
	for _, r := range s {
		if r > 0xFF {
			latin1 = false
			break
		}
	}
	if latin1 {
		out := make([]byte, 0, len(s)+1)
		out = append(out, consts.DSTRING_COMPRESSION_8BIT)
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, _ := enc.Bytes([]byte(s))
	out := make([]byte, 0, len(encoded)+1)
	out = append(out, consts.DSTRING_COMPRESSION_16BIT)
	out = append(out, encoded...)
	return out
}

// EncodeDString encodes s into a fixed-size d-string field of the given
// length, recording the used byte count in the final byte.
func EncodeDString(s string, size int) ([]byte, error) {
	field := make([]byte, size)
	if s == "" {
		return field, nil
	}
	chars := EncodeDCharacters(s)
	if len(chars) > size-1 {
		return nil, fmt.Errorf("d-string %q does not fit in %d bytes", s, size)
	}
	copy(field, chars)
	field[size-1] = byte(len(chars))
	return field, nil
}
