package descriptor

import (
	"encoding/binary"
	"strings"

	"github.com/bgrewell/udf-kit/pkg/consts"
)

// ExtentAD is a plain (length, location) extent descriptor (ECMA-167 3/7.1):
// a byte length and an absolute logical sector number. It frames the anchor
// pointer's volume descriptor sequences and the LVD's integrity sequence.
type ExtentAD struct {
	Length   uint32 `json:"length"`
	Location uint32 `json:"location"`
}

func (e *ExtentAD) Unmarshal(data []byte) {
	e.Length = binary.LittleEndian.Uint32(data[0:4])
	e.Location = binary.LittleEndian.Uint32(data[4:8])
}

func (e *ExtentAD) Marshal(data []byte) {
	binary.LittleEndian.PutUint32(data[0:4], e.Length)
	binary.LittleEndian.PutUint32(data[4:8], e.Location)
}

// EntityID is a 32-byte regid (ECMA-167 1/7.4) naming an implementation,
// domain, or content type.
type EntityID struct {
	Flags            uint8   `json:"flags"`
	Identifier       [23]byte `json:"identifier"`
	IdentifierSuffix [8]byte  `json:"identifier_suffix"`
}

func (e *EntityID) Unmarshal(data []byte) {
	e.Flags = data[0]
	copy(e.Identifier[:], data[1:24])
	copy(e.IdentifierSuffix[:], data[24:32])
}

func (e *EntityID) Marshal(data []byte) {
	data[0] = e.Flags
	copy(data[1:24], e.Identifier[:])
	copy(data[24:32], e.IdentifierSuffix[:])
}

// IdentifierString returns the identifier bytes as a string with trailing
// NULs removed, e.g. "+NSR03" for a partition contents field.
func (e *EntityID) IdentifierString() string {
	return strings.TrimRight(string(e.Identifier[:]), "\x00")
}

// SetIdentifier fills the identifier bytes from s, NUL padded.
func (e *EntityID) SetIdentifier(s string) {
	e.Identifier = [23]byte{}
	copy(e.Identifier[:], s)
}

// CharSpec is a 64-byte character set specification (ECMA-167 1/7.2.1).
type CharSpec struct {
	CharacterSetType uint8    `json:"character_set_type"`
	CharacterSetInfo [63]byte `json:"character_set_info"`
}

func (c *CharSpec) Unmarshal(data []byte) {
	c.CharacterSetType = data[0]
	copy(c.CharacterSetInfo[:], data[1:consts.UDF_CHARSPEC_SIZE])
}

func (c *CharSpec) Marshal(data []byte) {
	data[0] = c.CharacterSetType
	copy(data[1:consts.UDF_CHARSPEC_SIZE], c.CharacterSetInfo[:])
}
