package allocation

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
)

var (
	// ErrUnknownAllocType is returned when an ICB's flags select an
	// allocation descriptor format outside short/long/extended. Malformed
	// input is an expected case for a format decoder, so this is never a
	// panic path.
	ErrUnknownAllocType = errors.New("unknown allocation descriptor type")

	// ErrInsufficientBytes is returned when the remaining input cannot hold
	// one more descriptor of the selected format. Callers iterating a
	// descriptor blob treat this as the normal termination condition.
	ErrInsufficientBytes = errors.New("insufficient bytes for allocation descriptor")
)

// AllocType selects the on-disk format of an allocation descriptor. It is
// carried in the low four bits of an ICB tag's flags field.
type AllocType uint8

const (
	ALLOC_TYPE_SHORT    AllocType = 0
	ALLOC_TYPE_LONG     AllocType = 1
	ALLOC_TYPE_EXTENDED AllocType = 2

	// Mask over an ICB tag flags field selecting the allocation type
	// (flags bits 3-0).
	ICB_FLAGS_ALLOC_TYPE_MASK = 0x000F
)

// AllocTypeFromFlags extracts the allocation type selector from an ICB tag
// flags field, failing with ErrUnknownAllocType for the reserved value 3 and
// anything above.
func AllocTypeFromFlags(flags uint16) (AllocType, error) {
	ty := AllocType(flags & ICB_FLAGS_ALLOC_TYPE_MASK)
	switch ty {
	case ALLOC_TYPE_SHORT, ALLOC_TYPE_LONG, ALLOC_TYPE_EXTENDED:
		return ty, nil
	default:
		return 0, fmt.Errorf("%w: ICB flags select allocation type %d", ErrUnknownAllocType, ty)
	}
}

// ExtentType classifies an extent (ECMA-167 4/14.14.1.1). It is packed with
// the extent length into one 32-bit field and is never valid independently of
// that field.
type ExtentType uint8

const (
	// Extent recorded and allocated.
	EXTENT_RECORDED ExtentType = 0
	// Extent allocated but not recorded.
	EXTENT_NOT_RECORDED ExtentType = 1
	// Extent neither allocated nor recorded: a hole.
	EXTENT_NOT_ALLOCATED ExtentType = 2
	// The extent locates the next block of allocation descriptors, not data.
	EXTENT_NEXT_DESCRIPTOR ExtentType = 3
)

// Bit layout of the packed length field shared by every descriptor variant:
// the top two bits carry the extent type, the low thirty the byte length.
const (
	EXTENT_TYPE_SHIFT  = 30
	EXTENT_LENGTH_MASK = 0x3FFF_FFFF
)

// SplitExtentLength decodes a packed 32-bit length field into its extent type
// and byte length. The two values must always be produced together; decoding
// either alone misreads the field.
func SplitExtentLength(packed uint32) (ExtentType, uint32) {
	return ExtentType(packed >> EXTENT_TYPE_SHIFT), packed & EXTENT_LENGTH_MASK
}

// PackExtentLength is the inverse of SplitExtentLength.
func PackExtentLength(ty ExtentType, length uint32) uint32 {
	return uint32(ty)<<EXTENT_TYPE_SHIFT | length&EXTENT_LENGTH_MASK
}

// LBAddr is a partition-relative logical block address (ECMA-167 4/7.1).
type LBAddr struct {
	// Logical Block Number, relative to the start of the referenced partition.
	LogicalBlockNumber uint32 `json:"logical_block_number"`
	// Partition Reference Number, an index into the LVD's partition maps.
	PartitionReferenceNumber uint16 `json:"partition_reference_number"`
}

func (a *LBAddr) Unmarshal(data []byte) {
	a.LogicalBlockNumber = binary.LittleEndian.Uint32(data[0:4])
	a.PartitionReferenceNumber = binary.LittleEndian.Uint16(data[4:6])
}

func (a *LBAddr) Marshal(data []byte) {
	binary.LittleEndian.PutUint32(data[0:4], a.LogicalBlockNumber)
	binary.LittleEndian.PutUint16(data[4:6], a.PartitionReferenceNumber)
}

// Descriptor is the common read surface over the three allocation descriptor
// variants: an extent type, a byte length, and a partition-relative block
// number.
type Descriptor interface {
	// ExtentType classifies the extent per the packed length field.
	ExtentType() ExtentType
	// Length is the extent's byte length per the packed length field.
	Length() uint32
	// BlockNumber is the partition-relative logical block number of the
	// extent's first block.
	BlockNumber() uint32
}

// ShortAD is an 8-byte short allocation descriptor (ECMA-167 4/14.14.1): a
// packed length and a partition-relative block number.
type ShortAD struct {
	Type               ExtentType `json:"type"`
	ExtentLength       uint32     `json:"extent_length"`
	LogicalBlockNumber uint32     `json:"logical_block_number"`
}

func (s *ShortAD) ExtentType() ExtentType { return s.Type }
func (s *ShortAD) Length() uint32         { return s.ExtentLength }
func (s *ShortAD) BlockNumber() uint32    { return s.LogicalBlockNumber }

func (s *ShortAD) Unmarshal(data []byte) error {
	if len(data) < consts.UDF_SHORT_AD_SIZE {
		return fmt.Errorf("%w: need %d bytes for a short descriptor, have %d",
			ErrInsufficientBytes, consts.UDF_SHORT_AD_SIZE, len(data))
	}
	s.Type, s.ExtentLength = SplitExtentLength(binary.LittleEndian.Uint32(data[0:4]))
	s.LogicalBlockNumber = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

func (s *ShortAD) Marshal() ([consts.UDF_SHORT_AD_SIZE]byte, error) {
	var data [consts.UDF_SHORT_AD_SIZE]byte
	binary.LittleEndian.PutUint32(data[0:4], PackExtentLength(s.Type, s.ExtentLength))
	binary.LittleEndian.PutUint32(data[4:8], s.LogicalBlockNumber)
	return data, nil
}

// LongAD is a 16-byte long allocation descriptor (ECMA-167 4/14.14.2): a
// packed length, a full logical block address, and six implementation-use
// bytes.
type LongAD struct {
	Type              ExtentType `json:"type"`
	ExtentLength      uint32     `json:"extent_length"`
	ExtentLocation    LBAddr     `json:"extent_location"`
	ImplementationUse [6]byte    `json:"implementation_use"`
}

func (l *LongAD) ExtentType() ExtentType { return l.Type }
func (l *LongAD) Length() uint32         { return l.ExtentLength }
func (l *LongAD) BlockNumber() uint32    { return l.ExtentLocation.LogicalBlockNumber }

func (l *LongAD) Unmarshal(data []byte) error {
	if len(data) < consts.UDF_LONG_AD_SIZE {
		return fmt.Errorf("%w: need %d bytes for a long descriptor, have %d",
			ErrInsufficientBytes, consts.UDF_LONG_AD_SIZE, len(data))
	}
	l.Type, l.ExtentLength = SplitExtentLength(binary.LittleEndian.Uint32(data[0:4]))
	l.ExtentLocation.Unmarshal(data[4:10])
	copy(l.ImplementationUse[:], data[10:16])
	return nil
}

func (l *LongAD) Marshal() ([consts.UDF_LONG_AD_SIZE]byte, error) {
	var data [consts.UDF_LONG_AD_SIZE]byte
	binary.LittleEndian.PutUint32(data[0:4], PackExtentLength(l.Type, l.ExtentLength))
	l.ExtentLocation.Marshal(data[4:10])
	copy(data[10:16], l.ImplementationUse[:])
	return data, nil
}

// ExtendedAD is a 20-byte extended allocation descriptor (ECMA-167
// 4/14.14.3). It separates the recorded length from the extent length, and
// carries an information length on top of both.
type ExtendedAD struct {
	Type              ExtentType `json:"type"`
	ExtentLength      uint32     `json:"extent_length"`
	RecordedType      ExtentType `json:"recorded_type"`
	RecordedLength    uint32     `json:"recorded_length"`
	InformationLength uint32     `json:"information_length"`
	ExtentLocation    LBAddr     `json:"extent_location"`
	ImplementationUse [2]byte    `json:"implementation_use"`
}

func (e *ExtendedAD) ExtentType() ExtentType { return e.Type }
func (e *ExtendedAD) Length() uint32         { return e.ExtentLength }
func (e *ExtendedAD) BlockNumber() uint32    { return e.ExtentLocation.LogicalBlockNumber }

func (e *ExtendedAD) Unmarshal(data []byte) error {
	if len(data) < consts.UDF_EXTENDED_AD_SIZE {
		return fmt.Errorf("%w: need %d bytes for an extended descriptor, have %d",
			ErrInsufficientBytes, consts.UDF_EXTENDED_AD_SIZE, len(data))
	}
	e.Type, e.ExtentLength = SplitExtentLength(binary.LittleEndian.Uint32(data[0:4]))
	e.RecordedType, e.RecordedLength = SplitExtentLength(binary.LittleEndian.Uint32(data[4:8]))
	e.InformationLength = binary.LittleEndian.Uint32(data[8:12])
	e.ExtentLocation.Unmarshal(data[12:18])
	copy(e.ImplementationUse[:], data[18:20])
	return nil
}

func (e *ExtendedAD) Marshal() ([consts.UDF_EXTENDED_AD_SIZE]byte, error) {
	var data [consts.UDF_EXTENDED_AD_SIZE]byte
	binary.LittleEndian.PutUint32(data[0:4], PackExtentLength(e.Type, e.ExtentLength))
	binary.LittleEndian.PutUint32(data[4:8], PackExtentLength(e.RecordedType, e.RecordedLength))
	binary.LittleEndian.PutUint32(data[8:12], e.InformationLength)
	e.ExtentLocation.Marshal(data[12:18])
	copy(data[18:20], e.ImplementationUse[:])
	return data, nil
}

// Decode parses one allocation descriptor of the format selected by ty from
// the front of data and returns it along with the unconsumed remainder.
// Insufficient input fails with ErrInsufficientBytes; an out-of-range ty
// fails with ErrUnknownAllocType.
func Decode(ty AllocType, data []byte) (Descriptor, []byte, error) {
	switch ty {
	case ALLOC_TYPE_SHORT:
		ad := &ShortAD{}
		if err := ad.Unmarshal(data); err != nil {
			return nil, data, err
		}
		return ad, data[consts.UDF_SHORT_AD_SIZE:], nil
	case ALLOC_TYPE_LONG:
		ad := &LongAD{}
		if err := ad.Unmarshal(data); err != nil {
			return nil, data, err
		}
		return ad, data[consts.UDF_LONG_AD_SIZE:], nil
	case ALLOC_TYPE_EXTENDED:
		ad := &ExtendedAD{}
		if err := ad.Unmarshal(data); err != nil {
			return nil, data, err
		}
		return ad, data[consts.UDF_EXTENDED_AD_SIZE:], nil
	default:
		return nil, data, fmt.Errorf("%w: type %d", ErrUnknownAllocType, ty)
	}
}

// DecodeAll iterates the descriptor blob to exhaustion, appending each
// decoded descriptor in order. Running out of bytes is the format's iteration
// terminator, not an error; the blob carries no explicit count.
func DecodeAll(ty AllocType, data []byte) ([]Descriptor, error) {
	// Validate the selector up front so an empty blob with a reserved
	// selector still fails.
	if ty != ALLOC_TYPE_SHORT && ty != ALLOC_TYPE_LONG && ty != ALLOC_TYPE_EXTENDED {
		return nil, fmt.Errorf("%w: type %d", ErrUnknownAllocType, ty)
	}
	var out []Descriptor
	for {
		ad, rest, err := Decode(ty, data)
		if err != nil {
			if errors.Is(err, ErrInsufficientBytes) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, ad)
		data = rest
	}
}
