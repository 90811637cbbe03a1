package consts

const (
	// UDF logical block (sector) size. The LVD's declared block size is
	// verified against this at decode time.
	UDF_SECTOR_SIZE = 2048

	// Absolute sector holding the Anchor Volume Descriptor Pointer.
	UDF_ANCHOR_SECTOR = 256

	// Size of the common descriptor tag at the front of every descriptor.
	UDF_TAG_SIZE = 16

	// Fixed portion of a File Identifier Descriptor, before the
	// implementation-use and identifier fields.
	UDF_FID_FIXED_SIZE = 38

	// File Identifier Descriptor records are padded to this boundary.
	UDF_FID_PADDING = 4

	// On-disk sizes of the allocation descriptor variants.
	UDF_SHORT_AD_SIZE    = 8
	UDF_LONG_AD_SIZE     = 16
	UDF_EXTENDED_AD_SIZE = 20

	// Declared lengths of the recognized partition map variants.
	UDF_PARTITION_MAP_TYPE1_SIZE = 6
	UDF_PARTITION_MAP_TYPE2_SIZE = 64

	// Sizes of fields shared across several descriptors.
	UDF_ENTITY_ID_SIZE = 32
	UDF_CHARSPEC_SIZE  = 64
	UDF_TIMESTAMP_SIZE = 12
)

// Tag identifiers for the volume descriptor sequence (ECMA-167 part 3).
const (
	TAG_PRIMARY_VOLUME_DESCRIPTOR     = 0x0001
	TAG_ANCHOR_VOLUME_POINTER         = 0x0002
	TAG_VOLUME_POINTER                = 0x0003
	TAG_IMPLEMENTATION_USE_DESCRIPTOR = 0x0004
	TAG_PARTITION_DESCRIPTOR          = 0x0005
	TAG_LOGICAL_VOLUME_DESCRIPTOR     = 0x0006
	TAG_UNALLOCATED_SPACE_DESCRIPTOR  = 0x0007
	TAG_TERMINATING_DESCRIPTOR        = 0x0008
	TAG_LOGICAL_VOLUME_INTEGRITY      = 0x0009
)

// Tag identifiers for the file structure (ECMA-167 part 4).
const (
	TAG_FILE_SET_DESCRIPTOR          = 0x0100
	TAG_FILE_IDENTIFIER_DESCRIPTOR   = 0x0101
	TAG_ALLOCATION_EXTENT_DESCRIPTOR = 0x0102
	TAG_INDIRECT_ENTRY               = 0x0103
	TAG_TERMINAL_ENTRY               = 0x0104
	TAG_FILE_ENTRY                   = 0x0105
	TAG_EXTENDED_ATTRIBUTE_HEADER    = 0x0106
	TAG_UNALLOCATED_SPACE_ENTRY      = 0x0107
	TAG_SPACE_BITMAP_DESCRIPTOR      = 0x0108
	TAG_PARTITION_INTEGRITY_ENTRY    = 0x0109
	TAG_EXTENDED_FILE_ENTRY          = 0x010A
)

// Partition map types (leading type byte of each map entry).
const (
	PARTITION_MAP_UNKNOWN = 0
	PARTITION_MAP_TYPE_1  = 1
	PARTITION_MAP_TYPE_2  = 2
)

// OSTA CS0 d-string compression identifiers.
const (
	DSTRING_COMPRESSION_8BIT  = 8
	DSTRING_COMPRESSION_16BIT = 16
)
