package descriptor

import "errors"

var (
	// ErrTagMismatch is returned when a descriptor's tag identifier does not
	// match the kind the calling decoder expects. Every higher-level decoder
	// performs this check before trusting the rest of the block.
	ErrTagMismatch = errors.New("descriptor tag identifier mismatch")

	// ErrMalformedRecord is returned when a descriptor cannot be decoded from
	// the bytes available, e.g. a truncated record or a failed length check.
	ErrMalformedRecord = errors.New("malformed descriptor record")

	// ErrBlockSizeMismatch is returned when the Logical Volume Descriptor
	// declares a logical block size other than the fixed 2048-byte size this
	// library is built around.
	ErrBlockSizeMismatch = errors.New("logical block size mismatch")
)
