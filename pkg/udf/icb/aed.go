package icb

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
)

// AllocationExtentDescriptor heads a continuation block of allocation
// descriptors (ECMA-167 4/14.5), reached through an extent whose type marks
// "next descriptor block". The traversal engine does not follow such chains;
// it surfaces them as a multiple-extent failure instead of truncating, but
// the record itself decodes here so callers can inspect one.
type AllocationExtentDescriptor struct {
	Tag descriptor.Tag `json:"tag"`
	// Previous Allocation Extent Location, 0 when there is none.
	PreviousAllocationExtentLocation uint32 `json:"previous_allocation_extent_location"`
	// Length Of Allocation Descriptors following this record, in bytes.
	LengthOfAllocationDescriptors uint32 `json:"length_of_allocation_descriptors"`
}

func (a *AllocationExtentDescriptor) Unmarshal(data []byte) error {
	if err := a.Tag.Unmarshal(data, consts.TAG_ALLOCATION_EXTENT_DESCRIPTOR); err != nil {
		return fmt.Errorf("failed to unmarshal allocation extent descriptor tag: %w", err)
	}
	if len(data) < 24 {
		return fmt.Errorf("%w: allocation extent descriptor needs 24 bytes, have %d",
			descriptor.ErrMalformedRecord, len(data))
	}
	a.PreviousAllocationExtentLocation = binary.LittleEndian.Uint32(data[16:20])
	a.LengthOfAllocationDescriptors = binary.LittleEndian.Uint32(data[20:24])
	return nil
}

func (a *AllocationExtentDescriptor) Marshal() ([24]byte, error) {
	var data [24]byte
	a.Tag.TagIdentifier = consts.TAG_ALLOCATION_EXTENT_DESCRIPTOR
	tag, err := a.Tag.Marshal()
	if err != nil {
		return data, err
	}
	copy(data[0:16], tag[:])
	binary.LittleEndian.PutUint32(data[16:20], a.PreviousAllocationExtentLocation)
	binary.LittleEndian.PutUint32(data[20:24], a.LengthOfAllocationDescriptors)
	return data, nil
}
