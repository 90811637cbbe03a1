package info

import "time"

// VolumeInfo is a flattened summary of the top-level volume descriptors,
// produced after a successful parse for display tooling.
type VolumeInfo struct {
	// Identifiers from the PVD and LVD.
	VolumeIdentifier        string `json:"volume_identifier"`
	VolumeSetIdentifier     string `json:"volume_set_identifier"`
	LogicalVolumeIdentifier string `json:"logical_volume_identifier"`
	FileSetIdentifier       string `json:"file_set_identifier"`
	// Recording time from the PVD.
	RecordingDateAndTime time.Time `json:"recording_date_and_time"`
	// Partition geometry, in logical sectors.
	PartitionNumber   uint16 `json:"partition_number"`
	PartitionStart    uint32 `json:"partition_start"`
	PartitionLength   uint32 `json:"partition_length"`
	PartitionContents string `json:"partition_contents"`
	// Metadata partition indirection, when a type 2 map is present.
	HasMetadataPartition bool   `json:"has_metadata_partition"`
	MetadataOffset       uint32 `json:"metadata_offset"`
	// Logical block size in bytes.
	BlockSize uint32 `json:"block_size"`
}
