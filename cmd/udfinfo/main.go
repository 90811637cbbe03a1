package main

import (
	"fmt"
	"os"

	"github.com/bgrewell/udf-kit"
	"github.com/bgrewell/usage"
)

func main() {

	u := usage.NewUsage()
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	path := u.AddArgument(1, "image-path", "Path to the UDF image file", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the image file <image-path> must be provided"))
		os.Exit(1)
	}

	img, err := udf.Open(*path)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer img.Close()

	vi := img.VolumeInfo()
	fmt.Printf("Volume Identifier:         %s\n", vi.VolumeIdentifier)
	fmt.Printf("Volume Set Identifier:     %s\n", vi.VolumeSetIdentifier)
	fmt.Printf("Logical Volume Identifier: %s\n", vi.LogicalVolumeIdentifier)
	fmt.Printf("File Set Identifier:       %s\n", vi.FileSetIdentifier)
	if !vi.RecordingDateAndTime.IsZero() {
		fmt.Printf("Recorded:                  %s\n", vi.RecordingDateAndTime)
	}
	fmt.Printf("Block Size:                %d\n", vi.BlockSize)
	fmt.Printf("Partition:                 %d (contents %s)\n", vi.PartitionNumber, vi.PartitionContents)
	fmt.Printf("Partition Extent:          sectors %d-%d\n", vi.PartitionStart, vi.PartitionStart+vi.PartitionLength-1)
	if vi.HasMetadataPartition {
		fmt.Printf("Metadata Offset:           %d\n", vi.MetadataOffset)
	}
}
