package main

import (
	"crypto/md5"
	"fmt"
	"os"

	"github.com/bgrewell/udf-kit"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/usage"
)

func main() {

	u := usage.NewUsage(
		usage.WithApplicationName("open_and_list"),
		usage.WithApplicationDescription("open_and_list is a functional testing application that is part of udf-kit and is designed to verify that the open, parse and traversal logic of udf-kit is working as expected."),
	)
	help := u.AddBooleanOption("h", "help", false, "Display this help message", "", nil)
	hidden := u.AddBooleanOption("hidden", "include-hidden", false, "Include entries marked hidden", "", nil)
	input := u.AddArgument(1, "input", "The input UDF image to run the tests against", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if input == nil || *input == "" {
		u.PrintError(fmt.Errorf("the input image <input> must be provided"))
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.NewSimpleLogger(os.Stderr, logging.LEVEL_TRACE, true))

	img, err := udf.Open(*input,
		option.WithIncludeHidden(*hidden),
		option.WithLogger(logger))
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer img.Close()

	fmt.Println(img.String())

	entries, err := img.GetAllEntries()
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	var fileCount, dirCount int
	var totalBytes uint64
	for _, entry := range entries {
		if entry.IsDir {
			dirCount++
			fmt.Printf("%-32s  %s/\n", "", entry.FullPath)
			continue
		}
		fileCount++
		totalBytes += entry.Size

		// Read every file back so the traversal and content paths both get
		// exercised; the digest makes runs comparable across changes.
		content, err := img.ReadFile(entry.FullPath)
		if err != nil {
			u.PrintError(fmt.Errorf("failed to read %q: %w", entry.FullPath, err))
			os.Exit(1)
		}
		if uint64(len(content)) != entry.Size {
			u.PrintError(fmt.Errorf("size mismatch for %q: entry says %d, read %d",
				entry.FullPath, entry.Size, len(content)))
			os.Exit(1)
		}
		fmt.Printf("%x  %s\n", md5.Sum(content), entry.FullPath)
	}

	fmt.Printf("\n%d files, %d directories, %d bytes\n", fileCount, dirCount, totalBytes)
}
