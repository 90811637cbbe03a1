package main

import (
	"fmt"
	"os"

	"github.com/bgrewell/udf-kit"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/usage"
)

func main() {

	u := usage.NewUsage()
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "", nil)
	long := u.AddBooleanOption("l", "long", false, "Print sizes and modes", "", nil)
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

	opts := []option.OpenOption{}
	if *verbose {
		opts = append(opts,
			option.WithLogr(logging.NewSimpleLogger(os.Stderr, logging.LEVEL_TRACE, true)))
	}

	img, err := udf.Open(*path, opts...)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer img.Close()

	entries, err := img.GetAllEntries()
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}

	for _, entry := range entries {
		if *long {
			fmt.Printf("%s %10d %s\n", entry.Mode, entry.Size, entry.FullPath)
			continue
		}
		suffix := ""
		if entry.IsDir {
			suffix = "/"
		}
		fmt.Printf("%s%s\n", entry.FullPath, suffix)
	}
}
