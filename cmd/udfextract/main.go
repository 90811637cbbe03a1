package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bgrewell/udf-kit"
	"github.com/bgrewell/udf-kit/pkg/helpers"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

var (
	version = "dev"
)

// CreateProgressCallback returns a callback that updates the spinner's
// message, or nil when there is no spinner to update.
func CreateProgressCallback(spinner *yacspin.Spinner) option.ExtractionProgressCallback {
	if spinner == nil {
		return nil
	}
	return func(
		currentFilename string,
		bytesTransferred int64,
		totalBytes int64,
		currentFileNumber int,
		totalFileCount int,
	) {
		// Fetch terminal width
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80 // Default width
		}

		// Define fixed parts of the message
		fixedPart := fmt.Sprintf(" [%d/%d] ", currentFileNumber, totalFileCount)
		suffixPart := fmt.Sprintf(" - %.2f%%", float64(bytesTransferred)/float64(totalBytes)*100)

		// Calculate available space for the filename
		availableSpace := width - len(fixedPart) - len(suffixPart) - 6
		if availableSpace < 10 { // Minimum space to display meaningful filename
			availableSpace = 10
		}

		// Truncate the filename if necessary
		adjustedFilename := helpers.TruncateString(currentFilename, availableSpace)

		percent := float64(bytesTransferred) / float64(totalBytes) * 100
		message := fmt.Sprintf(" [%d/%d] %s - %.2f%%",
			currentFileNumber, totalFileCount, adjustedFilename, percent)

		// Update spinner's suffix (message)
		spinner.Message(message)
	}
}

// InitializeSpinner sets up and starts the yacspin spinner.
func InitializeSpinner() (*yacspin.Spinner, error) {
	// Define spinner options
	settings := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		ShowCursor:        false,
		SpinnerAtEnd:      false,
		CharSet:           yacspin.CharSets[14],
		Colors:            []string{"fgHiCyan"},
		StopColors:        []string{"fgHiGreen"},
		StopFailColors:    []string{"fgHiRed"},
		StopFailCharacter: "✗",
		StopCharacter:     "✓",
	}

	// Create a new spinner
	spinner, err := yacspin.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create spinner: %w", err)
	}

	// Start the spinner
	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start spinner: %w", err)
	}

	return spinner, nil
}

func main() {
	// Extraction options
	hidden := flag.Bool("hidden", false, "Include entries marked hidden")
	deleted := flag.Bool("deleted", false, "Include entries marked deleted")

	// Output directory
	outputDir := flag.String("o", "./extracted", "Output directory for extracted files")

	// Parse flags
	flag.Parse()

	// Setup callback for progress updates
	spinner, err := InitializeSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize spinner: %v\n", err)
		fmt.Fprintf(os.Stderr, "Progress updates will be disabled.\n")
	}

	// Create progress callback
	progressCallback := CreateProgressCallback(spinner)

	// Ensure we have an image path
	if flag.NArg() < 1 {
		fmt.Println("udfextract v" + version)
		fmt.Println("Usage: udfextract [options] <path-to-image>")
		fmt.Println("  -hidden          Include entries marked hidden")
		fmt.Println("  -deleted         Include entries marked deleted")
		fmt.Println("  -o <directory>   Output directory (default './extracted')")
		os.Exit(1)
	}

	// Grab the image path from arguments
	imagePath := flag.Arg(0)

	// Open the UDF image with the specified flags
	img, err := udf.Open(
		imagePath,
		option.WithIncludeHidden(*hidden),
		option.WithIncludeDeleted(*deleted),
		option.WithExtractionProgress(progressCallback),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	// Extract the contents
	if err = img.ExtractFiles(*outputDir); err != nil {
		if spinner != nil {
			spinner.StopFailMessage(fmt.Sprintf("Failed to extract image: %v", err))
			spinner.StopFail()
		} else {
			fmt.Fprintf(os.Stderr, "Failed to extract image: %v\n", err)
		}
		os.Exit(1)
	}

	if spinner != nil {
		spinner.StopMessage(fmt.Sprintf(" All files extracted successfully to %s!", *outputDir))
		spinner.Stop()
	} else {
		fmt.Printf("All files extracted successfully to %s!\n", *outputDir)
	}
}
