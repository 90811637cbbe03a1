package option

import (
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/go-logr/logr"
)

type ExtractionProgressCallback func(
	currentFilename string,
	bytesTransferred int64,
	totalBytes int64,
	currentFileNumber int,
	totalFileCount int,
)

type OpenOptions struct {
	ParseOnOpen                bool
	IncludeHidden              bool
	IncludeDeleted             bool
	ExtractionProgressCallback ExtractionProgressCallback
	Logger                     *logging.Logger
}

type OpenOption func(*OpenOptions)

// WithExtractionProgress sets a progress callback function that will be called with progress updates.
// Parameters:
// - currentFilename: The name of the file currently being processed.
// - bytesTransferred: The number of bytes transferred so far for the current file.
// - totalBytes: The total number of bytes to be transferred for the current file.
// - currentFileNumber: The index of the current file being processed.
// - totalFileCount: The total number of files to be processed.
func WithExtractionProgress(callback ExtractionProgressCallback) OpenOption {
	return func(o *OpenOptions) {
		o.ExtractionProgressCallback = callback
	}
}

func WithLogger(logger *logging.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logger
	}
}

// WithLogr wraps a raw logr.Logger in the library's Logger type.
func WithLogr(log logr.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logging.NewLogger(log)
	}
}

// WithParseOnOpen sets whether to parse the volume structures when opening.
// If set to false then the image will need to be manually parsed before
// accessing the contents.
func WithParseOnOpen(parseOnOpen bool) OpenOption {
	return func(o *OpenOptions) {
		o.ParseOnOpen = parseOnOpen
	}
}

// WithIncludeHidden sets whether entries with the hidden characteristic are
// included in listings.
func WithIncludeHidden(includeHidden bool) OpenOption {
	return func(o *OpenOptions) {
		o.IncludeHidden = includeHidden
	}
}

// WithIncludeDeleted sets whether entries with the deleted characteristic are
// included in listings.
func WithIncludeDeleted(includeDeleted bool) OpenOption {
	return func(o *OpenOptions) {
		o.IncludeDeleted = includeDeleted
	}
}
