package udf

import (
	"github.com/bgrewell/udf-kit/pkg"
	"github.com/bgrewell/udf-kit/pkg/filesystem"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf/icb"
	"github.com/bgrewell/udf-kit/pkg/udf/info"
)

// Open opens an existing UDF image file
func Open(location string, opts ...option.OpenOption) (Image, error) {
	// Set default options
	options := option.OpenOptions{
		ParseOnOpen: true,
		Logger:      logging.DefaultLogger(),
	}

	// Apply options
	for _, opt := range opts {
		opt(&options)
	}

	img := &pkg.UDFImage{Options: options}
	if err := img.Open(location); err != nil {
		return nil, err
	}
	return img, nil
}

// Image represents a read-only UDF volume image
type Image interface {
	Open(location string) error
	Parse() error
	Parsed() bool
	Close() error
	String() string
	VolumeInfo() *info.VolumeInfo
	RootDirectory() (*icb.ICB, error)
	GetAllEntries() ([]*filesystem.FileSystemEntry, error)
	ReadFile(path string) ([]byte, error)
	ExtractFiles(outputLocation string) error
}
