package pkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgrewell/udf-kit/pkg/filesystem"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf/icb"
	"github.com/bgrewell/udf-kit/pkg/udf/info"
	"github.com/bgrewell/udf-kit/pkg/udf/parser"
)

// UDFImage represents a UDF volume image. The image file is owned
// exclusively by this value for its lifetime and all access to it is
// sequential and single-threaded.
type UDFImage struct {
	Options option.OpenOptions

	imageFile *os.File
	parser    *parser.Parser
	logger    *logging.Logger
}

// Open opens an existing UDF image file
func (u *UDFImage) Open(location string) (err error) {

	u.logger = u.Options.Logger
	if u.logger == nil {
		u.logger = logging.DefaultLogger()
	}

	u.imageFile, err = os.Open(location)
	if err != nil {
		return err
	}

	u.parser = parser.NewParser(u.imageFile, &u.Options)

	// Parse the volume structures if requested
	if u.Options.ParseOnOpen {
		if err = u.Parse(); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the UDF image file
func (u *UDFImage) Close() error {
	if u.imageFile == nil {
		return nil
	}
	return u.imageFile.Close()
}

// Parse parses the volume structures within the UDF image
func (u *UDFImage) Parse() error {
	if u.imageFile == nil {
		return errors.New("image file is not open")
	}
	return u.parser.Parse()
}

// Parsed reports whether the volume structures have been parsed
func (u *UDFImage) Parsed() bool {
	return u.parser != nil && u.parser.Parsed()
}

// String returns a short human-readable summary of the volume
func (u *UDFImage) String() string {
	if !u.Parsed() {
		return "UDF image (unparsed)"
	}
	vi := u.parser.VolumeInfo()
	return fmt.Sprintf("UDF image %q (set %q, partition %d at sector %d)",
		vi.VolumeIdentifier, vi.VolumeSetIdentifier, vi.PartitionNumber, vi.PartitionStart)
}

// VolumeInfo returns a flattened summary of the parsed volume descriptors
func (u *UDFImage) VolumeInfo() *info.VolumeInfo {
	if !u.Parsed() {
		return nil
	}
	return u.parser.VolumeInfo()
}

// RootDirectory returns the root directory's decoded ICB
func (u *UDFImage) RootDirectory() (*icb.ICB, error) {
	if !u.Parsed() {
		return nil, errors.New("image is not parsed")
	}
	return u.parser.RootDirectory()
}

// entryFromChild builds a flattened entry for one directory child.
func (u *UDFImage) entryFromChild(name, fullPath string, child *icb.ICB) *filesystem.FileSystemEntry {
	entry := &filesystem.FileSystemEntry{
		Name:     name,
		FullPath: fullPath,
		IsDir:    child.IsDirectory(),
		Mode:     child.Mode(),
		ICB:      child,
	}
	if fe := child.FileEntry; fe != nil {
		if !entry.IsDir {
			entry.Size = fe.InformationLength
		}
		entry.UID = fe.UID
		entry.GID = fe.GID
		entry.ModTime = fe.ModificationTime
	}
	if descs, err := child.AllocationDescriptors(); err != nil {
		u.logger.Warn("failed to decode allocation descriptors", "entry", fullPath, "error", err)
	} else if len(descs) > 0 {
		entry.Location = descs[0].BlockNumber()
	}
	return entry
}

// walk recurses through dir's FID stream, appending one entry per child and
// descending into subdirectories.
func (u *UDFImage) walk(dir *icb.ICB, prefix string, entries *[]*filesystem.FileSystemEntry) error {
	fids, err := u.parser.ReadDirectory(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", prefix, err)
	}

	for _, fid := range fids {
		if fid.IsParent() {
			continue
		}
		if fid.IsDeleted() && !u.Options.IncludeDeleted {
			continue
		}
		if fid.IsHidden() && !u.Options.IncludeHidden {
			continue
		}

		name, err := fid.Name()
		if err != nil {
			return fmt.Errorf("failed to decode entry name in %q: %w", prefix, err)
		}
		if name == "" {
			continue
		}

		child, err := u.parser.ReadChild(fid)
		if err != nil {
			return fmt.Errorf("failed to read ICB for %q: %w", name, err)
		}
		if child.Terminal {
			continue
		}

		fullPath := name
		if prefix != "" {
			fullPath = prefix + "/" + name
		}
		entry := u.entryFromChild(name, fullPath, child)
		entry.FileIdentifier = fid
		*entries = append(*entries, entry)

		if child.IsDirectory() {
			if err := u.walk(child, fullPath, entries); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetAllEntries returns every file and directory on the volume, flattened
// with full paths
func (u *UDFImage) GetAllEntries() ([]*filesystem.FileSystemEntry, error) {
	root, err := u.RootDirectory()
	if err != nil {
		return nil, err
	}
	var entries []*filesystem.FileSystemEntry
	if err := u.walk(root, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile returns the content bytes of the file at the given /-separated
// path
func (u *UDFImage) ReadFile(path string) ([]byte, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, errors.New("path names the root directory, not a file")
	}

	current, err := u.RootDirectory()
	if err != nil {
		return nil, err
	}

	components := strings.Split(path, "/")
	for i, component := range components {
		fids, err := u.parser.ReadDirectory(current)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %q: %w",
				strings.Join(components[:i], "/"), err)
		}

		var next *icb.ICB
		for _, fid := range fids {
			if fid.IsParent() || (fid.IsDeleted() && !u.Options.IncludeDeleted) {
				continue
			}
			name, err := fid.Name()
			if err != nil {
				return nil, err
			}
			if name != component {
				continue
			}
			if next, err = u.parser.ReadChild(fid); err != nil {
				return nil, fmt.Errorf("failed to read ICB for %q: %w", component, err)
			}
			break
		}
		if next == nil {
			return nil, fmt.Errorf("path component %q not found", component)
		}

		last := i == len(components)-1
		if !last && !next.IsDirectory() {
			return nil, fmt.Errorf("path component %q is not a directory", component)
		}
		if last && next.IsDirectory() {
			return nil, fmt.Errorf("%q is a directory, not a file", path)
		}
		current = next
	}

	return u.parser.ReadContent(current)
}

// ExtractFiles writes every file on the volume below outputLocation,
// recreating the directory tree
func (u *UDFImage) ExtractFiles(outputLocation string) error {
	entries, err := u.GetAllEntries()
	if err != nil {
		return err
	}

	totalFiles := 0
	for _, entry := range entries {
		if !entry.IsDir {
			totalFiles++
		}
	}

	fileNumber := 0
	for _, entry := range entries {
		target := filepath.Join(outputLocation, filepath.FromSlash(entry.FullPath))

		if entry.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
			continue
		}

		fileNumber++
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", target, err)
		}

		content, err := u.parser.ReadContent(entry.ICB)
		if err != nil {
			return fmt.Errorf("failed to read content of %q: %w", entry.FullPath, err)
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", target, err)
		}

		if cb := u.Options.ExtractionProgressCallback; cb != nil {
			cb(entry.FullPath, int64(len(content)), int64(len(content)), fileNumber, totalFiles)
		}
		u.logger.Debug("extracted file", "path", entry.FullPath, "bytes", len(content))
	}

	return nil
}
