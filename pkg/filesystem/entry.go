package filesystem

import (
	"os"
	"time"

	"github.com/bgrewell/udf-kit/pkg/udf/directory"
	"github.com/bgrewell/udf-kit/pkg/udf/icb"
)

type FileSystemEntry struct {
	// The name of the file or directory
	Name string `json:"name"`
	// Full path, e.g., "dir/subdir/file.txt"
	FullPath string `json:"full_path"`
	// IsDir, true if it's a directory
	IsDir bool `json:"is_dir"`
	// Size of the file in bytes, 0 if it's a directory
	Size uint64 `json:"size"`
	// Partition-relative logical block of the entry's first content extent
	Location uint32 `json:"location"`
	// UID, userid of the file/directory
	UID uint32 `json:"uid"`
	// GID, groupid of the file/directory
	GID uint32 `json:"gid"`
	// Mode, permissions of the file/directory
	Mode os.FileMode
	// ModTime
	ModTime time.Time
	// Original directory entry record
	FileIdentifier *directory.FileIdentifierDescriptor
	// Decoded information control block of the entry
	ICB *icb.ICB
}
