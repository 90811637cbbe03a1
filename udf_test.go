package udf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/filesystem"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/directory"
	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
	"github.com/bgrewell/udf-kit/pkg/udf/fileset"
	"github.com/bgrewell/udf-kit/pkg/udf/icb"
	"github.com/stretchr/testify/require"
)

const (
	imagePartitionStart = 280
	licenseContent      = "Copyright (c) 2024. All rights reserved.\n"
	notesContent        = "remember to update the release notes\n"
)

// writeTestImage builds a small volume image on disk:
//
//	/LICENSE.md
//	/secret.txt   (hidden)
//	/docs/notes.txt
func writeTestImage(t *testing.T) string {
	t.Helper()

	sectors := map[uint32][]byte{}
	putBlock := func(lbn uint32, data []byte) {
		require.LessOrEqual(t, len(data), consts.UDF_SECTOR_SIZE)
		sectors[imagePartitionStart+lbn] = data
	}

	avdp := &descriptor.AnchorVolumeDescriptorPointer{
		MainVolumeDescriptorSequence: descriptor.ExtentAD{
			Length:   8 * consts.UDF_SECTOR_SIZE,
			Location: 257,
		},
	}
	anchorData, err := avdp.Marshal()
	require.NoError(t, err)
	sectors[consts.UDF_ANCHOR_SECTOR] = anchorData[:]

	pvd := &descriptor.PrimaryVolumeDescriptor{
		VolumeIdentifier:     "TESTVOL",
		VolumeSetIdentifier:  "0123456789TESTVOL",
		VolumeSequenceNumber: 1,
	}
	pvdData, err := pvd.Marshal()
	require.NoError(t, err)
	sectors[257] = pvdData[:]

	pd := &descriptor.PartitionDescriptor{
		AccessType:                1,
		PartitionStartingLocation: imagePartitionStart,
		PartitionLength:           4096,
	}
	pd.PartitionContents.SetIdentifier("+NSR03")
	pdData, err := pd.Marshal()
	require.NoError(t, err)
	sectors[258] = pdData[:]

	lvd := &descriptor.LogicalVolumeDescriptor{
		LogicalVolumeIdentifier: "TESTVOL",
		LogicalBlockSize:        consts.UDF_SECTOR_SIZE,
		PartitionMaps: []descriptor.PartitionMap{
			{Type1: &descriptor.Type1PartitionMap{VolumeSequenceNumber: 1}},
		},
	}
	lvd.DomainIdentifier.SetIdentifier("*OSTA UDF Compliant")
	fsdPointer := &allocation.LongAD{
		Type:         allocation.EXTENT_RECORDED,
		ExtentLength: consts.UDF_SECTOR_SIZE,
	}
	pointerBytes, err := fsdPointer.Marshal()
	require.NoError(t, err)
	copy(lvd.LogicalVolumeContentsUse[:], pointerBytes[:])
	lvdData, err := lvd.Marshal()
	require.NoError(t, err)
	sectors[259] = lvdData[:]

	td := &descriptor.TerminatingDescriptor{}
	tdData, err := td.Marshal()
	require.NoError(t, err)
	sectors[260] = tdData[:]

	fsd := &fileset.FileSetDescriptor{
		LogicalVolumeIdentifier: "TESTVOL",
		FileSetIdentifier:       "TESTFS",
		RootDirectoryICB: allocation.LongAD{
			Type:         allocation.EXTENT_RECORDED,
			ExtentLength: consts.UDF_SECTOR_SIZE,
			ExtentLocation: allocation.LBAddr{
				LogicalBlockNumber: 1,
			},
		},
	}
	fsd.DomainIdentifier.SetIdentifier("*OSTA UDF Compliant")
	fsdData, err := fsd.Marshal()
	require.NoError(t, err)
	putBlock(0, fsdData[:])

	marshalICB := func(fileType icb.FileType, infoLength uint64, ads ...allocation.ShortAD) []byte {
		var blob []byte
		for i := range ads {
			adData, err := ads[i].Marshal()
			require.NoError(t, err)
			blob = append(blob, adData[:]...)
		}
		entry := &icb.ICB{
			ICBTag: icb.ICBTag{
				StrategyType: 4,
				FileType:     fileType,
				Flags:        uint16(allocation.ALLOC_TYPE_SHORT),
			},
			FileEntry: &icb.FileEntry{
				Permissions:               0o5<<10 | 0o5<<5 | 0o5,
				FileLinkCount:             1,
				InformationLength:         infoLength,
				AllocationDescriptorBytes: blob,
			},
		}
		data, err := entry.Marshal()
		require.NoError(t, err)
		return data[:]
	}

	marshalFID := func(name string, block uint32, characteristics uint8) []byte {
		fid := &directory.FileIdentifierDescriptor{
			FileVersionNumber:   1,
			FileCharacteristics: characteristics,
			ICB: allocation.LongAD{
				Type:         allocation.EXTENT_RECORDED,
				ExtentLength: consts.UDF_SECTOR_SIZE,
				ExtentLocation: allocation.LBAddr{
					LogicalBlockNumber: block,
				},
			},
			FileIdentifier: encoding.EncodeDCharacters(name),
		}
		data, err := fid.Marshal()
		require.NoError(t, err)
		return data
	}

	extent := func(block, length uint32) allocation.ShortAD {
		return allocation.ShortAD{
			Type:               allocation.EXTENT_RECORDED,
			ExtentLength:       length,
			LogicalBlockNumber: block,
		}
	}

	rootStream := marshalFID("", 1, directory.FILE_CHAR_DIRECTORY|directory.FILE_CHAR_PARENT)
	rootStream = append(rootStream, marshalFID("LICENSE.md", 3, 0)...)
	rootStream = append(rootStream, marshalFID("secret.txt", 3, directory.FILE_CHAR_HIDDEN)...)
	rootStream = append(rootStream, marshalFID("docs", 5, directory.FILE_CHAR_DIRECTORY)...)
	putBlock(1, marshalICB(icb.FILE_TYPE_DIRECTORY, uint64(len(rootStream)),
		extent(2, uint32(len(rootStream)))))
	putBlock(2, rootStream)

	putBlock(3, marshalICB(icb.FILE_TYPE_BYTES, uint64(len(licenseContent)),
		extent(4, uint32(len(licenseContent)))))
	putBlock(4, []byte(licenseContent))

	docsStream := marshalFID("", 1, directory.FILE_CHAR_DIRECTORY|directory.FILE_CHAR_PARENT)
	docsStream = append(docsStream, marshalFID("notes.txt", 7, 0)...)
	putBlock(5, marshalICB(icb.FILE_TYPE_DIRECTORY, uint64(len(docsStream)),
		extent(6, uint32(len(docsStream)))))
	putBlock(6, docsStream)

	putBlock(7, marshalICB(icb.FILE_TYPE_BYTES, uint64(len(notesContent)),
		extent(8, uint32(len(notesContent)))))
	putBlock(8, []byte(notesContent))

	var max uint32
	for sector := range sectors {
		if sector > max {
			max = sector
		}
	}
	buf := make([]byte, int(max+1)*consts.UDF_SECTOR_SIZE)
	for sector, data := range sectors {
		copy(buf[int(sector)*consts.UDF_SECTOR_SIZE:], data)
	}

	path := filepath.Join(t.TempDir(), "test.udf")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpen(t *testing.T) {
	t.Run("parses on open by default", func(t *testing.T) {
		img, err := Open(writeTestImage(t))
		require.NoError(t, err)
		defer img.Close()

		require.True(t, img.Parsed())
		vi := img.VolumeInfo()
		require.NotNil(t, vi)
		require.Equal(t, "TESTVOL", vi.VolumeIdentifier)
		require.Equal(t, "TESTFS", vi.FileSetIdentifier)
	})

	t.Run("deferred parse", func(t *testing.T) {
		img, err := Open(writeTestImage(t), option.WithParseOnOpen(false))
		require.NoError(t, err)
		defer img.Close()

		require.False(t, img.Parsed())
		require.Nil(t, img.VolumeInfo())
		require.NoError(t, img.Parse())
		require.True(t, img.Parsed())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.udf"))
		require.Error(t, err)
	})
}

func TestImage_GetAllEntries(t *testing.T) {
	t.Run("hidden entries are skipped by default", func(t *testing.T) {
		img, err := Open(writeTestImage(t))
		require.NoError(t, err)
		defer img.Close()

		entries, err := img.GetAllEntries()
		require.NoError(t, err)

		paths := make([]string, 0, len(entries))
		for _, entry := range entries {
			paths = append(paths, entry.FullPath)
		}
		require.Equal(t, []string{"LICENSE.md", "docs", "docs/notes.txt"}, paths)

		require.False(t, entries[0].IsDir)
		require.Equal(t, uint64(len(licenseContent)), entries[0].Size)
		require.True(t, entries[1].IsDir)
	})

	t.Run("hidden entries included on request", func(t *testing.T) {
		img, err := Open(writeTestImage(t), option.WithIncludeHidden(true))
		require.NoError(t, err)
		defer img.Close()

		entries, err := img.GetAllEntries()
		require.NoError(t, err)

		paths := make([]string, 0, len(entries))
		for _, entry := range entries {
			paths = append(paths, entry.FullPath)
		}
		require.Contains(t, paths, "secret.txt")
	})
}

func TestImage_GetAllEntries_BadAllocationDescriptors(t *testing.T) {
	path := writeTestImage(t)

	// Rewrite the LICENSE.md file entry's ICB flags to a reserved
	// allocation format. The flags live outside the bytes covered by the
	// descriptor tag checksum, so the entry still parses.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[(imagePartitionStart+3)*consts.UDF_SECTOR_SIZE+34] = 0x03
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var log bytes.Buffer
	img, err := Open(path,
		option.WithLogr(logging.NewSimpleLogger(&log, logging.LEVEL_TRACE, false)))
	require.NoError(t, err)
	defer img.Close()

	entries, err := img.GetAllEntries()
	require.NoError(t, err)

	var license *filesystem.FileSystemEntry
	for _, entry := range entries {
		if entry.FullPath == "LICENSE.md" {
			license = entry
		}
	}
	require.NotNil(t, license)
	require.Zero(t, license.Location)
	require.Contains(t, log.String(), "WARNING: failed to decode allocation descriptors")
	require.Contains(t, log.String(), "entry: LICENSE.md")
}

func TestImage_ReadFile(t *testing.T) {
	img, err := Open(writeTestImage(t))
	require.NoError(t, err)
	defer img.Close()

	t.Run("file at the root", func(t *testing.T) {
		content, err := img.ReadFile("LICENSE.md")
		require.NoError(t, err)
		require.Equal(t, []byte(licenseContent), content)
	})

	t.Run("nested file with leading slash", func(t *testing.T) {
		content, err := img.ReadFile("/docs/notes.txt")
		require.NoError(t, err)
		require.Equal(t, []byte(notesContent), content)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := img.ReadFile("docs/missing.txt")
		require.Error(t, err)
	})

	t.Run("path names a directory", func(t *testing.T) {
		_, err := img.ReadFile("docs")
		require.Error(t, err)
	})
}

func TestImage_ExtractFiles(t *testing.T) {
	var progressCalls int
	img, err := Open(writeTestImage(t),
		option.WithExtractionProgress(func(string, int64, int64, int, int) {
			progressCalls++
		}))
	require.NoError(t, err)
	defer img.Close()

	outputDir := t.TempDir()
	require.NoError(t, img.ExtractFiles(outputDir))

	license, err := os.ReadFile(filepath.Join(outputDir, "LICENSE.md"))
	require.NoError(t, err)
	require.Equal(t, licenseContent, string(license))

	notes, err := os.ReadFile(filepath.Join(outputDir, "docs", "notes.txt"))
	require.NoError(t, err)
	require.Equal(t, notesContent, string(notes))

	require.Equal(t, 2, progressCalls)
}
