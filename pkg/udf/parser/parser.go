package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf/allocation"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/directory"
	"github.com/bgrewell/udf-kit/pkg/udf/fileset"
	"github.com/bgrewell/udf-kit/pkg/udf/icb"
	"github.com/bgrewell/udf-kit/pkg/udf/info"
)

var (
	// ErrMissingDescriptor is returned when the Volume Descriptor Sequence
	// terminates without having produced a required PVD, PD or LVD. Session
	// construction fails atomically; there is no degraded state.
	ErrMissingDescriptor = errors.New("required volume descriptor missing")

	// ErrShortRead is returned when the byte source produced fewer bytes
	// than a descriptor or extent declared.
	ErrShortRead = errors.New("short read from byte source")

	// ErrMultipleExtents is returned when an ICB's allocation descriptor
	// sequence has more than one entry (or continues into another descriptor
	// block) where the traversal reads exactly one. This is a scope limit
	// surfaced explicitly, never a silent truncation.
	ErrMultipleExtents = errors.New("multiple allocation extents not supported")
)

// NewParser returns a Parser over the given byte source. The parser owns the
// reader exclusively for its lifetime; all decoding is synchronous
// seek-then-read against it and nothing else may access it concurrently.
func NewParser(reader io.ReaderAt, options *option.OpenOptions) *Parser {
	logger := options.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Parser{
		reader:  reader,
		options: options,
		logger:  logger,
	}
}

type Parser struct {
	reader  io.ReaderAt
	options *option.OpenOptions
	logger  *logging.Logger

	pvd *descriptor.PrimaryVolumeDescriptor
	pd  *descriptor.PartitionDescriptor
	lvd *descriptor.LogicalVolumeDescriptor
	fsd *fileset.FileSetDescriptor

	// Metadata partition indirection, resolved once during Parse and applied
	// to every logical block number afterwards.
	hasMetadataPartition bool
	metadataOffset       uint32

	parsed bool
}

// Parsed reports whether Parse has completed successfully.
func (p *Parser) Parsed() bool {
	return p.parsed
}

func (p *Parser) PrimaryVolumeDescriptor() *descriptor.PrimaryVolumeDescriptor {
	return p.pvd
}

func (p *Parser) PartitionDescriptor() *descriptor.PartitionDescriptor {
	return p.pd
}

func (p *Parser) LogicalVolumeDescriptor() *descriptor.LogicalVolumeDescriptor {
	return p.lvd
}

func (p *Parser) FileSetDescriptor() *fileset.FileSetDescriptor {
	return p.fsd
}

// MetadataOffset returns the resolved metadata partition offset and whether
// one applies.
func (p *Parser) MetadataOffset() (uint32, bool) {
	return p.metadataOffset, p.hasMetadataPartition
}

// readExact reads exactly len(buf) bytes at the given absolute offset,
// failing with ErrShortRead when fewer are available.
func (p *Parser) readExact(buf []byte, offset int64) error {
	n, err := p.reader.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read %d bytes at offset %d: %w", len(buf), offset, err)
	}
	return fmt.Errorf("%w: wanted %d bytes at offset %d, got %d", ErrShortRead, len(buf), offset, n)
}

// ReadSector reads one 2048-byte logical sector by absolute sector number.
func (p *Parser) ReadSector(sector uint32) ([]byte, error) {
	buf := make([]byte, consts.UDF_SECTOR_SIZE)
	if err := p.readExact(buf, int64(sector)*consts.UDF_SECTOR_SIZE); err != nil {
		return nil, err
	}
	return buf, nil
}

// AbsoluteSector converts a partition-relative logical block number into an
// absolute sector, applying the metadata partition offset when one was
// resolved: partition_start + lbn + metadata_offset.
func (p *Parser) AbsoluteSector(lbn uint32) uint32 {
	sector := p.pd.PartitionStartingLocation + lbn
	if p.hasMetadataPartition {
		sector += p.metadataOffset
	}
	return sector
}

// Parse locates the anchor, walks the Volume Descriptor Sequence, resolves
// the metadata partition offset if a type 2 map is present, and reads the
// File Set Descriptor. It must complete before any content access; failure
// leaves no partially usable state behind.
func (p *Parser) Parse() error {
	anchorData, err := p.ReadSector(consts.UDF_ANCHOR_SECTOR)
	if err != nil {
		return fmt.Errorf("failed to read anchor sector: %w", err)
	}
	anchor := &descriptor.AnchorVolumeDescriptorPointer{}
	if err := anchor.Unmarshal(anchorData); err != nil {
		return fmt.Errorf("failed to parse anchor volume descriptor pointer: %w", err)
	}

	if err := p.walkVolumeDescriptorSequence(anchor.MainVolumeDescriptorSequence); err != nil {
		return err
	}

	if err := p.resolveMetadataPartition(); err != nil {
		return err
	}

	if err := p.readFileSetDescriptor(); err != nil {
		return err
	}

	p.parsed = true
	return nil
}

// walkVolumeDescriptorSequence reads one block per sector across the extent,
// dispatching on tag identifier. The first PVD, PD and LVD seen are
// retained; a Terminating Descriptor stops the scan; unknown kinds are
// skipped.
func (p *Parser) walkVolumeDescriptorSequence(extent descriptor.ExtentAD) error {
	start := extent.Location
	end := extent.Location + extent.Length/consts.UDF_SECTOR_SIZE

	for sector := start; sector < end; sector++ {
		data, err := p.ReadSector(sector)
		if err != nil {
			return fmt.Errorf("failed to read volume descriptor at sector %d: %w", sector, err)
		}

		kind, err := descriptor.Peek(data)
		if err != nil {
			return err
		}

		if kind != 0 {
			p.logger.Trace("found descriptor", "sector", sector, "tag", kind)
		}

		switch kind {
		case consts.TAG_TERMINATING_DESCRIPTOR, consts.TAG_VOLUME_POINTER:
			// Sequence complete. A volume pointer would continue the VDS
			// elsewhere; single-sequence volumes end here either way.
			sector = end
		case consts.TAG_PRIMARY_VOLUME_DESCRIPTOR:
			if p.pvd != nil {
				continue
			}
			pvd := &descriptor.PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(data); err != nil {
				return fmt.Errorf("failed to parse primary volume descriptor: %w", err)
			}
			p.logger.Info("found primary volume descriptor", "volume", pvd.VolumeIdentifier)
			p.pvd = pvd
		case consts.TAG_PARTITION_DESCRIPTOR:
			if p.pd != nil {
				continue
			}
			pd := &descriptor.PartitionDescriptor{}
			if err := pd.Unmarshal(data); err != nil {
				return fmt.Errorf("failed to parse partition descriptor: %w", err)
			}
			contents := pd.PartitionContents.IdentifierString()
			p.logger.Info("found partition descriptor",
				"partition", pd.PartitionNumber, "contents", contents)
			switch contents {
			case "+NSR02", "+NSR03":
				// UDF file structure per ECMA-167 part 4.
			default:
				p.logger.Warn("unknown partition content identifier", "contents", contents)
			}
			p.pd = pd
		case consts.TAG_LOGICAL_VOLUME_DESCRIPTOR:
			if p.lvd != nil {
				continue
			}
			lvd := &descriptor.LogicalVolumeDescriptor{}
			if err := lvd.Unmarshal(data); err != nil {
				return fmt.Errorf("failed to parse logical volume descriptor: %w", err)
			}
			p.logger.Info("found logical volume descriptor", "volume", lvd.LogicalVolumeIdentifier)
			p.lvd = lvd
		}
	}

	switch {
	case p.pvd == nil:
		return fmt.Errorf("%w: no primary volume descriptor found", ErrMissingDescriptor)
	case p.pd == nil:
		return fmt.Errorf("%w: no partition descriptor found", ErrMissingDescriptor)
	case p.lvd == nil:
		return fmt.Errorf("%w: no logical volume descriptor found", ErrMissingDescriptor)
	}

	return nil
}

// resolveMetadataPartition computes the metadata partition offset if the LVD
// carries a type 2 partition map: the block at partition_start +
// metadata_file_location decodes as the metadata file's ICB, and the block
// address of its first allocation descriptor becomes the offset added to
// every subsequent logical block number. Computed exactly once, before any
// content is read.
func (p *Parser) resolveMetadataPartition() error {
	var metadataFileLocation uint32
	found := false
	for i := range p.lvd.PartitionMaps {
		m := &p.lvd.PartitionMaps[i]
		switch {
		case m.Type2 != nil:
			p.logger.Info("found metadata partition map",
				"metadataFileLocation", m.Type2.MetadataFileLocation)
			metadataFileLocation = m.Type2.MetadataFileLocation
			found = true
		case m.Unknown != nil:
			p.logger.Warn("unrecognized partition map entry", "type", m.MapType)
		}
	}
	if !found {
		return nil
	}

	sector := p.pd.PartitionStartingLocation + metadataFileLocation
	data, err := p.ReadSector(sector)
	if err != nil {
		return fmt.Errorf("failed to read metadata file ICB: %w", err)
	}
	metaICB := &icb.ICB{}
	if err := metaICB.Unmarshal(data); err != nil {
		return fmt.Errorf("failed to parse metadata file ICB: %w", err)
	}
	descs, err := metaICB.AllocationDescriptors()
	if err != nil {
		return fmt.Errorf("failed to resolve metadata file allocation descriptors: %w", err)
	}
	if len(descs) == 0 {
		p.logger.Warn("metadata file ICB has no allocation descriptors; addressing is direct")
		return nil
	}
	if len(descs) > 1 {
		// A multi-extent metadata file would shift addresses beyond the
		// first extent; only the first is honored.
		p.logger.Warn("metadata file has multiple allocation descriptors, using the first",
			"count", len(descs))
	}

	p.metadataOffset = descs[0].BlockNumber()
	p.hasMetadataPartition = true
	return nil
}

// readFileSetDescriptor follows the LVD's embedded long allocation
// descriptor to the FSD.
func (p *Parser) readFileSetDescriptor() error {
	fsdPointer := &allocation.LongAD{}
	if err := fsdPointer.Unmarshal(p.lvd.LogicalVolumeContentsUse[:]); err != nil {
		return fmt.Errorf("failed to parse file set descriptor pointer: %w", err)
	}

	data, err := p.ReadSector(p.AbsoluteSector(fsdPointer.BlockNumber()))
	if err != nil {
		return fmt.Errorf("failed to read file set descriptor: %w", err)
	}
	fsd := &fileset.FileSetDescriptor{}
	if err := fsd.Unmarshal(data); err != nil {
		return fmt.Errorf("failed to parse file set descriptor: %w", err)
	}
	p.fsd = fsd
	return nil
}

// ReadICB reads and decodes the ICB at the given partition-relative logical
// block number.
func (p *Parser) ReadICB(lbn uint32) (*icb.ICB, error) {
	data, err := p.ReadSector(p.AbsoluteSector(lbn))
	if err != nil {
		return nil, fmt.Errorf("failed to read ICB at block %d: %w", lbn, err)
	}
	entry := &icb.ICB{}
	if err := entry.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to parse ICB at block %d: %w", lbn, err)
	}
	return entry, nil
}

// RootDirectory reads the root directory's ICB via the FSD's root directory
// pointer.
func (p *Parser) RootDirectory() (*icb.ICB, error) {
	root, err := p.ReadICB(p.fsd.RootDirectoryICB.BlockNumber())
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory ICB: %w", err)
	}
	return root, nil
}

// contentExtent resolves an ICB's allocation descriptors down to the single
// extent the traversal supports.
func (p *Parser) contentExtent(entry *icb.ICB) (allocation.Descriptor, error) {
	descs, err := entry.AllocationDescriptors()
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, nil
	}
	if len(descs) > 1 {
		return nil, fmt.Errorf("%w: ICB carries %d allocation descriptors", ErrMultipleExtents, len(descs))
	}
	if descs[0].ExtentType() == allocation.EXTENT_NEXT_DESCRIPTOR {
		return nil, fmt.Errorf("%w: allocation descriptors continue in another block", ErrMultipleExtents)
	}
	return descs[0], nil
}

// ReadExtent reads the bytes an allocation descriptor points at:
// (partition_start + block + metadata_offset) * block_size for exactly the
// descriptor's byte length. Unrecorded and unallocated extents read as
// zeros.
func (p *Parser) ReadExtent(ad allocation.Descriptor) ([]byte, error) {
	length := ad.Length()
	switch ad.ExtentType() {
	case allocation.EXTENT_RECORDED:
		buf := make([]byte, length)
		offset := int64(p.AbsoluteSector(ad.BlockNumber())) * consts.UDF_SECTOR_SIZE
		if err := p.readExact(buf, offset); err != nil {
			return nil, err
		}
		return buf, nil
	case allocation.EXTENT_NOT_RECORDED, allocation.EXTENT_NOT_ALLOCATED:
		// Holes read back as zeros.
		return make([]byte, length), nil
	default:
		return nil, fmt.Errorf("%w: extent points at a descriptor continuation block", ErrMultipleExtents)
	}
}

// ReadDirectory reads a directory ICB's content extent and decodes it as a
// FID stream.
func (p *Parser) ReadDirectory(entry *icb.ICB) ([]*directory.FileIdentifierDescriptor, error) {
	ad, err := p.contentExtent(entry)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, nil
	}
	data, err := p.ReadExtent(ad)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory contents: %w", err)
	}
	return directory.DecodeStream(data)
}

// ReadChild follows a FID's embedded ICB pointer to the child's ICB.
func (p *Parser) ReadChild(fid *directory.FileIdentifierDescriptor) (*icb.ICB, error) {
	return p.ReadICB(fid.ICB.BlockNumber())
}

// ReadContent reads an ICB's content extent in full.
func (p *Parser) ReadContent(entry *icb.ICB) ([]byte, error) {
	ad, err := p.contentExtent(entry)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, nil
	}
	return p.ReadExtent(ad)
}

// VolumeInfo summarizes the parsed top-level descriptors.
func (p *Parser) VolumeInfo() *info.VolumeInfo {
	if !p.parsed {
		return nil
	}
	return &info.VolumeInfo{
		VolumeIdentifier:        p.pvd.VolumeIdentifier,
		VolumeSetIdentifier:     p.pvd.VolumeSetIdentifier,
		LogicalVolumeIdentifier: p.lvd.LogicalVolumeIdentifier,
		FileSetIdentifier:       p.fsd.FileSetIdentifier,
		RecordingDateAndTime:    p.pvd.RecordingDateAndTime,
		PartitionNumber:         p.pd.PartitionNumber,
		PartitionStart:          p.pd.PartitionStartingLocation,
		PartitionLength:         p.pd.PartitionLength,
		PartitionContents:       p.pd.PartitionContents.IdentifierString(),
		HasMetadataPartition:    p.hasMetadataPartition,
		MetadataOffset:          p.metadataOffset,
		BlockSize:               p.lvd.LogicalBlockSize,
	}
}
