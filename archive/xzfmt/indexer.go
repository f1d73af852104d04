package xzfmt

import (
	"io"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
)

// Indexer implements archive.IndexBuilder for xz by reading the stream's
// own footer index rather than scanning the file, rejecting any index
// field larger than opt.IndexMemLimit instead of reading it (PixzFile.h's indexing
// keeps only a bounded window of its own index resident for the same
// reason: a pathological archive with millions of tiny blocks shouldn't
// force an unbounded allocation just to open the file).
type Indexer struct{}

// BuildIndex implements archive.IndexBuilder. It only supports a single
// xz stream per file (no stream padding or concatenation); multi-stream
// .xz files are rare in practice and unsupported here, same as this
// package's Non-goals around multi-volume archives.
func (Indexer) BuildIndex(h *archive.FileHandle, opt archiveopt.Options) ([]archive.Block, [][]byte, int64, error) {
	size, err := h.Size()
	if err != nil {
		return nil, nil, 0, err
	}
	if size < streamHeaderLen+streamFooterLen {
		return nil, nil, 0, archive.WrapFormat(errBadMagic, "xz stream too short")
	}

	header := make([]byte, streamHeaderLen)
	if _, err := h.ReadAt(header, 0); err != nil && err != io.EOF {
		return nil, nil, 0, err
	}
	if _, err := parseStreamHeader(header); err != nil {
		return nil, nil, 0, archive.WrapFormat(err, "xz stream header")
	}

	footer := make([]byte, streamFooterLen)
	if _, err := h.ReadAt(footer, size-streamFooterLen); err != nil && err != io.EOF {
		return nil, nil, 0, err
	}
	indexSize, checkID, err := parseFooter(footer)
	if err != nil {
		return nil, nil, 0, archive.WrapFormat(err, "xz stream footer")
	}
	if indexSize > opt.IndexMemLimit {
		return nil, nil, 0, archive.WrapFormat(errBadIndex, "xz index of %d bytes exceeds configured limit", indexSize)
	}

	indexStart := size - streamFooterLen - indexSize
	if indexStart < streamHeaderLen {
		return nil, nil, 0, archive.WrapFormat(errBadIndex, "xz index offset out of range")
	}
	indexBuf := make([]byte, indexSize)
	if _, err := h.ReadAt(indexBuf, indexStart); err != nil && err != io.EOF {
		return nil, nil, 0, err
	}
	recs, err := parseIndex(indexBuf)
	if err != nil {
		return nil, nil, 0, archive.WrapFormat(err, "xz index body")
	}

	var blocks []archive.Block
	var extras [][]byte
	blockOffset := int64(streamHeaderLen)
	var logicalOffset int64
	for _, r := range recs {
		if err := archive.CheckBlockSize(int64(r.uncompSize), opt.MaxBlockSize); err != nil {
			return nil, nil, 0, archive.WrapFormat(err, "xz block at offset %d", blockOffset)
		}
		padded := paddedBlockSize(r.unpaddedSize)
		blocks = append(blocks, archive.Block{
			CompOffset:   blockOffset,
			CompSize:     padded,
			UncompOffset: logicalOffset,
			UncompSize:   int64(r.uncompSize),
		})
		extras = append(extras, encodeExtra(checkID, r.unpaddedSize))
		blockOffset += padded
		logicalOffset += int64(r.uncompSize)
	}

	return blocks, extras, logicalOffset, nil
}
