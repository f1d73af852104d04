package lzopfmt

import (
	"encoding/binary"
	"io"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
)

// Indexer implements archive.IndexBuilder for lzop. Grounded on
// asdfsx/lzo's Indexer.findBlock: lzop files are already a sequence of
// independently decodable blocks (dst_len, src_len, optional checksums,
// then either an LZO1X-compressed or a literal payload), terminated by a
// zero dst_len, so indexing means walking that structure once without
// decompressing anything.
type Indexer struct{}

// BuildIndex implements archive.IndexBuilder.
func (Indexer) BuildIndex(h *archive.FileHandle, opt archiveopt.Options) ([]archive.Block, [][]byte, int64, error) {
	size, err := h.Size()
	if err != nil {
		return nil, nil, 0, err
	}

	headerLen, flags, err := parseHeader(h)
	if err != nil {
		return nil, nil, 0, archive.WrapFormat(err, "lzop header")
	}

	numDecompressedChecksums := 0
	if flags&flagAdler32D != 0 {
		numDecompressedChecksums++
	}
	if flags&flagCRC32D != 0 {
		numDecompressedChecksums++
	}
	numCompressedChecksums := 0
	if flags&flagAdler32C != 0 {
		numCompressedChecksums++
	}
	if flags&flagCRC32C != 0 {
		numCompressedChecksums++
	}

	var blocks []archive.Block
	var extras [][]byte
	var logicalOffset int64
	pos := headerLen

	for pos < size {
		var hdr [8]byte
		if _, err := h.ReadAt(hdr[:], pos); err != nil && err != io.EOF {
			return nil, nil, 0, err
		}
		dstLen := binary.BigEndian.Uint32(hdr[0:4])
		if dstLen == 0 {
			break // end-of-blocks marker
		}
		srcLen := binary.BigEndian.Uint32(hdr[4:8])
		if srcLen == 0 || srcLen > dstLen {
			return nil, nil, 0, archive.WrapFormat(errCorrupt, "lzop block at offset %d", pos)
		}

		stored := dstLen == srcLen
		numChecksums := numDecompressedChecksums
		if stored {
			numChecksums += numCompressedChecksums
		}
		skipBytes := int64(4 * numChecksums)

		if err := archive.CheckBlockSize(int64(dstLen), opt.MaxBlockSize); err != nil {
			return nil, nil, 0, archive.WrapFormat(err, "lzop block at offset %d", pos)
		}

		compOffset := pos + 8 + skipBytes
		blocks = append(blocks, archive.Block{
			CompOffset:   compOffset,
			CompSize:     int64(srcLen),
			UncompOffset: logicalOffset,
			UncompSize:   int64(dstLen),
		})
		extras = append(extras, encodeExtra(stored))
		logicalOffset += int64(dstLen)
		pos = compOffset + int64(srcLen)
	}

	return blocks, extras, logicalOffset, nil
}
