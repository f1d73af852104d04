package lzopfmt

import (
	"bytes"
	"io"

	lzo "github.com/rasky/go-lzo"

	"github.com/rclone/archivefs/archive"
)

// Codec implements archive.BlockCodec for lzop. Each block is already an
// independent LZO1X-compressed (or literal) span, so decoding one needs
// no reconstruction the way gzip/bzip2/xz blocks do.
type Codec struct{}

// DecodeBlock implements archive.BlockCodec.
func (Codec) DecodeBlock(h *archive.FileHandle, blocks []archive.Block, extras [][]byte, i int) ([]byte, error) {
	blk := blocks[i]
	stored, ok := decodeExtra(extras[i])
	if !ok {
		return nil, archive.WrapFormat(errCorrupt, "corrupt lzop block extra at index %d", i)
	}

	raw := make([]byte, blk.CompSize)
	if _, err := h.ReadAt(raw, blk.CompOffset); err != nil && err != io.EOF {
		return nil, err
	}

	if stored {
		return raw, nil
	}

	data, err := lzo.Decompress1X(bytes.NewReader(raw), int(blk.CompSize), int(blk.UncompSize))
	if err != nil {
		return nil, archive.WrapCodec(err, "decoding lzop block at index %d", i)
	}
	if int64(len(data)) > blk.UncompSize {
		data = data[:blk.UncompSize]
	}
	return data, nil
}
