package gzipfmt

import (
	"bufio"
	"io"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/internal/rawflate"
)

// Codec implements archive.BlockCodec for gzip: given a recorded block, it
// seeks to its compressed start, primes a rawflate.Decoder with the
// dictionary and bit offset the indexer recorded, and decodes deflate
// blocks until the block's declared uncompressed size is reached.
type Codec struct{}

// DecodeBlock implements archive.BlockCodec.
func (Codec) DecodeBlock(h *archive.FileHandle, blocks []archive.Block, extras [][]byte, i int) ([]byte, error) {
	blk := blocks[i]
	startBits, dict, ok := decodeExtra(extras[i])
	if !ok {
		return nil, archive.WrapFormat(errBadHeader, "corrupt gzip block extra at index %d", i)
	}

	sr := io.NewSectionReader(h, blk.CompOffset, remainingBytes(h, blk.CompOffset))
	br := bufio.NewReader(sr)

	dec := rawflate.NewDecoder(br)
	if len(dict) > 0 {
		dec.SetDictionary(dict)
	}
	if startBits > 0 {
		if err := dec.Resume(startBits); err != nil {
			return nil, archive.WrapCodec(err, "resuming gzip block at index %d", i)
		}
	}

	out := make([]byte, 0, blk.UncompSize)
	for int64(len(out)) < blk.UncompSize {
		data, final, err := dec.ReadBlock()
		if err != nil {
			return nil, archive.WrapCodec(err, "decoding gzip block at index %d", i)
		}
		out = append(out, data...)
		if final {
			break
		}
	}
	if int64(len(out)) > blk.UncompSize {
		out = out[:blk.UncompSize]
	}
	return out, nil
}

// remainingBytes returns the number of bytes from off to the end of the
// underlying archive file, used to bound the section reader a block's
// decode runs over.
func remainingBytes(h *archive.FileHandle, off int64) int64 {
	size, err := h.Size()
	if err != nil {
		return 1 << 30
	}
	if off >= size {
		return 0
	}
	return size - off
}
