package bzip2fmt

import (
	"bytes"
	"compress/bzip2"
	"io"

	"github.com/rclone/archivefs/archive"
)

// Codec implements archive.BlockCodec for bzip2. bzip2 blocks aren't
// independently decodable by the standard library's decoder (it only
// exposes a whole-stream Reader), so each block is decoded by
// synthesizing a one-block bzip2 stream around the block's raw bits
// (its own magic, compressed data and block CRC, taken verbatim from the
// archive) plus a fabricated end-of-stream trailer, and feeding that to
// compress/bzip2.
type Codec struct{}

// DecodeBlock implements archive.BlockCodec.
func (Codec) DecodeBlock(h *archive.FileHandle, blocks []archive.Block, extras [][]byte, i int) ([]byte, error) {
	blk := blocks[i]
	bitShift, level, ok := decodeExtra(extras[i])
	if !ok {
		return nil, archive.WrapFormat(errBadHeader, "corrupt bzip2 block extra at index %d", i)
	}

	var spanEnd int64
	if i+1 < len(blocks) {
		spanEnd = blocks[i+1].CompOffset
	} else {
		size, err := h.Size()
		if err != nil {
			return nil, err
		}
		spanEnd = size
	}

	raw := make([]byte, spanEnd-blk.CompOffset)
	if _, err := h.ReadAt(raw, blk.CompOffset); err != nil && err != io.EOF {
		return nil, err
	}

	data, err := decodeSynthesized(level, raw, bitShift)
	if err != nil {
		return nil, archive.WrapCodec(err, "decoding bzip2 block at index %d", i)
	}
	if int64(len(data)) > blk.UncompSize {
		data = data[:blk.UncompSize]
	}
	return data, nil
}

// decodeSynthesized reconstructs a standalone single-block bzip2 stream
// from raw bytes whose bit bitShift is the start of the block's own
// magic number, and decodes it with the standard library.
func decodeSynthesized(level byte, raw []byte, bitShift int) ([]byte, error) {
	bw := &bitWriter{}
	bw.writeBits(blockMagic48, 48)

	totalBits := len(raw)*8 - bitShift
	remaining := totalBits - 48
	if remaining < 0 {
		remaining = 0
	}
	bw.copyBits(raw, bitShift+48, remaining)

	bw.writeBits(eosMagic48, 48)

	// The combined stream CRC is verified by compress/bzip2 at end of
	// stream. For a synthesized one-block stream the combined CRC is just
	// the block's own CRC, stored as the 32 bits right after its 48-bit
	// magic.
	blockCRC := readBitsAt(raw, bitShift+48, 32)
	bw.writeBits(blockCRC, 32)

	body := bw.flush()
	stream := make([]byte, 0, 4+len(body))
	stream = append(stream, 'B', 'Z', 'h', '0'+level)
	stream = append(stream, body...)

	r := bzip2.NewReader(bytes.NewReader(stream))
	return io.ReadAll(r)
}
