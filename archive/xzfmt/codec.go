package xzfmt

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/rclone/archivefs/archive"
)

// Codec implements archive.BlockCodec for xz.
type Codec struct{}

// DecodeBlock implements archive.BlockCodec.
func (Codec) DecodeBlock(h *archive.FileHandle, blocks []archive.Block, extras [][]byte, i int) ([]byte, error) {
	blk := blocks[i]
	checkID, unpaddedSize, ok := decodeExtra(extras[i])
	if !ok {
		return nil, archive.WrapFormat(errBadIndex, "corrupt xz block extra at index %d", i)
	}

	raw := make([]byte, blk.CompSize)
	if _, err := h.ReadAt(raw, blk.CompOffset); err != nil && err != io.EOF {
		return nil, err
	}

	synth := synthesizeSingleBlockStream(checkID, unpaddedSize, uint64(blk.UncompSize), raw)
	r, err := xz.NewReader(bytes.NewReader(synth))
	if err != nil {
		return nil, archive.WrapCodec(err, "opening synthesized xz block at index %d", i)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, archive.WrapCodec(err, "decoding xz block at index %d", i)
	}
	if int64(len(data)) > blk.UncompSize {
		data = data[:blk.UncompSize]
	}
	return data, nil
}

// synthesizeSingleBlockStream wraps one block's raw bytes (its own
// header, compressed data, check and padding, unchanged from the
// archive) in a fresh stream header, matching index and footer, so it
// forms a standalone, valid .xz stream.
func synthesizeSingleBlockStream(checkID byte, unpaddedSize, uncompSize uint64, blockBytes []byte) []byte {
	var buf bytes.Buffer
	buf.Write(buildStreamHeader(checkID))
	buf.Write(blockBytes)
	idx := buildIndex(unpaddedSize, uncompSize)
	buf.Write(idx)
	buf.Write(buildFooter(int64(len(idx)), checkID))
	return buf.Bytes()
}
