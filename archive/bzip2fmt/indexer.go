package bzip2fmt

import (
	"io"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
)

// span is one block's bit range within a member's body (the bytes
// following its 4-byte stream header), [start, end).
type span struct {
	start, end int
}

// Indexer implements archive.IndexBuilder for bzip2. It reads the whole
// archive into memory (bzip2 archives are block-structured but the
// blocks themselves aren't byte-aligned, so there's no way to index them
// without a bit-level scan of the actual bytes; see scanMagics), finds
// every block boundary, and records one index entry per block.
// Concatenated bzip2 streams (gzip -c style multi-member archives have a
// bzip2 equivalent too) are walked as a sequence of members, each
// contributing to the same logical byte stream.
type Indexer struct{}

// BuildIndex implements archive.IndexBuilder.
func (Indexer) BuildIndex(h *archive.FileHandle, opt archiveopt.Options) ([]archive.Block, [][]byte, int64, error) {
	size, err := h.Size()
	if err != nil {
		return nil, nil, 0, err
	}
	whole := make([]byte, size)
	if _, err := h.ReadAt(whole, 0); err != nil && err != io.EOF {
		return nil, nil, 0, err
	}

	var blocks []archive.Block
	var extras [][]byte
	var logicalOffset int64
	memberStart := int64(0)

	for memberStart < size {
		if memberStart+4 > size {
			break
		}
		level, err := parseHeader(whole[memberStart : memberStart+4])
		if err != nil {
			return nil, nil, 0, archive.WrapFormat(err, "bzip2 header at offset %d", memberStart)
		}
		body := whole[memberStart+4:]

		spans, eosBitPos, err := memberSpans(body)
		if err != nil {
			return nil, nil, 0, archive.WrapFormat(err, "bzip2 member at offset %d", memberStart)
		}

		for _, sp := range spans {
			compOffset := memberStart + 4 + int64(sp.start/8)
			bitShift := sp.start % 8
			spanBytes := body[sp.start/8 : (sp.end+7)/8]

			data, err := decodeSynthesized(level, spanBytes, bitShift)
			if err != nil {
				return nil, nil, 0, archive.WrapCodec(err, "decoding bzip2 block at offset %d", compOffset)
			}
			if err := archive.CheckBlockSize(int64(len(data)), opt.MaxBlockSize); err != nil {
				return nil, nil, 0, archive.WrapFormat(err, "bzip2 block at offset %d", compOffset)
			}

			blocks = append(blocks, archive.Block{
				CompOffset:   compOffset,
				UncompOffset: logicalOffset,
				UncompSize:   int64(len(data)),
			})
			extras = append(extras, encodeExtra(bitShift, level))
			logicalOffset += int64(len(data))
		}

		memberBitEnd := eosBitPos + 48 + 32
		memberByteEnd := (memberBitEnd + 7) / 8
		memberStart = memberStart + 4 + int64(memberByteEnd)
	}

	return blocks, extras, logicalOffset, nil
}

func memberSpans(body []byte) (spans []span, eosBitPos int, err error) {
	marks := scanMagics(body)
	eosIdx := -1
	for i, m := range marks {
		if m.eos {
			eosIdx = i
			break
		}
	}
	if eosIdx == -1 {
		return nil, 0, errNoEOS
	}
	blockMarks := marks[:eosIdx]
	for i, m := range blockMarks {
		end := marks[eosIdx].bitPos
		if i+1 < len(blockMarks) {
			end = blockMarks[i+1].bitPos
		}
		spans = append(spans, span{start: m.bitPos, end: end})
	}
	return spans, marks[eosIdx].bitPos, nil
}
