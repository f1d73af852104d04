package gzipfmt

import (
	"bufio"
	"encoding/binary"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/internal/rawflate"
)

// windowSize is the DEFLATE back-reference window, RFC 1951 §2.2. Gzip
// block-factor boundaries are measured in multiples of this.
const windowSize = 32 * 1024

// Indexer implements archive.IndexBuilder for gzip. It walks every
// concatenated member (RFC 1952 §2.2 allows more than one gzip stream
// back to back; gzip -c archives commonly consist of just one, but
// nothing guarantees that), decoding block by block and recording an
// index boundary at each member's start plus every GzipBlockFactor
// windows of uncompressed output, so a later random-access read only
// has to replay at most one block's worth of dictionary priming.
type Indexer struct{}

// BuildIndex implements archive.IndexBuilder.
func (Indexer) BuildIndex(h *archive.FileHandle, opt archiveopt.Options) ([]archive.Block, [][]byte, int64, error) {
	size, err := h.Size()
	if err != nil {
		return nil, nil, 0, err
	}

	blockFactor := opt.GzipBlockFactor
	if blockFactor < 1 {
		blockFactor = 1
	}
	threshold := int64(blockFactor) * windowSize

	var blocks []archive.Block
	var extras [][]byte
	var logicalOffset int64
	memberStart := int64(0)

	for memberStart < size {
		sr := io.NewSectionReader(h, memberStart, size-memberStart)
		br := bufio.NewReader(sr)

		headerLen, err := skipHeader(br)
		if err != nil {
			return nil, nil, 0, archive.WrapFormat(err, "gzip header at offset %d", memberStart)
		}

		dec := rawflate.NewDecoder(br)

		// Mandatory boundary at the member's own start: decoding from
		// here never needs a dictionary.
		blocks = append(blocks, archive.Block{
			CompOffset:   memberStart + headerLen,
			UncompOffset: logicalOffset,
		})
		extras = append(extras, encodeExtra(0, nil))
		cur := len(blocks) - 1

		var sinceBoundary, memberUncompSize int64
		for {
			data, final, err := dec.ReadBlock()
			if err != nil {
				return nil, nil, 0, archive.WrapCodec(err, "decoding gzip member at offset %d", memberStart)
			}
			n := int64(len(data))
			blocks[cur].UncompSize += n
			logicalOffset += n
			memberUncompSize += n
			sinceBoundary += n

			if final {
				if err := archive.CheckBlockSize(blocks[cur].UncompSize, opt.MaxBlockSize); err != nil {
					return nil, nil, 0, archive.WrapFormat(err, "gzip block at offset %d", blocks[cur].CompOffset)
				}
				break
			}
			if sinceBoundary >= threshold {
				if err := archive.CheckBlockSize(blocks[cur].UncompSize, opt.MaxBlockSize); err != nil {
					return nil, nil, 0, archive.WrapFormat(err, "gzip block at offset %d", blocks[cur].CompOffset)
				}
				byteOff, startBits := dec.Boundary()
				blocks = append(blocks, archive.Block{
					CompOffset:   memberStart + headerLen + byteOff,
					UncompOffset: logicalOffset,
				})
				extras = append(extras, encodeExtra(startBits, dec.Snapshot()))
				cur = len(blocks) - 1
				sinceBoundary = 0
			}
		}

		byteOff, startBits := dec.Boundary()
		trailerStart := byteOff
		if startBits > 0 {
			trailerStart++
		}
		trailerOffset := memberStart + headerLen + trailerStart
		checkTrailer(h, trailerOffset, memberUncompSize)

		memberEnd := trailerOffset + 8
		if memberEnd <= memberStart || memberEnd > size {
			memberEnd = size
		}
		memberStart = memberEnd
	}

	return blocks, extras, logicalOffset, nil
}

// checkTrailer reads a member's CRC32+ISIZE trailer and warns (but never
// fails the index build) if the stored ISIZE disagrees with what was
// actually decoded, since a mismatch here means the archive is corrupt
// rather than that the index is wrong.
func checkTrailer(h *archive.FileHandle, off int64, uncompSize int64) {
	var buf [8]byte
	if _, err := h.ReadAt(buf[:], off); err != nil {
		log.WithError(err).WithField("offset", off).Debug("gzip: could not read member trailer")
		return
	}
	isize := binary.LittleEndian.Uint32(buf[4:8])
	if int64(isize) != uncompSize%(1<<32) {
		log.WithFields(log.Fields{
			"offset": off,
			"isize":  isize,
			"actual": uncompSize,
		}).Warn("gzip: member ISIZE does not match decoded length")
	}
}
