// Package xzfmt indexes .xz archives at the container level: unlike
// gzip and bzip2, the xz format already records each block's compressed
// and uncompressed size in a footer index (.xz format spec §2.3), so
// building the index here means parsing that footer rather than
// scanning compressed bit patterns. Decoding a block is done by
// reconstructing a minimal standalone single-block stream around the
// block's own bytes (xz blocks are independently decodable by
// construction, which is exactly what lets xz's own multithreaded
// encoder compress blocks in parallel) and handing it to
// github.com/ulikunitz/xz's stream reader, the same way gzipfmt and
// bzip2fmt resynthesize a one-block container for their formats.
package xzfmt

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Magic is the six-byte .xz stream identification sequence.
var Magic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

var footerMagic = []byte{'Y', 'Z'}

const (
	streamHeaderLen = 12
	streamFooterLen = 12
)

var (
	errBadMagic       = errors.New("xzfmt: bad stream magic")
	errBadFooterMagic = errors.New("xzfmt: bad footer magic")
	errHeaderCRC      = errors.New("xzfmt: stream header CRC mismatch")
	errFooterCRC      = errors.New("xzfmt: stream footer CRC mismatch")
	errBadIndex       = errors.New("xzfmt: malformed index")
)

// parseStreamHeader validates the 12-byte stream header and returns the
// integrity check type used by the stream's single block (.xz format
// spec §2.1.1.2; the low nibble of the second flags byte).
func parseStreamHeader(buf []byte) (checkID byte, err error) {
	if len(buf) < streamHeaderLen {
		return 0, errBadMagic
	}
	for i, b := range Magic {
		if buf[i] != b {
			return 0, errBadMagic
		}
	}
	flags := buf[6:8]
	if flags[0] != 0 {
		return 0, errBadMagic
	}
	want := binary.LittleEndian.Uint32(buf[8:12])
	if crc32.ChecksumIEEE(flags) != want {
		return 0, errHeaderCRC
	}
	return flags[1] & 0x0f, nil
}

// parseFooter validates the last 12 bytes of a stream and returns the
// byte size of the index field that precedes it (not including the
// footer itself).
func parseFooter(buf []byte) (indexSize int64, checkID byte, err error) {
	if len(buf) < streamFooterLen {
		return 0, 0, errBadFooterMagic
	}
	magic := buf[10:12]
	for i, b := range footerMagic {
		if magic[i] != b {
			return 0, 0, errBadFooterMagic
		}
	}
	crcWant := binary.LittleEndian.Uint32(buf[0:4])
	if crc32.ChecksumIEEE(buf[4:10]) != crcWant {
		return 0, 0, errFooterCRC
	}
	backwardSizeField := binary.LittleEndian.Uint32(buf[4:8])
	indexSize = (int64(backwardSizeField) + 1) * 4
	flags := buf[8:10]
	return indexSize, flags[1] & 0x0f, nil
}

// indexRecord is one block's entry in the stream index: the size of its
// header+compressed-data+check (not including block padding) and its
// decompressed size, .xz format spec §2.3.
type indexRecord struct {
	unpaddedSize uint64
	uncompSize   uint64
}

// parseIndex decodes every record in an index field (the bytes between
// the last block and the footer, indicator byte through its own CRC).
func parseIndex(buf []byte) ([]indexRecord, error) {
	if len(buf) < 5 || buf[0] != 0x00 {
		return nil, errBadIndex
	}
	pos := 1
	count, n, err := readVarint(buf[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	// Every record takes at least two bytes, so a count larger than the
	// buffer is corrupt; rejecting it keeps the allocation below bounded.
	if count > uint64(len(buf)) {
		return nil, errBadIndex
	}

	recs := make([]indexRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		unpadded, n, err := readVarint(buf[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		uncomp, n, err := readVarint(buf[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		recs = append(recs, indexRecord{unpaddedSize: unpadded, uncompSize: uncomp})
	}
	return recs, nil
}

// paddedBlockSize rounds an unpadded block size up to the next multiple
// of 4, the alignment every xz block is padded to on disk.
func paddedBlockSize(unpaddedSize uint64) int64 {
	return int64((unpaddedSize + 3) &^ 3)
}

// buildIndex encodes a one-record index field (indicator, record,
// padding, CRC) for a synthesized single-block stream.
func buildIndex(unpaddedSize, uncompSize uint64) []byte {
	b := []byte{0x00}
	b = appendVarint(b, 1)
	b = appendVarint(b, unpaddedSize)
	b = appendVarint(b, uncompSize)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	crc := crc32.ChecksumIEEE(b)
	crcBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(crcBytes, crc)
	return append(b, crcBytes...)
}

// buildFooter encodes the 12-byte footer matching an index field of the
// given size (including its own CRC).
func buildFooter(indexSize int64, checkID byte) []byte {
	backwardSizeField := uint32(indexSize/4 - 1)
	crcInput := make([]byte, 6)
	binary.LittleEndian.PutUint32(crcInput[0:4], backwardSizeField)
	crcInput[4] = 0x00
	crcInput[5] = checkID

	footer := make([]byte, streamFooterLen)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(crcInput))
	copy(footer[4:10], crcInput)
	copy(footer[10:12], footerMagic)
	return footer
}

// buildStreamHeader encodes a 12-byte stream header using checkID as the
// stream's integrity check type.
func buildStreamHeader(checkID byte) []byte {
	header := make([]byte, 0, streamHeaderLen)
	header = append(header, Magic...)
	header = append(header, 0x00, checkID)
	crc := crc32.ChecksumIEEE(header[6:8])
	crcBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(crcBytes, crc)
	return append(header, crcBytes...)
}
