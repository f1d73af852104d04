package lzopfmt

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/rclone/archivefs/archive"
)

// Magic is the nine-byte lzop file signature.
var Magic = []byte{0x89, 'L', 'Z', 'O', 0x00, 0x0d, 0x0a, 0x1a, 0x0a}

// lzop header flag bits relevant to locating block data; grounded on
// asdfsx/lzo's Indexer flag constants.
const (
	flagAdler32D = 1 << 0
	flagAdler32C = 1 << 1
	flagFilter   = 1 << 11
	flagCRC32D   = 1 << 8
	flagCRC32C   = 1 << 9
)

var (
	errBadHeader = errors.New("lzopfmt: invalid header")
	errCorrupt   = errors.New("lzopfmt: corrupt block header")
)

// parseHeader reads and validates a lzop stream header, replaying the
// same sequence of conditionally-present fields as asdfsx/lzo's
// Indexer.readHeader, and returns the header's total length (where the
// first block begins) plus the flags bits the block indexer needs.
func parseHeader(h *archive.FileHandle) (headerLen int64, flags uint32, err error) {
	buf := make([]byte, 512)
	n, err := h.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return 0, 0, err
	}
	buf = buf[:n]

	if len(buf) < len(Magic) || !bytes.Equal(buf[:len(Magic)], Magic) {
		return 0, 0, errBadHeader
	}
	pos := len(Magic)

	need := func(n int) bool { return pos+n <= len(buf) }

	if !need(2) {
		return 0, 0, errBadHeader
	}
	version := binary.BigEndian.Uint16(buf[pos : pos+2])
	pos += 2

	if !need(2) {
		return 0, 0, errBadHeader
	}
	pos += 2 // library version needed to extract
	if version >= 0x0940 {
		if !need(2) {
			return 0, 0, errBadHeader
		}
		pos += 2 // library version, re-read per upstream quirk
	}

	if !need(1) {
		return 0, 0, errBadHeader
	}
	pos++ // method
	if version >= 0x0940 {
		if !need(1) {
			return 0, 0, errBadHeader
		}
		pos++ // level
	}

	if !need(4) {
		return 0, 0, errBadHeader
	}
	flags = binary.BigEndian.Uint32(buf[pos : pos+4])
	pos += 4

	if flags&flagFilter != 0 {
		if !need(4) {
			return 0, 0, errBadHeader
		}
		pos += 4
	}

	if !need(4) {
		return 0, 0, errBadHeader
	}
	pos += 4 // mode
	if !need(4) {
		return 0, 0, errBadHeader
	}
	pos += 4 // mtime
	if version >= 0x0940 {
		if !need(4) {
			return 0, 0, errBadHeader
		}
		pos += 4 // mtime high
	}

	if !need(1) {
		return 0, 0, errBadHeader
	}
	nameLen := int(buf[pos])
	pos++
	if !need(nameLen) {
		return 0, 0, errBadHeader
	}
	pos += nameLen

	if !need(4) {
		return 0, 0, errBadHeader
	}
	pos += 4 // header checksum, not re-verified here

	return int64(pos), flags, nil
}
