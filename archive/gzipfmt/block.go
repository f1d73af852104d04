package gzipfmt

import "encoding/binary"

// Each recorded block's extra payload carries exactly what a fresh
// rawflate.Decoder needs to resume mid-stream at that block's start:
// the bit offset within the first byte, and the 32 KiB dictionary window
// that preceded it. Encoded as [startBits:1][dictLen:2 LE][dict bytes...].
func encodeExtra(startBits uint, dict []byte) []byte {
	buf := make([]byte, 1+2+len(dict))
	buf[0] = byte(startBits)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(dict)))
	copy(buf[3:], dict)
	return buf
}

func decodeExtra(b []byte) (startBits uint, dict []byte, ok bool) {
	if len(b) < 3 {
		return 0, nil, false
	}
	startBits = uint(b[0])
	n := binary.LittleEndian.Uint16(b[1:3])
	if len(b) < 3+int(n) {
		return 0, nil, false
	}
	return startBits, b[3 : 3+int(n)], true
}
