package xzfmt

// Each block's extra payload carries what the index footer doesn't:
// its unpadded size (needed to rebuild a valid index for the
// synthesized single-block stream) and the stream's check type.
func encodeExtra(checkID byte, unpaddedSize uint64) []byte {
	b := []byte{checkID}
	return appendVarint(b, unpaddedSize)
}

func decodeExtra(b []byte) (checkID byte, unpaddedSize uint64, ok bool) {
	if len(b) < 2 {
		return 0, 0, false
	}
	v, _, err := readVarint(b[1:])
	if err != nil {
		return 0, 0, false
	}
	return b[0], v, true
}
