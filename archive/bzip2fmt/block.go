package bzip2fmt

// Each block's extra payload records just enough to re-align to its bit
// position and pick the right stream header when reconstructing a
// decodable single-block stream: the bit shift within the byte
// CompOffset points at, and the stream's compression level digit.
func encodeExtra(bitShift int, level byte) []byte {
	return []byte{byte(bitShift), level}
}

func decodeExtra(b []byte) (bitShift int, level byte, ok bool) {
	if len(b) < 2 {
		return 0, 0, false
	}
	return int(b[0]), b[1], true
}
