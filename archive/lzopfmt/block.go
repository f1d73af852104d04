package lzopfmt

// A lzop block's extra payload records only whether it was stored
// uncompressed (lzop falls back to a literal copy when compression
// doesn't shrink the block, src_len == dst_len), since that determines
// whether the codec runs the block through the LZO1X decompressor or
// just copies it through.
func encodeExtra(stored bool) []byte {
	if stored {
		return []byte{1}
	}
	return []byte{0}
}

func decodeExtra(b []byte) (stored bool, ok bool) {
	if len(b) < 1 {
		return false, false
	}
	return b[0] != 0, true
}
