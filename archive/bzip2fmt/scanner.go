package bzip2fmt

// Block-level magic scanning, grounded on cosnicolaou/pbzip2's
// internal scanner (other_examples' scanner.go): a bzip2 stream is a
// sequence of compressed blocks, each starting with a fixed 48-bit magic
// number, terminated by a distinct 48-bit end-of-stream magic. Neither is
// byte-aligned in general, so finding them means scanning bit positions,
// not byte positions.
//
// pbzip2's scanner builds shifted lookup tables so it can match the magic
// at every possible bit alignment in one pass over the bytes; this does
// the same search the straightforward way; it is never on the hot path
// for a single read (it only runs once, while building a sidecar index).
const (
	blockMagic48 = 0x314159265359
	eosMagic48   = 0x177245385090
)

type magicMark struct {
	bitPos int
	eos    bool
}

// scanMagics finds every block-start magic in body up to and including the
// first end-of-stream magic, in ascending bit-position order, then stops:
// that first end-of-stream marks the end of the current member, and
// callers (memberSpans) never look past it. body is expected to start at a
// member's own beginning (right after its 4-byte header), so stopping
// there keeps a concatenated archive's total scan work linear in the
// archive size instead of rescanning every trailing member once per
// member already walked.
func scanMagics(body []byte) []magicMark {
	bitLen := len(body)*8 - 48
	if bitLen < 0 {
		return nil
	}
	var marks []magicMark
	for bitPos := 0; bitPos <= bitLen; bitPos++ {
		v := readBitsAt(body, bitPos, 48)
		switch v {
		case blockMagic48:
			marks = append(marks, magicMark{bitPos: bitPos, eos: false})
		case eosMagic48:
			marks = append(marks, magicMark{bitPos: bitPos, eos: true})
			return marks
		}
	}
	return marks
}
