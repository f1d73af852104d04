package bzip2fmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildBitStream packs 48-bit magic values back to back, MSB-first, for
// feeding straight into scanMagics.
func buildBitStream(t *testing.T, magics ...uint64) []byte {
	t.Helper()
	bw := &bitWriter{}
	for _, m := range magics {
		bw.writeBits(m, 48)
	}
	return bw.flush()
}

func TestScanMagicsFindsBlocksAndEOS(t *testing.T) {
	body := buildBitStream(t, blockMagic48, blockMagic48, eosMagic48)
	marks := scanMagics(body)

	require.Len(t, marks, 3)
	require.False(t, marks[0].eos)
	require.False(t, marks[1].eos)
	require.True(t, marks[2].eos)
}

func TestScanMagicsStopsAtFirstEOS(t *testing.T) {
	// A second member's block magic immediately follows the first
	// member's EOS; scanMagics must not walk into it.
	body := buildBitStream(t, blockMagic48, eosMagic48, blockMagic48)
	marks := scanMagics(body)

	require.Len(t, marks, 2)
	require.False(t, marks[0].eos)
	require.True(t, marks[1].eos)
}
