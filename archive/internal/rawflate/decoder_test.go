package rawflate

import (
	"bufio"
	"bytes"
	"compress/flate"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// encodeRaw compresses data with the standard library's raw deflate writer,
// giving us a real, valid DEFLATE bitstream to exercise the from-scratch
// decoder against without needing a second decoder to cross-check against.
func encodeRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decodeAll(t *testing.T, compressed []byte) []byte {
	t.Helper()
	br := bufio.NewReader(bytes.NewReader(compressed))
	d := NewDecoder(br)
	var out []byte
	for {
		data, final, err := d.ReadBlock()
		out = append(out, data...)
		if final {
			break
		}
		require.NoError(t, err)
	}
	return out
}

func TestDecodeRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"short":      []byte("hello, world"),
		"repetitive": bytes.Repeat([]byte("abcabcabcabc"), 100),
		"text":       []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200)),
		"binary":     makeBinary(5000),
	}
	for name, data := range cases {
		data := data
		t.Run(name, func(t *testing.T) {
			compressed := encodeRaw(t, data)
			got := decodeAll(t, compressed)
			require.Equal(t, data, got)
		})
	}
}

func makeBinary(n int) []byte {
	b := make([]byte, n)
	seed := uint32(12345)
	for i := range b {
		seed = seed*1664525 + 1013904223
		b[i] = byte(seed >> 24)
	}
	return b
}

// TestResumeMidStream checks that stopping after the first block, snapshotting
// the window, and resuming a fresh Decoder from that exact bit position
// with the snapshotted dictionary reproduces the same remaining output as
// decoding straight through.
func TestResumeMidStream(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789ABCDEFGHIJ"), 5000) // forces multiple blocks
	compressed := encodeRaw(t, data)

	full := decodeAll(t, compressed)
	require.Equal(t, data, full)

	br := bufio.NewReader(bytes.NewReader(compressed))
	d := NewDecoder(br)
	firstBlock, final, err := d.ReadBlock()
	require.NoError(t, err)
	if final {
		t.Skip("fixture compressed to a single block; nothing to resume")
	}
	byteOff, startBits := d.Boundary()
	dict := d.Snapshot()

	// Resume a fresh decoder at the recorded boundary.
	rest := compressed[byteOff:]
	br2 := bufio.NewReader(bytes.NewReader(rest))
	d2 := NewDecoder(br2)
	d2.SetDictionary(dict)
	require.NoError(t, d2.Resume(startBits))

	var resumed []byte
	for {
		chunk, final, err := d2.ReadBlock()
		resumed = append(resumed, chunk...)
		if final {
			break
		}
		require.NoError(t, err)
	}

	require.Equal(t, full, append(append([]byte{}, firstBlock...), resumed...))
}
