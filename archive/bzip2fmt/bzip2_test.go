package bzip2fmt

import (
	"bytes"
	"compress/bzip2"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
)

// writeBzip2Fixture shells out to the system bzip2 binary, since the
// standard library only ships a decoder. Skips the test if bzip2 isn't
// installed, rather than failing the build.
func writeBzip2Fixture(t *testing.T, data []byte) string {
	t.Helper()
	path, err := exec.LookPath("bzip2")
	if err != nil {
		t.Skip("bzip2 binary not available")
	}

	dir := t.TempDir()
	raw := filepath.Join(dir, "fixture")
	require.NoError(t, os.WriteFile(raw, data, 0o644))

	cmd := exec.Command(path, "-9", "-k", "-f", raw)
	require.NoError(t, cmd.Run())
	return raw + ".bz2"
}

func TestBzip2IndexerAndCodecRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("able was i ere i saw elba. ", 50000))
	fixture := writeBzip2Fixture(t, data)

	h := archive.NewFileHandle(fixture)
	defer h.Close()

	blocks, extras, origSize, err := Indexer{}.BuildIndex(h, archiveopt.Default())
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), origSize)

	var out []byte
	for i := range blocks {
		chunk, err := Codec{}.DecodeBlock(h, blocks, extras, i)
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	require.Equal(t, data, out)
}

// TestStdlibDecodesWholeFixture sanity-checks the fixture generator
// itself against the standard library's whole-stream decoder, so a
// failure in TestBzip2IndexerAndCodecRoundTrip can be attributed to this
// package rather than to the fixture.
func TestStdlibDecodesWholeFixture(t *testing.T) {
	data := []byte(strings.Repeat("xyzzy ", 10000))
	fixture := writeBzip2Fixture(t, data)

	f, err := os.Open(fixture)
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(bzip2.NewReader(f))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBzip2IndexerRejectsBlockOverMaxBlockSize(t *testing.T) {
	data := []byte(strings.Repeat("able was i ere i saw elba. ", 50000))
	fixture := writeBzip2Fixture(t, data)

	h := archive.NewFileHandle(fixture)
	defer h.Close()

	opt := archiveopt.Default()
	opt.MaxBlockSize = 1024

	_, _, _, err := Indexer{}.BuildIndex(h, opt)
	require.Error(t, err)
	require.ErrorIs(t, err, archive.ErrFormat)
}

func TestProbeMatchesBzip2Magic(t *testing.T) {
	require.True(t, bytes.HasPrefix([]byte("BZh91AY"), Magic))
}
