package gzipfmt

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

func writeGzipFixture(t *testing.T, members [][]byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, m := range members {
		w := gzip.NewWriter(f)
		_, err := w.Write(m)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	return path
}

func TestIndexerAndCodecRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 5000))
	path := writeGzipFixture(t, [][]byte{data})

	h := archive.NewFileHandle(path)
	defer h.Close()

	opt := archiveopt.Default()
	opt.GzipBlockFactor = 2 // force multiple blocks for a fixture this size

	blocks, extras, origSize, err := Indexer{}.BuildIndex(h, opt)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), origSize)
	require.NotEmpty(t, blocks)

	var out []byte
	for i := range blocks {
		chunk, err := Codec{}.DecodeBlock(h, blocks, extras, i)
		require.NoError(t, err)
		require.EqualValues(t, blocks[i].UncompSize, len(chunk))
		out = append(out, chunk...)
	}
	require.Equal(t, data, out)
}

func TestIndexerConcatenatedMembers(t *testing.T) {
	a := []byte(strings.Repeat("alpha beta gamma ", 1000))
	b := []byte(strings.Repeat("delta epsilon zeta ", 1000))
	path := writeGzipFixture(t, [][]byte{a, b})

	h := archive.NewFileHandle(path)
	defer h.Close()

	opt := archiveopt.Default()
	blocks, extras, origSize, err := Indexer{}.BuildIndex(h, opt)
	require.NoError(t, err)
	require.Equal(t, int64(len(a)+len(b)), origSize)

	var out []byte
	for i := range blocks {
		chunk, err := Codec{}.DecodeBlock(h, blocks, extras, i)
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	require.Equal(t, append(append([]byte{}, a...), b...), out)
}

func TestArchiveReadAtRandomAccess(t *testing.T) {
	data := []byte(strings.Repeat("0123456789", 20000))
	path := writeGzipFixture(t, [][]byte{data})

	h := archive.NewFileHandle(path)
	defer h.Close()

	opt := archiveopt.Default()
	opt.GzipBlockFactor = 1
	blocks, extras, origSize, err := Indexer{}.BuildIndex(h, opt)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), origSize)
	require.Greater(t, len(blocks), 1, "fixture should have produced more than one block")

	// Read a range straddling a block boundary using only the codec,
	// simulating what baseArchive.ReadAt does at a higher level.
	mid := blocks[1].UncompOffset
	start := mid - 50
	want := data[start : start+200]

	var got []byte
	for _, blk := range blocks {
		blkEnd := blk.UncompOffset + blk.UncompSize
		if blkEnd <= start || blk.UncompOffset >= start+200 {
			continue
		}
		i := indexOf(blocks, blk)
		chunk, err := Codec{}.DecodeBlock(h, blocks, extras, i)
		require.NoError(t, err)
		lo := int64(0)
		if start > blk.UncompOffset {
			lo = start - blk.UncompOffset
		}
		hi := blk.UncompSize
		if start+200 < blkEnd {
			hi = start + 200 - blk.UncompOffset
		}
		got = append(got, chunk[lo:hi]...)
	}
	require.Equal(t, want, got)
}

func indexOf(blocks []archive.Block, target archive.Block) int {
	for i, b := range blocks {
		if b == target {
			return i
		}
	}
	return -1
}

func TestIndexerRejectsBlockOverMaxBlockSize(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 5000))
	path := writeGzipFixture(t, [][]byte{data})

	h := archive.NewFileHandle(path)
	defer h.Close()

	opt := archiveopt.Default()
	opt.MaxBlockSize = 1024 // smaller than the single block this fixture decodes to

	_, _, _, err := Indexer{}.BuildIndex(h, opt)
	require.Error(t, err)
	require.ErrorIs(t, err, archive.ErrFormat)
}

func TestOpenPersistsAndReusesSidecarIndex(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 5000))
	path := writeGzipFixture(t, [][]byte{data})
	idxPath := path + ".idx"

	opt := archiveopt.Default()
	opt.GzipBlockFactor = 2

	cache, err := blockcache.New(1<<20, nil)
	require.NoError(t, err)
	pool := workerpool.New(2, nil)
	defer pool.Close()

	a1, err := Open(path, "fixture", opt, cache, pool)
	require.NoError(t, err)
	require.NoError(t, a1.Close())

	idxInfo1, err := os.Stat(idxPath)
	require.NoError(t, err, "sidecar index should have been written")

	// Reopening the same archive must load the persisted index rather
	// than treat it as stale and rebuild it: the .idx file's mtime
	// should be unchanged (readIndexFile validates against the archive
	// file's own size/mtime, not the logical decompressed size).
	a2, err := Open(path, "fixture", opt, cache, pool)
	require.NoError(t, err)
	defer a2.Close()

	idxInfo2, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.Equal(t, idxInfo1.ModTime(), idxInfo2.ModTime(), "second open rebuilt the sidecar index instead of reusing it")
	require.Equal(t, int64(len(data)), a2.Size())
}

func TestProbeMatchesGzipMagic(t *testing.T) {
	require.True(t, bytes.HasPrefix([]byte{0x1f, 0x8b, 0x08}, Magic))
}
