package lzopfmt

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
)

// buildStoredFixture hand-assembles a minimal lzop file with no
// checksums and every block stored uncompressed (src_len == dst_len),
// which exercises the indexer's structural block walk without needing a
// real LZO1X encoder.
func buildStoredFixture(t *testing.T, blockPayloads [][]byte) string {
	t.Helper()
	var buf []byte
	buf = append(buf, Magic...)
	buf = appendU16(buf, 0x0940)   // version
	buf = appendU16(buf, 0x0940)   // library version needed to extract
	buf = appendU16(buf, 0x0940)   // library version (re-read per quirk)
	buf = append(buf, 1)           // method
	buf = append(buf, 5)           // level
	buf = appendU32(buf, 0)        // flags: no checksums, no filter
	buf = appendU32(buf, 0)        // mode
	buf = appendU32(buf, 0)        // mtime
	buf = appendU32(buf, 0)        // mtime high
	buf = append(buf, 0)           // name length 0
	buf = appendU32(buf, 0xdeadbeef) // header checksum, unverified here

	for _, p := range blockPayloads {
		buf = appendU32(buf, uint32(len(p)))
		buf = appendU32(buf, uint32(len(p)))
		buf = append(buf, p...)
	}
	buf = appendU32(buf, 0) // end-of-blocks marker

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.lzo")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func appendU16(b []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.BigEndian.PutUint16(tmp, v)
	return append(b, tmp...)
}

func appendU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func TestLzopIndexerAndCodecStoredBlocks(t *testing.T) {
	a := []byte("the first block of data")
	b := []byte("a second, slightly longer block of uncompressed data")
	path := buildStoredFixture(t, [][]byte{a, b})

	h := archive.NewFileHandle(path)
	defer h.Close()

	blocks, extras, origSize, err := Indexer{}.BuildIndex(h, archiveopt.Default())
	require.NoError(t, err)
	require.Equal(t, int64(len(a)+len(b)), origSize)
	require.Len(t, blocks, 2)

	got0, err := Codec{}.DecodeBlock(h, blocks, extras, 0)
	require.NoError(t, err)
	require.Equal(t, a, got0)

	got1, err := Codec{}.DecodeBlock(h, blocks, extras, 1)
	require.NoError(t, err)
	require.Equal(t, b, got1)
}

func TestLzopIndexerRejectsBlockOverMaxBlockSize(t *testing.T) {
	a := []byte("the first block of data")
	b := []byte("a second, slightly longer block of uncompressed data")
	path := buildStoredFixture(t, [][]byte{a, b})

	h := archive.NewFileHandle(path)
	defer h.Close()

	opt := archiveopt.Default()
	opt.MaxBlockSize = int64(len(a)) // too small for the second, longer block

	_, _, _, err := Indexer{}.BuildIndex(h, opt)
	require.Error(t, err)
	require.ErrorIs(t, err, archive.ErrFormat)
}

func TestProbeMatchesLzopMagic(t *testing.T) {
	require.Equal(t, byte(0x89), Magic[0])
	require.Equal(t, byte('L'), Magic[1])
}
