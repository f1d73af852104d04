package archive

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
)

// Sidecar index file format, shared by every codec. A format byte
// identifies which codec wrote it; the block records themselves are a
// common 4-int64 shape (see Block) plus an opaque, format-owned "extra"
// byte slice per block (a gzip dictionary, a bzip2 level byte, an xz
// record reference, ...). Common code never interprets extra; it only
// stores and retrieves it.
const (
	indexMagic   = "ARFX"
	indexVersion = uint32(1)
)

// writeIndexFile atomically writes a sidecar index to diskPath+".idx" via
// a temp file + rename, so a crash mid-write never leaves a corrupt index
// that looks valid. fileSize and fileModTime are the raw on-disk archive's
// own size/mtime (not the logical decompressed size), since that's what
// readIndexFile has available to compare against on the next open without
// decoding anything.
func writeIndexFile(idxPath string, format byte, fileSize, fileModTime int64, blocks []Block, extras [][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(idxPath), "archivefs-idx-*")
	if err != nil {
		return wrapf(ErrIO, err, "create temp index for %s", idxPath)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	if err := encodeIndex(bw, format, fileSize, fileModTime, blocks, extras); err != nil {
		_ = tmp.Close()
		return wrapf(ErrIO, err, "write temp index for %s", idxPath)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return wrapf(ErrIO, err, "flush temp index for %s", idxPath)
	}
	if err := tmp.Close(); err != nil {
		return wrapf(ErrIO, err, "close temp index for %s", idxPath)
	}
	if err := os.Rename(tmpName, idxPath); err != nil {
		return wrapf(ErrIO, err, "rename temp index into place for %s", idxPath)
	}
	return nil
}

func encodeIndex(w io.Writer, format byte, fileSize, fileModTime int64, blocks []Block, extras [][]byte) error {
	var hdr [4 + 4 + 1 + 8 + 8 + 4]byte
	copy(hdr[0:4], indexMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], indexVersion)
	hdr[8] = format
	binary.LittleEndian.PutUint64(hdr[9:17], uint64(fileSize))
	binary.LittleEndian.PutUint64(hdr[17:25], uint64(fileModTime))
	binary.LittleEndian.PutUint32(hdr[25:29], uint32(len(blocks)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	var rec [4 * 8]byte
	for i, b := range blocks {
		binary.LittleEndian.PutUint64(rec[0:8], uint64(b.CompOffset))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(b.CompSize))
		binary.LittleEndian.PutUint64(rec[16:24], uint64(b.UncompOffset))
		binary.LittleEndian.PutUint64(rec[24:32], uint64(b.UncompSize))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
		var extra []byte
		if i < len(extras) {
			extra = extras[i]
		}
		var elen [4]byte
		binary.LittleEndian.PutUint32(elen[:], uint32(len(extra)))
		if _, err := w.Write(elen[:]); err != nil {
			return err
		}
		if len(extra) > 0 {
			if _, err := w.Write(extra); err != nil {
				return err
			}
		}
	}
	return nil
}

// readIndexFile reads and validates a sidecar index against the archive's
// current size and mtime, returning ErrIndexStale if either has changed
// since the index was built.
func readIndexFile(idxPath string, format byte, curSize, curModTime int64) (blocks []Block, extras [][]byte, err error) {
	f, err := os.Open(idxPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrIndexStale
		}
		return nil, nil, wrapf(ErrIO, err, "open index %s", idxPath)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var hdr [4 + 4 + 1 + 8 + 8 + 4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, nil, ErrIndexStale
	}
	if string(hdr[0:4]) != indexMagic {
		return nil, nil, ErrIndexStale
	}
	if binary.LittleEndian.Uint32(hdr[4:8]) != indexVersion {
		return nil, nil, ErrIndexStale
	}
	if hdr[8] != format {
		return nil, nil, ErrIndexStale
	}
	fileSize := int64(binary.LittleEndian.Uint64(hdr[9:17]))
	fileModTime := int64(binary.LittleEndian.Uint64(hdr[17:25]))
	if fileSize != curSize || fileModTime != curModTime {
		return nil, nil, ErrIndexStale
	}
	n := binary.LittleEndian.Uint32(hdr[25:29])

	blocks = make([]Block, n)
	extras = make([][]byte, n)
	var rec [4 * 8]byte
	var elen [4]byte
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, nil, wrapf(ErrIO, err, "read block %d of %s", i, idxPath)
		}
		blocks[i] = Block{
			CompOffset:   int64(binary.LittleEndian.Uint64(rec[0:8])),
			CompSize:     int64(binary.LittleEndian.Uint64(rec[8:16])),
			UncompOffset: int64(binary.LittleEndian.Uint64(rec[16:24])),
			UncompSize:   int64(binary.LittleEndian.Uint64(rec[24:32])),
		}
		if _, err := io.ReadFull(br, elen[:]); err != nil {
			return nil, nil, wrapf(ErrIO, err, "read extra length for block %d of %s", i, idxPath)
		}
		l := binary.LittleEndian.Uint32(elen[:])
		if l > 0 {
			extra := make([]byte, l)
			if _, err := io.ReadFull(br, extra); err != nil {
				return nil, nil, wrapf(ErrIO, err, "read extra for block %d of %s", i, idxPath)
			}
			extras[i] = extra
		}
	}
	return blocks, extras, nil
}
