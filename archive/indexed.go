package archive

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// Archive is the contract every format implements: spec.md's IndexedArchive
// skeleton, named after original_source/CompressedFile.h's common
// open/size/chunks interface (SPEC_FULL.md §5).
type Archive interface {
	// VirtualName is the name this archive is presented under in the
	// mounted filesystem.
	VirtualName() string
	// Size returns the logical (decompressed) size in bytes.
	Size() int64
	// ReadAt services a random-access read against the decompressed
	// logical stream, decoding only the blocks the range touches.
	ReadAt(p []byte, off int64) (int, error)
	// Close releases the archive's file handle.
	Close() error
}

// BlockCodec decodes a single indexed block. Implemented once per format
// (gzipfmt, bzip2fmt, xzfmt, lzopfmt).
type BlockCodec interface {
	// DecodeBlock returns exactly blocks[i].UncompSize bytes: the
	// decompressed content of block i. extras[i] is whatever
	// format-specific payload the indexer attached to that block
	// (dictionary, level byte, ...).
	DecodeBlock(h *FileHandle, blocks []Block, extras [][]byte, i int) ([]byte, error)
}

// IndexBuilder scans a raw archive and produces its block index. One
// implementation per format.
type IndexBuilder interface {
	BuildIndex(h *FileHandle, opt archiveopt.Options) (blocks []Block, extras [][]byte, origSize int64, err error)
}

// baseArchive is the Archive every format's Open returns (through
// NewIndexedArchive), parameterized by that format's codec: it owns
// the pooled FileHandle, the loaded (or built) index, and the shared
// random-access ReadAt logic that maps a byte range onto blocks and pulls
// each through the shared block cache.
type baseArchive struct {
	name     string
	diskPath string
	idxPath  string
	format   byte

	fh      *FileHandle
	origSize int64
	blocks  []Block
	extras  [][]byte

	codec BlockCodec
	cache *blockcache.Cache
	pool  *workerpool.Pool
}

// NewIndexedArchive opens diskPath, loads its sidecar index if it's still
// valid for the file's current size/mtime, otherwise builds one and
// persists it (best-effort: a failure to write the sidecar is logged, not
// fatal, since the archive is still perfectly usable without a cached
// index). Every format package's constructor (gzipfmt.Open, bzip2fmt.Open,
// ...) is a thin wrapper around this.
func NewIndexedArchive(diskPath, virtualName string, format byte, builder IndexBuilder, codec BlockCodec, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (Archive, error) {
	fh := NewFileHandle(diskPath)
	size, err := fh.Size()
	if err != nil {
		return nil, err
	}
	mtime, err := fh.ModTime()
	if err != nil {
		return nil, err
	}
	idxPath := diskPath + ".idx"

	blocks, extras, err := readIndexFile(idxPath, format, size, mtime)
	if err != nil {
		log.WithFields(log.Fields{"archive": diskPath, "reason": err}).Debug("building index")
		var origSize int64
		blocks, extras, origSize, err = builder.BuildIndex(fh, opt)
		if err != nil {
			return nil, err
		}
		if err := writeIndexFile(idxPath, format, size, mtime, blocks, extras); err != nil {
			log.WithError(err).WithField("archive", diskPath).Warn("failed to persist sidecar index")
		}
		return &baseArchive{
			name: virtualName, diskPath: diskPath, idxPath: idxPath, format: format,
			fh: fh, origSize: origSize, blocks: blocks, extras: extras,
			codec: codec, cache: cache, pool: pool,
		}, nil
	}

	return &baseArchive{
		name: virtualName, diskPath: diskPath, idxPath: idxPath, format: format,
		fh: fh, origSize: blockList(blocks).uncompressedSize(), blocks: blocks, extras: extras,
		codec: codec, cache: cache, pool: pool,
	}, nil
}

func (a *baseArchive) VirtualName() string { return a.name }
func (a *baseArchive) Size() int64         { return a.origSize }

func (a *baseArchive) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, wrapf(ErrIO, io.ErrClosedPipe, "negative offset %d", off)
	}
	if off >= a.origSize {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) {
		cur := off + int64(total)
		if cur >= a.origSize {
			break
		}
		i := blockList(a.blocks).findBlock(cur)
		if i < 0 {
			break
		}
		blk := a.blocks[i]
		data, err := a.cache.Get(blockcache.Key{Archive: a.diskPath, Offset: blk.UncompOffset}, func() ([]byte, error) {
			fut := a.pool.Submit(context.Background(), func() ([]byte, error) {
				start := time.Now()
				data, err := a.codec.DecodeBlock(a.fh, a.blocks, a.extras, i)
				if m := a.cache.Metrics(); m != nil {
					m.ObserveDecode(formatName(a.format), time.Since(start))
				}
				return data, err
			})
			return fut.Wait(context.Background())
		})
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"archive":     a.diskPath,
				"block":       i,
				"comp_offset": blk.CompOffset,
			}).Warn("block decode failed")
			return total, err
		}
		within := int(cur - blk.UncompOffset)
		n := copy(p[total:], data[within:])
		total += n
	}
	var err error
	if total < len(p) {
		err = io.EOF
	}
	return total, err
}

func (a *baseArchive) Close() error {
	a.cache.Purge(a.diskPath)
	return a.fh.Close()
}
