package archive

import (
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// FileHandle provides pooled, positioned reads over a raw archive file. It
// exists because the decode path does many small ReadAt calls at scattered
// offsets (one per compressed block), and opening a new *os.File per read
// would be wasteful; instead a small pool of real file descriptors is kept,
// preferring to hand back one whose previous read ended exactly where the
// next read wants to start, and otherwise the oldest pooled one.
//
// FileHandle is safe for concurrent use.
type FileHandle struct {
	path string

	fhsMu sync.Mutex
	fhs   []pooledHandle
}

type pooledHandle struct {
	offset int64
	f      *os.File
}

// maxPooledHandles caps how many idle descriptors FileHandle keeps in its
// pool. Past this, released handles are actually closed rather than pooled;
// concurrent reads may still have more descriptors open at the same time.
const maxPooledHandles = 8

// NewFileHandle returns a FileHandle for reading path. The file is neither
// opened nor read here; it's opened lazily, on first acquire, so that
// archives that are never read don't consume a descriptor.
func NewFileHandle(path string) *FileHandle {
	return &FileHandle{path: path}
}

// acquire returns an *os.File positioned, or at least known, to be at
// offset off if one is pooled; otherwise it opens a fresh descriptor.
func (h *FileHandle) acquire(off int64) (*os.File, error) {
	h.fhsMu.Lock()
	if len(h.fhs) > 0 {
		for i, ph := range h.fhs {
			if ph.offset == off {
				h.fhs = append(h.fhs[:i], h.fhs[i+1:]...)
				h.fhsMu.Unlock()
				return ph.f, nil
			}
		}
		ph := h.fhs[0]
		h.fhs = h.fhs[1:]
		h.fhsMu.Unlock()
		return ph.f, nil
	}
	h.fhsMu.Unlock()

	f, err := os.Open(h.path)
	if err != nil {
		return nil, wrapf(ErrIO, err, "open %s", h.path)
	}
	return f, nil
}

// release returns f to the pool, tagged with the offset it will read from
// next without seeking (i.e. where the previous read left off).
func (h *FileHandle) release(f *os.File, off int64) {
	h.fhsMu.Lock()
	defer h.fhsMu.Unlock()

	if len(h.fhs) >= maxPooledHandles {
		if err := f.Close(); err != nil {
			log.WithError(err).WithField("path", h.path).Debug("closing excess pooled handle")
		}
		return
	}
	h.fhs = append(h.fhs, pooledHandle{offset: off, f: f})
}

// ReadAt reads len(p) bytes starting at offset off in the archive file. It
// is safe to call concurrently; each call uses its own pooled descriptor.
func (h *FileHandle) ReadAt(p []byte, off int64) (int, error) {
	f, err := h.acquire(off)
	if err != nil {
		return 0, err
	}
	n, err := f.ReadAt(p, off)
	h.release(f, off+int64(n))
	if err != nil && err != io.EOF {
		return n, wrapf(ErrIO, err, "read %s at %d", h.path, off)
	}
	return n, err
}

// Size returns the size in bytes of the underlying archive file.
func (h *FileHandle) Size() (int64, error) {
	fi, err := os.Stat(h.path)
	if err != nil {
		return 0, wrapf(ErrIO, err, "stat %s", h.path)
	}
	return fi.Size(), nil
}

// ModTime returns the modification time of the underlying archive file, used
// to detect a stale sidecar index.
func (h *FileHandle) ModTime() (int64, error) {
	fi, err := os.Stat(h.path)
	if err != nil {
		return 0, wrapf(ErrIO, err, "stat %s", h.path)
	}
	return fi.ModTime().UnixNano(), nil
}

// Close closes every pooled descriptor. The FileHandle must not be used
// afterwards.
func (h *FileHandle) Close() error {
	h.fhsMu.Lock()
	defer h.fhsMu.Unlock()

	var first error
	for _, ph := range h.fhs {
		if err := ph.f.Close(); err != nil && first == nil {
			first = err
		}
	}
	h.fhs = nil
	return first
}
