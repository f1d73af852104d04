package archive

import "sync"

// OpenFile is a per-open-handle view onto an Archive. It exists separately
// from Archive itself because readahead state (the last offset read, and
// whether the calling FUSE handle is reading sequentially) belongs to one
// open handle, not to the archive as a whole, which may be open for several
// concurrent readers doing unrelated random-access reads.
//
// Grounded on backend/archive/squashfs/cache.go's cache.ReadAt: that type
// also separates "a pooled resource shared by the archive" (there, *os.File
// handles; here, the decoded-block cache and worker pool already owned by
// Archive) from "the thing a single caller reads through". Here the
// per-handle addition is readahead, not descriptor pooling, since Archive's
// ReadAt already pools descriptors via FileHandle.
type OpenFile struct {
	archive Archive

	mu           sync.Mutex
	lastEnd      int64
	sawFirstRead bool
	prefetching  bool
}

// OpenHandle wraps archive in an OpenFile that tracks this caller's access
// pattern independently of any other open handle on the same archive.
func OpenHandle(archive Archive) *OpenFile {
	return &OpenFile{archive: archive}
}

// ReadAt behaves like Archive.ReadAt, and additionally kicks off an
// asynchronous readahead of the block containing the byte just past this
// read's range when the read pattern looks sequential (this read started where the
// previous one on this handle ended). The readahead result lands in the
// shared block cache, so a following sequential read finds it already
// decoded instead of paying decode latency inline.
func (o *OpenFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := o.archive.ReadAt(p, off)

	o.mu.Lock()
	sequential := o.sawFirstRead && off == o.lastEnd
	o.lastEnd = off + int64(n)
	o.sawFirstRead = true
	shouldPrefetch := sequential && !o.prefetching
	if shouldPrefetch {
		o.prefetching = true
	}
	o.mu.Unlock()

	if shouldPrefetch {
		go o.prefetch(o.lastEndSnapshot())
	}

	return n, err
}

func (o *OpenFile) lastEndSnapshot() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastEnd
}

// prefetch warms the cache for the block containing offset from, by issuing
// a one-byte read at from and discarding the result. Archive.ReadAt already
// routes every read through the shared cache and worker pool, so the
// prefetch gets the same single-flight collapsing a real concurrent read for
// the same bytes would.
func (o *OpenFile) prefetch(from int64) {
	defer func() {
		o.mu.Lock()
		o.prefetching = false
		o.mu.Unlock()
	}()

	if from < 0 || from >= o.archive.Size() {
		return
	}
	var probe [1]byte
	_, _ = o.archive.ReadAt(probe[:], from)
}

// Size returns the archive's logical size.
func (o *OpenFile) Size() int64 { return o.archive.Size() }

// Close releases the underlying archive. Multiple OpenFiles sharing the same
// Archive should not both call Close; ownership of the Archive's lifetime is
// the caller's to manage (cmd/archivefs keeps one Archive per mounted path
// and opens an OpenFile per FUSE handle on it).
func (o *OpenFile) Close() error { return o.archive.Close() }
