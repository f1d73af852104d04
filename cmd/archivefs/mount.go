package main

import (
	"context"
	"io"
	"os"
	"sort"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	log "github.com/sirupsen/logrus"

	"github.com/rclone/archivefs/archive"
)

// mountFUSE mounts mountpoint read-only and returns the live connection.
// Grounded on bazil.org/fuse's own public fuse.Mount(dir, ...Option) contract
// (fs/serve_test.go's TestMountpointDoesNotExist exercises the same call
// shape, just without the read-only/name options a real mount wants).
func mountFUSE(mountpoint string, debug bool) (*fuse.Conn, error) {
	opts := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName("archivefs"),
		fuse.Subtype("archivefs"),
	}
	if debug {
		fuse.Debug = func(msg interface{}) {
			log.WithField("fuse", msg).Info("fuse protocol")
		}
	}
	return fuse.Mount(mountpoint, opts...)
}

// serve runs the FUSE request loop until the connection closes (on
// unmount). archives maps each mounted file's virtual name to its already
// opened archive.Archive.
func serve(conn *fuse.Conn, archives map[string]archive.Archive) error {
	return fs.Serve(conn, &archiveFS{archives: archives})
}

// unmount requests the kernel unmount mountpoint, which causes the pending
// fs.Serve call to return.
func unmount(mountpoint string) error {
	return fuse.Unmount(mountpoint)
}

// archiveFS implements fs.FS: a flat, read-only directory of the mounted
// archives' logical (decompressed) files.
type archiveFS struct {
	archives map[string]archive.Archive
}

var _ fs.FS = (*archiveFS)(nil)

func (a *archiveFS) Root() (fs.Node, error) {
	return &rootDir{archives: a.archives}, nil
}

// rootDir is the mount's single directory, listing every mounted archive's
// virtual name as a regular file. Grounded on
// backend/archive/squashfs/squashfs.go's Fs/Object split, adapted here to a
// bazil.org/fuse fs.Node/fs.Dirent pair instead of rclone's own vfs.Node.
type rootDir struct {
	archives map[string]archive.Archive
}

var _ fs.Node = (*rootDir)(nil)
var _ fs.HandleReadDirAller = (*rootDir)(nil)
var _ fs.NodeStringLookuper = (*rootDir)(nil)

func (d *rootDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *rootDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	names := make([]string, 0, len(d.archives))
	for name := range d.archives {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.Dirent{Name: name, Type: fuse.DT_File})
	}
	return entries, nil
}

func (d *rootDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	a, ok := d.archives[name]
	if !ok {
		return nil, syscall.ENOENT
	}
	return &archiveFile{name: name, archive: a}, nil
}

// archiveFile is the read-only regular file view of one mounted archive's
// decompressed content.
type archiveFile struct {
	name    string
	archive archive.Archive
}

var _ fs.Node = (*archiveFile)(nil)
var _ fs.NodeOpener = (*archiveFile)(nil)

func (f *archiveFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.archive.Size())
	return nil
}

// Open rejects any write intent and hands back a per-handle adapter that
// tracks this handle's own sequential-readahead state independently of any
// other handle open on the same archive.
func (f *archiveFile) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if req.Flags.IsWriteOnly() || req.Flags.IsReadWrite() {
		return nil, syscall.EACCES
	}
	return &fileHandle{of: archive.OpenHandle(f.archive)}, nil
}

// fileHandle is one open handle on an archiveFile.
type fileHandle struct {
	of *archive.OpenFile
}

var _ fs.HandleReader = (*fileHandle)(nil)
var _ fs.HandleReleaser = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.of.ReadAt(buf, req.Offset)
	if err != nil && err != io.EOF {
		return err
	}
	resp.Data = buf[:n]
	return nil
}

// Release doesn't close the underlying Archive: it's shared across every
// handle opened on this mounted file for the life of the mount, and is
// closed once, at unmount, in main's cleanup.
func (h *fileHandle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return nil
}
