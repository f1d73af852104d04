// Package gzipfmt implements random-access decoding of single-stream (or
// concatenated-member) gzip archives on top of a from-scratch RFC 1951
// decoder, so a read at an arbitrary logical offset only has to replay
// one recorded block rather than the whole stream.
package gzipfmt

import (
	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// FormatByte identifies this format in the sidecar index header.
const FormatByte = 1

// Open constructs an Archive over a file already confirmed to start with
// the gzip magic bytes. It matches archive.Format.Open's signature so it
// can be registered directly.
func Open(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (archive.Archive, error) {
	return archive.NewIndexedArchive(diskPath, virtualName, FormatByte, Indexer{}, Codec{}, opt, cache, pool)
}

// Register adds the gzip format to the archive package's format registry.
// Called once from cmd/archivefs's wiring.
func Register() {
	archive.Register(archive.Format{
		Name:  "gzip",
		Magic: Magic,
		Open:  Open,
	})
	archive.RegisterName(FormatByte, "gzip")
}

var _ archive.IndexBuilder = Indexer{}
var _ archive.BlockCodec = Codec{}
