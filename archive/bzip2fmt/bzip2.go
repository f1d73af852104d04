// Package bzip2fmt implements random-access decoding of bzip2 archives by
// bit-scanning for block boundaries (bzip2's compressed blocks are
// independently decodable by construction) and reconstructing a
// standalone single-block stream per recorded block at read time.
package bzip2fmt

import (
	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// FormatByte identifies this format in the sidecar index header.
const FormatByte = 2

// Open constructs an Archive over a file already confirmed to start with
// the bzip2 magic bytes.
func Open(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (archive.Archive, error) {
	return archive.NewIndexedArchive(diskPath, virtualName, FormatByte, Indexer{}, Codec{}, opt, cache, pool)
}

// Register adds the bzip2 format to the archive package's format registry.
func Register() {
	archive.Register(archive.Format{
		Name:  "bzip2",
		Magic: Magic,
		Open:  Open,
	})
	archive.RegisterName(FormatByte, "bzip2")
}

var _ archive.IndexBuilder = Indexer{}
var _ archive.BlockCodec = Codec{}
