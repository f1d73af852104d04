// Package lzopfmt implements random-access decoding of lzop archives.
// Unlike gzip, bzip2 and xz, lzop's on-disk format is already a
// sequence of independently decodable blocks with their sizes recorded
// inline, so indexing it is a cheap structural walk rather than a decode
// or a bit-level scan.
package lzopfmt

import (
	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// FormatByte identifies this format in the sidecar index header.
const FormatByte = 4

// Open constructs an Archive over a file already confirmed to start with
// the lzop magic bytes.
func Open(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (archive.Archive, error) {
	return archive.NewIndexedArchive(diskPath, virtualName, FormatByte, Indexer{}, Codec{}, opt, cache, pool)
}

// Register adds the lzop format to the archive package's format registry.
func Register() {
	archive.Register(archive.Format{
		Name:  "lzop",
		Magic: Magic,
		Open:  Open,
	})
	archive.RegisterName(FormatByte, "lzop")
}

var _ archive.IndexBuilder = Indexer{}
var _ archive.BlockCodec = Codec{}
