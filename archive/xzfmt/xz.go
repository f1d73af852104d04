package xzfmt

import (
	"github.com/rclone/archivefs/archive"
	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// FormatByte identifies this format in the sidecar index header.
const FormatByte = 3

// Open constructs an Archive over a file already confirmed to start with
// the xz magic bytes.
func Open(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (archive.Archive, error) {
	return archive.NewIndexedArchive(diskPath, virtualName, FormatByte, Indexer{}, Codec{}, opt, cache, pool)
}

// Register adds the xz format to the archive package's format registry.
func Register() {
	archive.Register(archive.Format{
		Name:  "xz",
		Magic: Magic,
		Open:  Open,
	})
	archive.RegisterName(FormatByte, "xz")
}

var _ archive.IndexBuilder = Indexer{}
var _ archive.BlockCodec = Codec{}
