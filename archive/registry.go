package archive

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/rclone/archivefs/archive/archiveopt"
	"github.com/rclone/archivefs/archive/blockcache"
	"github.com/rclone/archivefs/archive/workerpool"
)

// Format describes one pluggable archive codec: how to recognize it by
// magic bytes and how to construct an Archive for a file that matches.
// Grounded on backend/archive/archiver/archiver.go's Archiver{New,
// Extension} / Archivers / Register pattern — the same shape of "a
// constructor plus a match predicate, collected into a package slice",
// adapted from per-cloud-Fs constructors to per-compression-format
// constructors keyed by magic bytes instead of by path extension.
type Format struct {
	// Name identifies the format for logging. The sidecar index header
	// records a per-package format byte instead (see RegisterName).
	Name string
	// Magic is the byte sequence a file must start with to match this
	// format. Probe checks use this; a Format with an empty Magic is
	// never matched by Probe.
	Magic []byte
	// Open constructs an Archive for diskPath, which has already matched
	// Magic.
	Open func(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (Archive, error)
}

// formats is the set of registered formats, probed in registration order.
var formats []Format

// formatNames maps the sidecar-index format byte each Format's Open closes
// over back to its human-readable Name, for metrics labeling. Populated by
// Register; a format byte that was never registered yields "unknown".
var formatNames = map[byte]string{}

// Register adds fs to the set of known formats.
func Register(fs ...Format) {
	formats = append(formats, fs...)
}

// RegisterName records the sidecar format byte a format package uses so
// metrics can label decodes by format name rather than by raw byte. Format
// packages call this alongside Register in their own Register functions.
func RegisterName(formatByte byte, name string) {
	formatNames[formatByte] = name
}

func formatName(formatByte byte) string {
	if n, ok := formatNames[formatByte]; ok {
		return n
	}
	return "unknown"
}

// Probe reads the first few bytes of diskPath and returns the first
// registered format whose magic matches, or ErrFormat if none do.
func Probe(diskPath string) (Format, error) {
	f, err := os.Open(diskPath)
	if err != nil {
		return Format{}, wrapf(ErrIO, err, "open %s", diskPath)
	}
	defer f.Close()

	maxMagic := 0
	for _, ft := range formats {
		if len(ft.Magic) > maxMagic {
			maxMagic = len(ft.Magic)
		}
	}
	head := make([]byte, maxMagic)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return Format{}, wrapf(ErrFormat, err, "reading magic bytes of %s", diskPath)
	}
	head = head[:n]

	for _, ft := range formats {
		if len(ft.Magic) == 0 || len(head) < len(ft.Magic) {
			continue
		}
		match := true
		for i, b := range ft.Magic {
			if head[i] != b {
				match = false
				break
			}
		}
		if match {
			return ft, nil
		}
	}
	log.WithField("path", diskPath).Debug("no registered format matches")
	return Format{}, wrapf(ErrFormat, fmt.Errorf("no match for %s", diskPath), "probing format")
}

// Open probes diskPath and opens it with the matching format.
func Open(diskPath, virtualName string, opt archiveopt.Options, cache *blockcache.Cache, pool *workerpool.Pool) (Archive, error) {
	ft, err := Probe(diskPath)
	if err != nil {
		return nil, err
	}
	return ft.Open(diskPath, virtualName, opt, cache, pool)
}
