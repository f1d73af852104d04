// Package pathutil derives the virtual filename a mounted archive is shown
// under from its on-disk path, and detects collisions between archives
// that would derive the same virtual name.
package pathutil

import (
	"path/filepath"
	"strings"
)

// suffixMap lists the recognized single-stream compressed extensions and
// the virtual extension they're replaced with. ".tpxz" (pixz's tarball
// marker) maps to ".tar" like the others; anything not in this map keeps
// its original extension stripped with nothing substituted, which is the
// fallback used by VirtualName below.
var suffixMap = map[string]string{
	".gz":   "",
	".bz2":  "",
	".xz":   "",
	".lzo":  "",
	".tgz":  ".tar",
	".tbz2": ".tar",
	".txz":  ".tar",
	".tpxz": ".tar",
}

// VirtualName derives the name an archive at diskPath should be presented
// under inside the mounted filesystem: the base name with its compression
// extension stripped (and, for the short tarball forms like .tgz, expanded
// back to .tar).
func VirtualName(diskPath string) string {
	base := filepath.Base(diskPath)
	ext := strings.ToLower(filepath.Ext(base))
	if repl, ok := suffixMap[ext]; ok {
		return base[:len(base)-len(ext)] + repl
	}
	// Unknown extension: strip it anyway so e.g. "data.Z" shows as "data".
	if ext != "" {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// Collision reports whether two archives, identified by their on-disk
// paths, would be mounted under the same virtual name.
func Collision(a, b string) bool {
	return VirtualName(a) == VirtualName(b)
}
