// Package archiveopt holds the tunables shared by every archive format and
// the pieces built on top of them (cache, worker pool). The struct is
// modeled on rclone's backend Options convention (a plain struct with
// config tags) even though here the values are bound directly from CLI
// flags in cmd/archivefs rather than through a config-file loader.
package archiveopt

// Options holds the knobs spec.md's data model calls out by name:
// min_dict_block_factor (GzipBlockFactor), a cap on block size, the
// decoded-block cache budget, and the worker pool size.
type Options struct {
	// GzipBlockFactor is the minimum number of 32 KiB windows of
	// uncompressed output that must separate two recorded gzip index
	// boundaries. Higher values mean a smaller index and cheaper builds,
	// at the cost of more bytes to discard on a random-access read that
	// lands between recorded boundaries.
	GzipBlockFactor int `config:"gzip_block_factor"`
	// MaxBlockSize caps how large a single decoded block is allowed to
	// be, in bytes, across every format. A block discovered larger than
	// this is a format-too-coarse error: the indexer rejects the archive
	// rather than build an index that could force an unbounded single
	// allocation at decode time (spec.md §4.2).
	MaxBlockSize int64 `config:"max_block_size"`
	// CacheSize is the maximum total number of decoded bytes (summed
	// across every Ready block, across all open archives) the block cache
	// will hold at once (spec.md §2.8/§4.8/§8's cache-bound property).
	CacheSize int64 `config:"cache_size"`
	// Workers is the number of goroutines in the decode worker pool.
	Workers int `config:"workers"`
	// IndexMemLimit is the largest xz stream index field, in bytes, that
	// building the sidecar index reads into memory; an archive whose index
	// field is larger is rejected rather than read in part (spec.md §4.5,
	// grounded on PixzFile.h's bounded index behavior).
	IndexMemLimit int64 `config:"index_mem_limit"`
}

// Default returns the option set used when no flags override it.
func Default() Options {
	return Options{
		GzipBlockFactor: 32,
		MaxBlockSize:    64 << 20,
		CacheSize:       256 << 20,
		Workers:         4,
		IndexMemLimit:   64 << 20,
	}
}
