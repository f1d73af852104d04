// Package blockcache is the concurrent decoded-block cache shared by every
// archive format: an LRU of decompressed block payloads bounded by total
// uncompressed bytes rather than by block count, with single-flight
// collapsing of concurrent requests for the same block so that two readers
// racing on the same byte range only decode it once.
//
// Grounded on the teacher's existing dependency choices rather than on a
// specific teacher source file: github.com/hashicorp/golang-lru for
// eviction bookkeeping and golang.org/x/sync/singleflight for the
// single-flight decode, both already present in rclone's dependency graph.
package blockcache

import (
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	lru "github.com/hashicorp/golang-lru"

	"github.com/rclone/archivefs/archive/archivemetrics"
)

// unboundedEntries is the entry-count cap handed to the underlying LRU.
// Block sizes vary by 1-2 orders of magnitude across formats (a gzip
// block is a factor x 32 KiB window, a bzip2 block up to ~900 KB), so
// capping by count can't enforce a byte budget; entry count here is just
// large enough that it never becomes the binding constraint, and the
// byte accounting in Cache does the real eviction.
const unboundedEntries = 1 << 20

// Key identifies a cached block: which archive it belongs to and the
// logical (decompressed) offset its block starts at. Archive identity is
// the on-disk path, which is unique per mount.
type Key struct {
	Archive string
	Offset  int64
}

// DecodeFunc produces the bytes for a cache miss. It's called at most once
// per outstanding request for the same key, even under concurrent access,
// via singleflight.
type DecodeFunc func() ([]byte, error)

// Cache is a concurrency-safe cache of decoded block payloads, bounded by
// the total size in bytes of the payloads it holds (spec.md's cache-bound
// property: total bytes of Ready entries <= max_size at all times).
type Cache struct {
	lru      *lru.Cache
	group    singleflight.Group
	metrics  *archivemetrics.Metrics
	maxBytes int64
	curBytes int64
}

// New returns a Cache holding at most maxBytes total bytes of decoded block
// payloads. When an Add pushes the total over maxBytes, least-recently-used
// entries are evicted (and simply dropped; they're recomputed from the
// compressed archive on next access) until the total is back at or under
// maxBytes. metrics may be nil, in which case lookups simply aren't
// reported.
func New(maxBytes int64, metrics *archivemetrics.Metrics) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = 1
	}
	c := &Cache{maxBytes: maxBytes, metrics: metrics}
	l, err := lru.NewWithEvict(unboundedEntries, c.onEvicted)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// onEvicted is invoked synchronously by the underlying LRU whenever an
// entry leaves it, whether through our own eviction loop or Purge/Remove.
// It must not call back into c.lru.
func (c *Cache) onEvicted(_, value interface{}) {
	if data, ok := value.([]byte); ok {
		atomic.AddInt64(&c.curBytes, -int64(len(data)))
	}
}

// Get returns the cached payload for key, computing it via decode on a
// miss. Concurrent Get calls for the same key block on a single in-flight
// decode rather than each calling decode independently.
func (c *Cache) Get(key Key, decode DecodeFunc) ([]byte, error) {
	if v, ok := c.lru.Get(key); ok {
		c.observe(true)
		return v.([]byte), nil
	}
	c.observe(false)

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// Re-check: another goroutine may have populated the cache
		// between our Get miss and acquiring the singleflight slot.
		if v, ok := c.lru.Get(key); ok {
			return v.([]byte), nil
		}
		data, err := decode()
		if err != nil {
			return nil, err
		}
		c.add(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// add inserts data under key and evicts least-recently-used entries until
// the cache's total size is back at or under maxBytes.
func (c *Cache) add(key Key, data []byte) {
	c.lru.Add(key, data)
	atomic.AddInt64(&c.curBytes, int64(len(data)))

	for atomic.LoadInt64(&c.curBytes) > c.maxBytes && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
}

func (c *Cache) observe(hit bool) {
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(hit)
	}
}

// Metrics returns the Metrics set this Cache reports to, or nil if none was
// configured. Callers that time work outside of Get (such as Archive.ReadAt
// timing a block decode) use this rather than threading a second metrics
// reference through every constructor.
func (c *Cache) Metrics() *archivemetrics.Metrics { return c.metrics }

// Purge evicts every entry belonging to the named archive. Used when an
// archive is unmounted or its index is rebuilt.
func (c *Cache) Purge(archive string) {
	for _, k := range c.lru.Keys() {
		if key, ok := k.(Key); ok && key.Archive == archive {
			c.lru.Remove(k)
		}
	}
}

// Len returns the number of blocks currently cached, across all archives.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Bytes returns the total size in bytes of the payloads currently cached.
func (c *Cache) Bytes() int64 {
	return atomic.LoadInt64(&c.curBytes)
}

func (k Key) String() string {
	// A cheap, collision-free-enough string key for singleflight, which
	// only needs string keys; the LRU itself is keyed on the Key struct
	// directly via Go map equality, not this string form.
	buf := make([]byte, 0, len(k.Archive)+20)
	buf = append(buf, k.Archive...)
	buf = append(buf, '@')
	buf = appendInt(buf, k.Offset)
	return string(buf)
}

func appendInt(buf []byte, n int64) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	if n < 0 {
		buf = append(buf, '-')
		n = -n
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}
