package blockcache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheGetCachesAcrossCalls(t *testing.T) {
	c, err := New(4096, nil)
	require.NoError(t, err)

	var decodes int32
	decode := func() ([]byte, error) {
		atomic.AddInt32(&decodes, 1)
		return []byte("payload"), nil
	}

	key := Key{Archive: "a.gz", Offset: 0}
	v1, err := c.Get(key, decode)
	require.NoError(t, err)
	v2, err := c.Get(key, decode)
	require.NoError(t, err)

	require.Equal(t, []byte("payload"), v1)
	require.Equal(t, []byte("payload"), v2)
	require.Equal(t, int32(1), atomic.LoadInt32(&decodes))
}

func TestCacheGetSingleFlightsConcurrentMiss(t *testing.T) {
	c, err := New(4096, nil)
	require.NoError(t, err)

	var decodes int32
	start := make(chan struct{})
	decode := func() ([]byte, error) {
		<-start
		atomic.AddInt32(&decodes, 1)
		return []byte("x"), nil
	}

	key := Key{Archive: "a.gz", Offset: 0}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(key, decode)
			require.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&decodes))
}

func TestCachePurgeRemovesOnlyNamedArchive(t *testing.T) {
	c, err := New(4096, nil)
	require.NoError(t, err)

	_, _ = c.Get(Key{Archive: "a.gz", Offset: 0}, func() ([]byte, error) { return []byte("a"), nil })
	_, _ = c.Get(Key{Archive: "b.gz", Offset: 0}, func() ([]byte, error) { return []byte("b"), nil })
	require.Equal(t, 2, c.Len())

	c.Purge("a.gz")
	require.Equal(t, 1, c.Len())
}

func TestCacheEvictsByTotalBytesNotCount(t *testing.T) {
	c, err := New(100, nil)
	require.NoError(t, err)

	payload := func(n int) []byte { return make([]byte, n) }

	_, err = c.Get(Key{Archive: "a.gz", Offset: 0}, func() ([]byte, error) { return payload(60), nil })
	require.NoError(t, err)
	require.Equal(t, int64(60), c.Bytes())

	// A second 60-byte block pushes the total to 120 > 100, so the first
	// (least recently used) block must be evicted even though the count
	// cap would have allowed both.
	_, err = c.Get(Key{Archive: "a.gz", Offset: 64}, func() ([]byte, error) { return payload(60), nil })
	require.NoError(t, err)

	require.LessOrEqual(t, c.Bytes(), int64(100))
	require.Equal(t, 1, c.Len())

	var decodes int32
	_, err = c.Get(Key{Archive: "a.gz", Offset: 0}, func() ([]byte, error) {
		atomic.AddInt32(&decodes, 1)
		return payload(60), nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&decodes), "evicted block should have been recomputed, not served from cache")
}
