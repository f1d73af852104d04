package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rclone/archivefs/archive/archivemetrics"
)

func TestPoolRunsJobsConcurrently(t *testing.T) {
	p := New(4, nil)
	defer p.Close()

	var inflight int32
	var maxInflight int32
	futures := make([]*Future, 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, p.Submit(context.Background(), func() ([]byte, error) {
			n := atomic.AddInt32(&inflight, 1)
			for {
				m := atomic.LoadInt32(&maxInflight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInflight, m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inflight, -1)
			return []byte("ok"), nil
		}))
	}
	for _, f := range futures {
		data, err := f.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, []byte("ok"), data)
	}
	require.Greater(t, atomic.LoadInt32(&maxInflight), int32(1))
}

func TestPoolSubmitAfterCloseFails(t *testing.T) {
	p := New(1, nil)
	p.Close()

	f := p.Submit(context.Background(), func() ([]byte, error) { return nil, nil })
	_, err := f.Wait(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestPoolReportsQueueDepth(t *testing.T) {
	m := archivemetrics.New()
	p := New(1, m)
	defer p.Close()

	release := make(chan struct{})
	f := p.Submit(context.Background(), func() ([]byte, error) {
		<-release
		return []byte("done"), nil
	})
	require.Equal(t, float64(1), testutil.ToFloat64(m.PoolQueueDepth))
	close(release)
	_, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(0), testutil.ToFloat64(m.PoolQueueDepth))
}
