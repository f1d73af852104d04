// Package workerpool is the fixed-size decode worker pool spec.md's
// concurrency model calls for: a bounded number of goroutines perform the
// CPU-heavy decompression work, regardless of how many files are open or
// how many reads are in flight, so a mount with many concurrent readers
// can't spawn unbounded decompression goroutines.
//
// Grounded on _examples/balanur-hts/bgzf/reader.go's decompressor.fill +
// sync.WaitGroup + channel hand-off idiom (one goroutine decoding one
// block, its completion observed through a channel), generalized from "one
// decode goroutine per open stream" to "N worker goroutines pulling jobs
// from a shared queue, each resolved through a future".
package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/rclone/archivefs/archive/archivemetrics"
)

// ErrClosed is returned by Submit once the pool has been closed.
var ErrClosed = errors.New("workerpool: closed")

type job struct {
	fn     func() ([]byte, error)
	result chan result
}

type result struct {
	data []byte
	err  error
}

// Future is the handle returned by Submit; call Wait to block for the
// job's result.
type Future struct {
	ch chan result
}

// Wait blocks until the job completes, or ctx is done, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case r := <-f.ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pool is a fixed-size pool of decode worker goroutines.
type Pool struct {
	jobs    chan job
	quit    chan struct{}
	wg      sync.WaitGroup
	metrics *archivemetrics.Metrics
}

// New starts a Pool with the given number of worker goroutines. workers is
// clamped to at least 1. metrics may be nil, in which case the pool simply
// doesn't report its queue depth.
func New(workers int, metrics *archivemetrics.Metrics) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		metrics: metrics,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			data, err := j.fn()
			j.result <- result{data: data, err: err}
		case <-p.quit:
			return
		}
	}
}

// Submit queues fn to run on a worker goroutine and returns a Future for
// its result. fn should do the actual decompression work and nothing else
// (no I/O waits beyond what decoding requires), so it doesn't tie up a
// worker slot longer than necessary.
func (p *Pool) Submit(ctx context.Context, fn func() ([]byte, error)) *Future {
	if p.metrics != nil {
		p.metrics.PoolQueueDepth.Inc()
	}
	j := job{fn: fn, result: make(chan result, 1)}
	wrapped := job{result: j.result, fn: func() ([]byte, error) {
		defer func() {
			if p.metrics != nil {
				p.metrics.PoolQueueDepth.Dec()
			}
		}()
		return fn()
	}}
	select {
	case p.jobs <- wrapped:
	case <-p.quit:
		if p.metrics != nil {
			p.metrics.PoolQueueDepth.Dec()
		}
		j.result <- result{err: ErrClosed}
	case <-ctx.Done():
		if p.metrics != nil {
			p.metrics.PoolQueueDepth.Dec()
		}
		j.result <- result{err: ctx.Err()}
	}
	return &Future{ch: j.result}
}

// Close stops accepting new jobs and waits for in-flight workers to drain.
// Jobs already queued but not yet picked up by a worker are abandoned.
func (p *Pool) Close() {
	close(p.quit)
	p.wg.Wait()
}
