package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultAcquireTimeout bounds how long a request waits for a free session
// when its context has no earlier deadline.
const DefaultAcquireTimeout = 30 * time.Second

// ErrPoolClosed is returned by Acquire after Destroy.
var ErrPoolClosed = errors.New("session pool is closed")

// SessionPool hands out a fixed number of reusable sessions, one caller at a
// time per session.
type SessionPool[T any] struct {
	sessions chan T
	size     int
	destroy  func(T)
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	stats  PoolStats
}

// PoolStats are counters of a SessionPool.
type PoolStats struct {
	Size            int   `json:"pool_size"`
	InUse           int   `json:"sessions_in_use"`
	TotalAcquired   int64 `json:"total_acquired"`
	TotalReleased   int64 `json:"total_released"`
	AcquireFailures int64 `json:"acquire_failures"`
}

// NewSessionPool creates size sessions with create. If any creation fails
// the sessions created so far are destroyed and the error returned.
func NewSessionPool[T any](size int, create func() (T, error), destroy func(T)) (*SessionPool[T], error) {
	if size <= 0 {
		size = 1
	}

	p := &SessionPool[T]{
		sessions: make(chan T, size),
		size:     size,
		destroy:  destroy,
		timeout:  DefaultAcquireTimeout,
	}
	p.stats.Size = size

	for i := 0; i < size; i++ {
		s, err := create()
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		p.sessions <- s
	}

	return p, nil
}

// Acquire takes a session, waiting until one is free, ctx is done or the
// pool's acquire timeout passes.
func (p *SessionPool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return zero, ErrPoolClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case s, ok := <-p.sessions:
		if !ok {
			return zero, ErrPoolClosed
		}
		p.mu.Lock()
		p.stats.InUse++
		p.stats.TotalAcquired++
		p.mu.Unlock()
		return s, nil
	case <-timer.C:
		p.recordFailure()
		return zero, fmt.Errorf("timeout waiting for available session after %v", p.timeout)
	case <-ctx.Done():
		p.recordFailure()
		return zero, ctx.Err()
	}
}

// Release returns a session to the pool. Sessions released after Destroy
// are destroyed instead.
func (p *SessionPool[T]) Release(s T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.InUse--
	p.stats.TotalReleased++

	if p.closed {
		if p.destroy != nil {
			p.destroy(s)
		}
		return
	}
	p.sessions <- s
}

// Destroy closes the pool and destroys every idle session. Sessions still
// in use are destroyed when released.
func (p *SessionPool[T]) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.sessions)

	for s := range p.sessions {
		if p.destroy != nil {
			p.destroy(s)
		}
	}
}

// Stats returns a snapshot of the pool counters.
func (p *SessionPool[T]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *SessionPool[T]) recordFailure() {
	p.mu.Lock()
	p.stats.AcquireFailures++
	p.mu.Unlock()
}
