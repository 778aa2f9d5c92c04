package redisclient

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process Locker for single-instance deployments and
// tests. Waiters queue on a per-key channel; entries are dropped once the
// last holder leaves.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
	wait  time.Duration
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns a locker whose callers wait up to wait for a held
// key. wait <= 0 fails fast with ErrLockNotAcquired.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock), wait: wait}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lk := l.ref(key)
	defer l.unref(key)

	if err := l.acquire(ctx, lk); err != nil {
		return err
	}
	defer func() { <-lk.ch }()

	return fn(ctx)
}

func (l *LocalLocker) acquire(ctx context.Context, lk *localLock) error {
	select {
	case lk.ch <- struct{}{}:
		return nil
	default:
	}
	if l.wait <= 0 {
		return ErrLockNotAcquired
	}

	t := time.NewTimer(l.wait)
	defer t.Stop()
	select {
	case lk.ch <- struct{}{}:
		return nil
	case <-t.C:
		return ErrLockNotAcquired
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *LocalLocker) ref(key string) *localLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	return lk
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk := l.locks[key]
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
