package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/PartKeeper/internal/models"
)

// keyLocker hands out one lock per key. Waiting for a lock is bounded, so a
// stuck request turns into ErrBusy for the others instead of piling them up.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free, timeout elapses or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (l *keyLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case kl.sem <- struct{}{}:
		return func() {
			<-kl.sem
			l.release(key, kl)
		}, nil
	case <-timer.C:
		l.release(key, kl)
		return nil, models.ErrBusy
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w: %w", models.ErrBusy, ctx.Err())
	}
}

func (l *keyLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
