// Package lock guards a reconciliation period against concurrent runs.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by TryLock when another holder owns the key.
var ErrHeld = errors.New("lock: already held")

// Locker hands out exclusive, non-blocking locks keyed by name.
type Locker interface {
	// TryLock returns ErrHeld immediately rather than waiting.
	TryLock(ctx context.Context, key string) (Release, error)
}

// Release gives the lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// LocalLocker is an in-process Locker. It only protects a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
