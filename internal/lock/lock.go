// internal/lock/lock.go
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotObtained is returned when the lock is still held by someone else after retrying.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serialises work on a key. The returned release func must always be called.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process Locker used when Redis is not configured.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

func (l *Local) Obtain(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ErrNotObtained
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
