package lock

import (
	"context"
	"path/filepath"
	"sync"
)

// Keyed serializes work per key inside one process. The mutator keys it by
// workspace root so mutations of one workspace run one at a time while
// different workspaces proceed independently.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyed creates an empty keyed lock
func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned func releases it.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	key = filepath.Clean(key)

	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.drop(key, s)
		})
	}, nil
}

// drop forgets the slot once nobody holds or waits on it
func (k *Keyed) drop(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// Len returns the number of keys currently held or awaited
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
