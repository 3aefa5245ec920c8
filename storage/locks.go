package storage

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// LockTable grants exclusive access to sets of dataset identifiers.
// Unrelated identifiers never contend.
type LockTable struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{held: make(map[string]chan struct{})}
}

// LockToken proves ownership of a set of identifiers until released.
type LockToken struct {
	table    *LockTable
	keys     []string
	released atomic.Bool
}

// Acquire blocks until every key is held by the caller or ctx is done.
// Keys are taken in sorted order so overlapping acquisitions cannot deadlock.
func (t *LockTable) Acquire(ctx context.Context, keys ...string) (*LockToken, error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	token := &LockToken{table: t}
	for _, key := range sorted {
		if err := t.acquireOne(ctx, key); err != nil {
			token.Release()
			return nil, err
		}
		token.keys = append(token.keys, key)
	}
	return token, nil
}

func (t *LockTable) acquireOne(ctx context.Context, key string) error {
	for {
		t.mu.Lock()
		wait, busy := t.held[key]
		if !busy {
			t.held[key] = make(chan struct{})
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Held reports whether key is currently locked.
func (t *LockTable) Held(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[key]
	return ok
}

// Covers reports whether the token holds key.
func (tk *LockToken) Covers(key string) bool {
	if tk == nil || tk.released.Load() {
		return false
	}
	_, found := slices.BinarySearch(tk.keys, key)
	return found
}

// Keys returns the held identifiers in order.
func (tk *LockToken) Keys() []string {
	return slices.Clone(tk.keys)
}

// Release frees every key. It is safe to call more than once.
func (tk *LockToken) Release() {
	if tk == nil || tk.released.Swap(true) {
		return
	}
	tk.table.mu.Lock()
	defer tk.table.mu.Unlock()
	for _, key := range tk.keys {
		if ch, ok := tk.table.held[key]; ok {
			close(ch)
			delete(tk.table.held, key)
		}
	}
}
