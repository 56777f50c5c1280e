package cache

import (
	"sync"
	"time"
)

// leaseTable is an expiring key set shared by the in-memory locker and
// idempotency store
type leaseTable struct {
	mu      sync.Mutex
	entries map[string]lease
	now     func() time.Time
}

type lease struct {
	token     string
	expiresAt time.Time
}

func newLeaseTable() *leaseTable {
	return &leaseTable{
		entries: make(map[string]lease),
		now:     time.Now,
	}
}

// acquire stores key unless a live lease exists
func (t *leaseTable) acquire(key, token string, ttl time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if l, ok := t.entries[key]; ok && now.Before(l.expiresAt) {
		return false
	}
	t.entries[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return true
}

// extend pushes the expiry of a live lease still owned by token
func (t *leaseTable) extend(key, token string, ttl time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	l, ok := t.entries[key]
	if !ok || l.token != token || !now.Before(l.expiresAt) {
		return false
	}
	t.entries[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return true
}

// release drops key when token still owns it
func (t *leaseTable) release(key, token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.entries[key]
	if !ok || l.token != token {
		return false
	}
	delete(t.entries, key)
	return t.now().Before(l.expiresAt)
}

func (t *leaseTable) live(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.entries[key]
	return ok && t.now().Before(l.expiresAt)
}

func (t *leaseTable) sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, l := range t.entries {
		if !now.Before(l.expiresAt) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *leaseTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
