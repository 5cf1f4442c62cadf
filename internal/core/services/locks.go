package services

import "sync"

// lockTable grants at most one holder per source id. Acquisition never
// blocks: a held lock is reported to the caller, not queued behind, so
// duplicate sync triggers fail fast instead of building a backlog.
type lockTable struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for the id. Returns false when held.
func (t *lockTable) TryAcquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[id]; ok {
		return false
	}
	t.held[id] = struct{}{}
	return true
}

// Release frees the lock for the id. Releasing an unheld lock is a no-op.
func (t *lockTable) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, id)
}

// Held reports whether the id's lock is currently taken.
func (t *lockTable) Held(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[id]
	return ok
}
