package ledger

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is a SnapshotStore that keeps snapshots in memory, keyed by
// path. It is used by tests and by harness round trips that never touch
// disk.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// Save stores a copy of snap under path, replacing any previous snapshot.
func (m *MemoryStore) Save(_ context.Context, path string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[path] = Snapshot{Entries: slices.Clone(snap.Entries)}
	return nil
}

// Load returns the snapshot stored under path.
func (m *MemoryStore) Load(_ context.Context, path string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[path]
	if !ok {
		return Snapshot{}, &SnapshotMissingError{Path: path}
	}
	return Snapshot{Entries: slices.Clone(snap.Entries)}, nil
}

// Paths returns every stored path, sorted.
func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.snaps))
	for p := range m.snaps {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
