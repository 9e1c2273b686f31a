// Package storage persists completed recording snapshots. The server keeps
// live recordings in memory; a SnapshotStore is the boundary where finished
// sessions land so they survive a restart.
package storage

import (
	"sort"
	"sync"

	"github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/session"
)

// SnapshotStore saves and retrieves recording snapshots.
type SnapshotStore interface {
	Save(snap session.Snapshot) error
	Load(id string) (session.Snapshot, error)
	List() ([]session.Snapshot, error)
	Delete(id string) error
	Close() error
}

// MemoryStore is the in-process SnapshotStore used by tests and by servers
// that run without a data directory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]session.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]session.Snapshot)}
}

func (m *MemoryStore) Save(snap session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.ID] = snap
	return nil
}

func (m *MemoryStore) Load(id string) (session.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[id]
	if !ok {
		return session.Snapshot{}, errors.New(errors.ErrCodeStorageRead, "snapshot not found: "+id)
	}
	return snap, nil
}

// List returns snapshots newest first.
func (m *MemoryStore) List() ([]session.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]session.Snapshot, 0, len(m.snaps))
	for _, snap := range m.snaps {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
