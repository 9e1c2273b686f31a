package session

import (
	"crypto/subtle"
	"sync"
	"time"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

// Manager is the registry of live recordings. Recordings proceed fully
// independently; the manager only guards the map, never the recordings.
type Manager struct {
	mu            sync.RWMutex
	recordings    map[string]*Recording
	maxEventCount int
}

// NewManager creates a Manager applying maxEventCount to new recordings.
func NewManager(maxEventCount int) *Manager {
	return &Manager{
		recordings:    make(map[string]*Recording),
		maxEventCount: maxEventCount,
	}
}

// Start creates and registers a new ACTIVE recording.
func (m *Manager) Start(name, projectID string) *Recording {
	rec := NewRecording(
		GenerateRecordingID(name),
		name,
		projectID,
		NewSessionKey(),
		m.maxEventCount,
	)

	m.mu.Lock()
	m.recordings[rec.ID()] = rec
	m.mu.Unlock()
	return rec
}

// Get returns the recording with the given ID.
func (m *Manager) Get(id string) (*Recording, error) {
	m.mu.RLock()
	rec, ok := m.recordings[id]
	m.mu.RUnlock()

	if !ok {
		return nil, stenoerrors.New(stenoerrors.ErrCodeSessionNotFound, "no such recording").
			WithContext("session_id", id)
	}
	return rec, nil
}

// Authorize returns the recording only when the presented session key matches.
func (m *Manager) Authorize(id, sessionKey string) (*Recording, error) {
	rec, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.SessionKey()), []byte(sessionKey)) != 1 {
		return nil, stenoerrors.New(stenoerrors.ErrCodeSessionKey, "session key mismatch").
			WithContext("session_id", id)
	}
	return rec, nil
}

// Remove drops a recording from the registry. Terminal state is not required;
// the caller owns that decision.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.recordings, id)
	m.mu.Unlock()
}

// Snapshots returns snapshots of all registered recordings.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	recs := make([]*Recording, 0, len(m.recordings))
	for _, rec := range m.recordings {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(recs))
	for _, rec := range recs {
		snaps = append(snaps, rec.Snapshot())
	}
	return snaps
}

// FailIdle applies the terminal FAILED transition to recordings idle longer
// than the timeout and returns the IDs it reaped. Driven by an external
// reaper on its own schedule.
func (m *Manager) FailIdle(idleTimeout time.Duration) []string {
	m.mu.RLock()
	candidates := make([]*Recording, 0, len(m.recordings))
	for _, rec := range m.recordings {
		candidates = append(candidates, rec)
	}
	m.mu.RUnlock()

	var reaped []string
	cutoff := time.Now().Add(-idleTimeout)
	for _, rec := range candidates {
		if rec.Status().Terminal() {
			continue
		}
		if rec.LastActivity().Before(cutoff) && rec.Fail() {
			reaped = append(reaped, rec.ID())
		}
	}
	return reaped
}
