// Package session holds the server-side recording aggregate: admission
// control, lifecycle, and the ordered event list for one recording.
package session

import (
	"sync"
	"time"

	"github.com/stenoweb/steno/pkg/event"
)

// Status is the recording lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Recording is one recording session. A single logical writer appends events;
// reads (status polls, snapshots) may run concurrently with ingestion.
type Recording struct {
	mu sync.RWMutex

	id         string
	name       string
	projectID  string
	sessionKey string

	status        Status
	startedAt     time.Time
	endedAt       time.Time
	lastActivity  time.Time
	events        []*event.Event
	maxEventCount int
}

// Snapshot is an immutable copy of the recording exposed to external
// collaborators (persistence, UI). The event slice is copied; event nodes are
// shared and treated as read-only by convention.
type Snapshot struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ProjectID     string         `json:"projectId"`
	Status        Status         `json:"status"`
	StartedAt     time.Time      `json:"startedAt"`
	EndedAt       *time.Time     `json:"endedAt,omitempty"`
	DurationMS    int64          `json:"durationMillis"`
	EventCount    int            `json:"eventCount"`
	MaxEventCount int            `json:"maxEventCount"`
	Events        []*event.Event `json:"events"`
}

// NewRecording creates an ACTIVE recording with the given admission cap.
func NewRecording(id, name, projectID, sessionKey string, maxEventCount int) *Recording {
	now := time.Now()
	return &Recording{
		id:            id,
		name:          name,
		projectID:     projectID,
		sessionKey:    sessionKey,
		status:        StatusActive,
		startedAt:     now,
		lastActivity:  now,
		maxEventCount: maxEventCount,
	}
}

// ID returns the recording identifier.
func (r *Recording) ID() string { return r.id }

// Name returns the recording's display name.
func (r *Recording) Name() string { return r.name }

// SessionKey returns the key the agent must present to write to this recording.
func (r *Recording) SessionKey() string { return r.sessionKey }

// AddEvent appends a top-level event. It returns false without mutating
// anything unless the recording is ACTIVE and below its event cap. Rejection
// is a normal admission-control outcome, not an error.
func (r *Recording) AddEvent(e *event.Event) bool {
	if e == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusActive {
		return false
	}
	if len(r.events) >= r.maxEventCount {
		return false
	}
	r.events = append(r.events, e)
	r.lastActivity = time.Now()
	return true
}

// Pause moves an ACTIVE recording to PAUSED. Pausing a paused recording is a
// permitted no-op; pausing a terminal recording is not.
func (r *Recording) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return false
	}
	r.status = StatusPaused
	r.lastActivity = time.Now()
	return true
}

// Resume moves a PAUSED recording back to ACTIVE.
func (r *Recording) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return false
	}
	r.status = StatusActive
	r.lastActivity = time.Now()
	return true
}

// Complete ends the recording successfully. The first terminal transition
// wins; later calls return false.
func (r *Recording) Complete() bool {
	return r.terminate(StatusCompleted)
}

// Fail ends the recording with an error status.
func (r *Recording) Fail() bool {
	return r.terminate(StatusFailed)
}

func (r *Recording) terminate(status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return false
	}
	r.status = status
	r.endedAt = time.Now()
	return true
}

// Status returns the current lifecycle state.
func (r *Recording) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Duration returns endTime-startTime for finished recordings, or the elapsed
// time so far for live ones.
func (r *Recording) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.endedAt.IsZero() {
		return r.endedAt.Sub(r.startedAt)
	}
	return time.Since(r.startedAt)
}

// EventCount returns the number of admitted top-level events.
func (r *Recording) EventCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// LastActivity returns the time of the most recent mutation, for idle reaping.
func (r *Recording) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// Events returns a copy of the top-level event list.
func (r *Recording) Events() []*event.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Snapshot exposes the full recording state for persistence or display.
func (r *Recording) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		ID:            r.id,
		Name:          r.name,
		ProjectID:     r.projectID,
		Status:        r.status,
		StartedAt:     r.startedAt,
		EventCount:    len(r.events),
		MaxEventCount: r.maxEventCount,
		Events:        make([]*event.Event, len(r.events)),
	}
	copy(snap.Events, r.events)

	if !r.endedAt.IsZero() {
		ended := r.endedAt
		snap.EndedAt = &ended
		snap.DurationMS = r.endedAt.Sub(r.startedAt).Milliseconds()
	} else {
		snap.DurationMS = time.Since(r.startedAt).Milliseconds()
	}
	return snap
}
