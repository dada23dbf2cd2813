// Package buffer holds the bounded, time-decaying working set of stream
// events shown to the user.
//
// # State
//
// Manager has two modes. While running, admitted events go straight into
// the visible set, which keeps only the newest Capacity entries. While
// paused, the visible set is frozen and admitted events accumulate in a
// pending set until Resume merges them in front.
//
// # Thread Safety
//
// Every operation takes the same mutex, so admission, purge, pause, resume
// and clear are each atomic to observers. No operation blocks or does I/O;
// the worst case is O(Capacity + pending) for purge and resume.
package buffer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/wikiwatch/internal/event"
)

var (
	// ErrInvalidCapacity is returned for a capacity below 1.
	ErrInvalidCapacity = errors.New("buffer: capacity must be at least 1")

	// ErrNegativeRetention is returned for a retention window below 0.
	ErrNegativeRetention = errors.New("buffer: retention window must not be negative")
)

// Snapshot is a read-only view of the manager at one instant.
type Snapshot struct {
	Visible       []event.Event // most recent first
	Paused        bool
	TotalReceived int
	PendingCount  int
	Retention     int // seconds, 0 = never purge
	Capacity      int
}

// PurgedCount is TotalReceived minus everything still held. It folds
// capacity eviction and age purge into one number.
func (s Snapshot) PurgedCount() int {
	return s.TotalReceived - len(s.Visible) - s.PendingCount
}

// Manager owns the visible and pending sets and their counters.
type Manager struct {
	mu sync.Mutex

	capacity  int
	retention int // seconds

	visible *ring
	pending []event.Event // oldest first; non-empty only while paused
	paused  bool
	total   int

	changed chan struct{} // capacity 1, coalesced change signal
}

// New creates a running Manager with an empty working set.
// capacity bounds the visible set; retentionSeconds is the age window used
// by Purge (0 disables purging).
func New(capacity, retentionSeconds int) (*Manager, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if retentionSeconds < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeRetention, retentionSeconds)
	}
	return &Manager{
		capacity:  capacity,
		retention: retentionSeconds,
		visible:   newRing(capacity),
		changed:   make(chan struct{}, 1),
	}, nil
}

// Changes returns a channel that receives a value after state changes.
// Signals coalesce: a slow reader sees one signal for many changes and
// should re-read Snapshot.
func (m *Manager) Changes() <-chan struct{} {
	return m.changed
}

// notify must be called with m.mu held.
func (m *Manager) notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// Admit accepts one decoded event. It always counts toward TotalReceived.
// Running: the event becomes the newest visible entry and the oldest is
// dropped once the set exceeds capacity. Paused: the event is held in the
// pending set.
func (m *Manager) Admit(ev event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if m.paused {
		m.pending = append(m.pending, ev)
	} else {
		m.visible.push(ev)
	}
	m.notify()
}

// Pause freezes the visible set. Reports false if already paused.
func (m *Manager) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return false
	}
	m.paused = true
	m.notify()
	return true
}

// Resume merges pending events in front of the visible set, truncates the
// result to capacity and returns to running. merged is the number of
// pending events folded in; changed is false if already running.
func (m *Manager) Resume() (merged int, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paused {
		return 0, false
	}
	merged = len(m.pending)
	for _, ev := range m.pending {
		m.visible.push(ev)
	}
	m.pending = nil
	m.paused = false
	m.notify()
	return merged, true
}

// Discard leaves pause mode and drops the pending set without merging.
// The visible set is untouched. Returns the number of events dropped.
func (m *Manager) Discard() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := len(m.pending)
	if !m.paused && dropped == 0 {
		return 0
	}
	m.pending = nil
	m.paused = false
	m.notify()
	return dropped
}

// Purge removes events older than the retention window from both sets.
// Events without a timestamp are kept. No-op when the window is 0.
// Returns the number of events removed.
func (m *Manager) Purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retention == 0 {
		return 0
	}
	cutoff := now.Unix() - int64(m.retention)
	keep := func(ev event.Event) bool {
		return !ev.HasTimestamp() || ev.Unix() >= cutoff
	}

	removed := m.visible.filter(keep)

	kept := m.pending[:0]
	for _, ev := range m.pending {
		if keep(ev) {
			kept = append(kept, ev)
		}
	}
	removed += len(m.pending) - len(kept)
	clear(m.pending[len(kept):])
	m.pending = kept

	if removed > 0 {
		m.notify()
	}
	return removed
}

// Clear empties both sets and resets TotalReceived. Pause state is kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.visible.reset()
	m.pending = nil
	m.total = 0
	m.notify()
}

// SetRetention changes the purge window. Takes effect on the next Purge.
func (m *Manager) SetRetention(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeRetention, seconds)
	}
	m.mu.Lock()
	m.retention = seconds
	m.mu.Unlock()
	return nil
}

// Retention returns the current purge window in seconds.
func (m *Manager) Retention() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retention
}

// Capacity returns the visible set bound.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Paused reports the current mode.
func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Snapshot copies the current state. The returned slice is owned by the
// caller.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Visible:       m.visible.newestFirst(),
		Paused:        m.paused,
		TotalReceived: m.total,
		PendingCount:  len(m.pending),
		Retention:     m.retention,
		Capacity:      m.capacity,
	}
}

// Pending returns a copy of the pending set, most recent first.
func (m *Manager) Pending() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return nil
	}
	out := make([]event.Event, len(m.pending))
	for i, ev := range m.pending {
		out[len(out)-1-i] = ev
	}
	return out
}
