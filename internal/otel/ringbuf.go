package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is the ring capacity used when none is given.
const DefaultRingSize = 512

// RingBuffer holds the newest journal records for the debug overlay.
// Readers only ever see copies, taken through Last.
type RingBuffer struct {
	mu      sync.Mutex
	records []Event // circular; slot is written % len(records)
	written uint64  // records pushed since creation
}

// NewRingBuffer creates a ring that holds size records.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{records: make([]Event, size)}
}

// Size is the number of records the ring can hold.
func (r *RingBuffer) Size() int {
	return len(r.records)
}

// Push stores e, replacing the oldest record once the ring is full. Extra
// is cloned because the emitter may keep writing to its map.
func (r *RingBuffer) Push(e Event) {
	e.Extra = maps.Clone(e.Extra)

	r.mu.Lock()
	r.records[r.written%uint64(len(r.records))] = e
	r.written++
	r.mu.Unlock()
}

// Last returns copies of the n newest records, oldest first. Asking for
// Size() records returns everything held.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := uint64(len(r.records))
	held := min(r.written, size)
	if n <= 0 || held == 0 {
		return nil
	}
	if uint64(n) > held {
		n = int(held)
	}

	out := make([]Event, n)
	first := r.written - uint64(n)
	for i := range out {
		out[i] = r.records[(first+uint64(i))%size]
	}
	return out
}

// Tally counts records by kind. Purge and decode-drop records carry a batch
// size in Count, so those kinds add Count (at least 1) instead of one per
// record.
func Tally(records []Event) map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range records {
		switch e.Kind {
		case KindPurge, KindDecodeDrop:
			counts[e.Kind] += max(e.Count, 1)
		default:
			counts[e.Kind]++
		}
	}
	return counts
}
