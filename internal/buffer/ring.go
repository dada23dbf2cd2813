package buffer

import "github.com/abelbrown/wikiwatch/internal/event"

// ring is a fixed-size circular buffer of events. Pushing into a full ring
// overwrites the oldest entry, which is exactly newest-N-wins capacity
// eviction. Not goroutine-safe: Manager serializes access.
type ring struct {
	buf   []event.Event
	size  int
	head  int // next write position
	count int // number of valid entries (0..size)
}

func newRing(size int) *ring {
	return &ring{
		buf:  make([]event.Event, size),
		size: size,
	}
}

// push adds ev as the newest entry, overwriting the oldest when full.
func (r *ring) push(ev event.Event) {
	r.buf[r.head] = ev
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *ring) len() int {
	return r.count
}

// oldestFirst returns a copy of the entries in arrival order.
func (r *ring) oldestFirst() []event.Event {
	if r.count == 0 {
		return nil
	}
	out := make([]event.Event, r.count)
	if r.count < r.size {
		copy(out, r.buf[:r.count])
	} else {
		n := copy(out, r.buf[r.head:])
		copy(out[n:], r.buf[:r.head])
	}
	return out
}

// newestFirst returns a copy of the entries, most recent first.
func (r *ring) newestFirst() []event.Event {
	out := r.oldestFirst()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// filter keeps only entries for which keep returns true, preserving order.
// Returns the number removed.
func (r *ring) filter(keep func(event.Event) bool) int {
	all := r.oldestFirst()
	kept := all[:0]
	for _, ev := range all {
		if keep(ev) {
			kept = append(kept, ev)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0
	}
	r.reset()
	for _, ev := range kept {
		r.push(ev)
	}
	return removed
}

// reset empties the ring and releases references held by old slots.
func (r *ring) reset() {
	clear(r.buf)
	r.head = 0
	r.count = 0
}
