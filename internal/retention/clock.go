// Package retention drives age-based purging of the stream buffer.
//
// A Clock is an owned resource: Start launches one goroutine, Stop cancels
// it and waits for it to exit. After Stop returns no further purge runs.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/wikiwatch/internal/logging"
	"github.com/abelbrown/wikiwatch/internal/otel"
)

// DefaultInterval is the purge cadence. Retention windows are whole
// seconds, so a coarser tick would let events outlive their window.
const DefaultInterval = time.Second

// Purger is the buffer operation a tick invokes.
type Purger interface {
	Purge(now time.Time) int
}

// Clock calls Purge on a fixed cadence.
type Clock struct {
	target   Purger
	interval time.Duration
	now      func() time.Time
	ticks    <-chan time.Time // injected by tests; nil means a real ticker
	journal  *otel.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Clock.
type Option func(*Clock)

// WithInterval sets the tick cadence. Values outside (0, 1s] are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 && d <= DefaultInterval {
			c.interval = d
		}
	}
}

// WithNow replaces the wall clock used to compute the cutoff.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithTicks drives the clock from ch instead of a ticker.
func WithTicks(ch <-chan time.Time) Option {
	return func(c *Clock) { c.ticks = ch }
}

// WithJournal records each purge that removed events.
func WithJournal(j *otel.Logger) Option {
	return func(c *Clock) { c.journal = j }
}

// New creates a stopped Clock purging target.
func New(target Purger, opts ...Option) *Clock {
	c := &Clock{
		target:   target,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the tick goroutine. Calling Start on a running Clock is a
// no-op. The goroutine also exits when ctx is cancelled.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	ticks := c.ticks
	var stop func()
	if ticks == nil {
		t := time.NewTicker(c.interval)
		ticks, stop = t.C, t.Stop
	}

	go func(done chan struct{}) {
		defer close(done)
		if stop != nil {
			defer stop()
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
				// Stop may have been called while this tick was pending.
				if ctx.Err() != nil {
					return
				}
				c.Tick()
			}
		}
	}(c.done)
}

// Tick runs one purge at the current time and returns the number removed.
func (c *Clock) Tick() int {
	start := time.Now()
	removed := c.target.Purge(c.now())
	if removed > 0 {
		took := time.Since(start)
		logging.Debug("Purged expired events", "count", removed, "took", took)
		c.journal.Emit(otel.Event{
			Level: otel.LevelDebug,
			Kind:  otel.KindPurge,
			Comp:  "retention",
			Count: removed,
			Dur:   took,
		})
	}
	return removed
}

// Stop cancels the tick goroutine and waits for it to exit. Safe to call
// more than once and on a Clock that was never started.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick goroutine is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}
