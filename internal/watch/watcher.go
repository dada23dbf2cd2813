// Package watch wires the stream buffer, its retention clock and the
// connection controller into one owned unit.
//
// A Watcher is what the UI talks to. Start launches the retention clock and
// change forwarding; Close stops both and releases the subscription. After
// Close returns no timer tick or stream callback touches the buffer.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/wikiwatch/internal/buffer"
	"github.com/abelbrown/wikiwatch/internal/conn"
	"github.com/abelbrown/wikiwatch/internal/event"
	"github.com/abelbrown/wikiwatch/internal/logging"
	"github.com/abelbrown/wikiwatch/internal/otel"
	"github.com/abelbrown/wikiwatch/internal/retention"
	"github.com/abelbrown/wikiwatch/internal/stream"
)

// Options configures a Watcher.
type Options struct {
	URL              string
	Capacity         int
	RetentionSeconds int

	// Subscriber opens the stream. Defaults to a stream.Dialer with
	// ConnectTimeout.
	Subscriber     stream.Subscriber
	ConnectTimeout time.Duration

	Journal *otel.Logger

	// Clock overrides for tests.
	TickInterval time.Duration
	Now          func() time.Time
}

// View is everything the UI renders, read at one instant per component.
type View struct {
	buffer.Snapshot
	Status  conn.Status
	LastErr error
	Dropped int // undecodable messages
	URL     string
}

// Watcher owns one buffer, one controller and one retention clock.
type Watcher struct {
	buf     *buffer.Manager
	ctl     *conn.Controller
	clock   *retention.Clock
	journal *otel.Logger

	changed chan struct{}

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	fwdDone chan struct{}
	closed  bool
}

// New validates opts and builds a stopped Watcher.
func New(opts Options) (*Watcher, error) {
	buf, err := buffer.New(opts.Capacity, opts.RetentionSeconds)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	sub := opts.Subscriber
	if sub == nil {
		timeout := opts.ConnectTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sub = stream.NewDialer(timeout)
	}

	clockOpts := []retention.Option{retention.WithJournal(opts.Journal)}
	if opts.TickInterval > 0 {
		clockOpts = append(clockOpts, retention.WithInterval(opts.TickInterval))
	}
	if opts.Now != nil {
		clockOpts = append(clockOpts, retention.WithNow(opts.Now))
	}

	return &Watcher{
		buf:     buf,
		ctl:     conn.New(sub, buf, opts.URL, conn.WithJournal(opts.Journal)),
		clock:   retention.New(buf, clockOpts...),
		journal: opts.Journal,
		changed: make(chan struct{}, 1),
	}, nil
}

// Start launches the retention clock and change forwarding. It does not
// connect. Calling Start twice, or after Close, does nothing.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.cancel != nil {
		return
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.fwdDone = make(chan struct{})
	w.clock.Start(w.ctx)
	go w.forward(w.ctx, w.fwdDone)
}

func (w *Watcher) forward(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.buf.Changes():
		case <-w.ctl.Changes():
		}
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

// Changes receives a coalesced signal after buffer or connection changes.
// Re-read View on each signal.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changed
}

// Close stops the clock, releases the subscription and waits for both.
// Idempotent.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	cancel, fwdDone := w.cancel, w.fwdDone
	w.mu.Unlock()

	w.clock.Stop()
	w.ctl.Close()
	if cancel != nil {
		cancel()
		<-fwdDone
	}
	logging.Info("Watcher closed")
}

// Connect opens (or reopens) the subscription.
func (w *Watcher) Connect() error {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return w.ctl.Connect(ctx)
}

// Disconnect closes the subscription and discards events held while paused.
func (w *Watcher) Disconnect() {
	w.ctl.Disconnect()
}

// Pause freezes the visible set.
func (w *Watcher) Pause() {
	if w.buf.Pause() {
		w.journal.Info(otel.KindPause, "buffer", "")
	}
}

// Resume merges held events into the visible set.
func (w *Watcher) Resume() {
	if merged, ok := w.buf.Resume(); ok {
		w.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindResume, Comp: "buffer", Count: merged})
	}
}

// TogglePause flips between paused and running.
func (w *Watcher) TogglePause() {
	if w.buf.Paused() {
		w.Resume()
	} else {
		w.Pause()
	}
}

// Clear empties the buffer and resets its counters.
func (w *Watcher) Clear() {
	w.buf.Clear()
	w.journal.Info(otel.KindClear, "buffer", "")
}

// SetRetention changes the age window, in seconds. 0 disables purging.
func (w *Watcher) SetRetention(seconds int) error {
	return w.buf.SetRetention(seconds)
}

// SetURL changes where the next Connect subscribes.
func (w *Watcher) SetURL(url string) {
	w.ctl.SetURL(url)
}

// Status returns the connection state.
func (w *Watcher) Status() conn.Status {
	return w.ctl.Status()
}

// View reads the current state.
func (w *Watcher) View() View {
	return View{
		Snapshot: w.buf.Snapshot(),
		Status:   w.ctl.Status(),
		LastErr:  w.ctl.LastError(),
		Dropped:  w.ctl.Dropped(),
		URL:      w.ctl.URL(),
	}
}

// Pending returns the events held while paused, most recent first.
func (w *Watcher) Pending() []event.Event {
	return w.buf.Pending()
}
