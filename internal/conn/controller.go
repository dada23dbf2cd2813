// Package conn owns the single upstream subscription and feeds its messages
// into the stream buffer.
//
// # Lifecycle
//
//	idle ──Connect──> connecting ──open──> open ──error──> error
//	                       │                 │
//	                       └──error──> error ├──peer close──> closed
//	                                         └──Disconnect──> closed
//
// Connect from any state closes the previous subscription first. An error is
// terminal for that connection instance; nothing reconnects automatically.
//
// # Stale callbacks
//
// Every Connect starts a new generation. Transport callbacks carry the
// generation they were created for and are ignored once Connect, Disconnect
// or Close has moved past it. Admission happens under the controller lock
// after the generation check, so no message from a dead instance can reach
// the buffer after Disconnect or Close returns.
package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/wikiwatch/internal/event"
	"github.com/abelbrown/wikiwatch/internal/logging"
	"github.com/abelbrown/wikiwatch/internal/otel"
	"github.com/abelbrown/wikiwatch/internal/stream"
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("conn: controller closed")

// Status is the connection state shown to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusError
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusError:
		return "error"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink is the buffer side of the controller: decoded events go to Admit and
// Disconnect calls Discard.
type Sink interface {
	Admit(ev event.Event)
	Discard() int
}

// dropLogEvery bounds how often decode drops are reported.
const dropLogEvery = 5 * time.Second

// Controller connects one Subscriber to one Sink.
type Controller struct {
	subscriber stream.Subscriber
	sink       Sink
	journal    *otel.Logger
	dropLimit  *rate.Limiter

	mu         sync.Mutex
	url        string
	status     Status
	lastErr    error
	gen        uint64
	live       stream.Subscription
	closed     bool
	received   int // raw messages on the current generation
	dropped    int // decode failures since start
	unreported int // decode failures not yet logged
	changed    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records connection lifecycle and decode drops.
func WithJournal(j *otel.Logger) Option {
	return func(c *Controller) { c.journal = j }
}

// New creates an idle Controller subscribing to url on Connect.
func New(sub stream.Subscriber, sink Sink, url string, opts ...Option) *Controller {
	c := &Controller{
		subscriber: sub,
		sink:       sink,
		url:        url,
		dropLimit:  rate.NewLimiter(rate.Every(dropLogEvery), 1),
		changed:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Changes receives a coalesced signal after each status change.
func (c *Controller) Changes() <-chan struct{} {
	return c.changed
}

// notify must be called with c.mu held.
func (c *Controller) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Status returns the current connection state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the error that moved the controller into StatusError,
// or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// URL returns the subscription URL used by the next Connect.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// SetURL changes the subscription URL. The live connection is unaffected
// until the next Connect.
func (c *Controller) SetURL(url string) {
	c.mu.Lock()
	c.url = url
	c.mu.Unlock()
}

// Dropped returns the number of messages that failed to decode.
func (c *Controller) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Connect closes any live subscription and opens a new one. A Subscribe
// failure moves the controller to StatusError and is also returned. ctx
// bounds the lifetime of the new subscription.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.live
	c.live = nil
	c.gen++
	gen := c.gen
	url := c.url
	c.status = StatusConnecting
	c.lastErr = nil
	c.received = 0
	c.notify()
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	logging.Info("Connecting", "url", url, "gen", gen)
	c.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindConnect, Comp: "conn", Gen: gen, URL: url})

	sub, err := c.subscriber.Subscribe(ctx, url, c.handler(gen))

	c.mu.Lock()
	if gen != c.gen || c.closed {
		// Disconnect, Close or another Connect won the race.
		c.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		return nil
	}
	if err != nil {
		c.status = StatusError
		c.lastErr = err
		c.notify()
		c.mu.Unlock()
		logging.Error("Subscribe failed", "url", url, "error", err)
		c.journal.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindConnError, Comp: "conn", Gen: gen, URL: url, Err: err.Error()})
		return err
	}
	if c.status != StatusConnecting && c.status != StatusOpen {
		// The transport already reported OnError or OnClose for this
		// generation before Subscribe returned.
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	c.live = sub
	c.mu.Unlock()
	return nil
}

// Disconnect closes the live subscription, moves to StatusClosed and tells
// the sink to leave pause mode and discard pending events.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	live := c.live
	c.live = nil
	c.gen++
	gen := c.gen
	c.status = StatusClosed
	dropped := c.sink.Discard()
	c.notify()
	c.mu.Unlock()

	if live != nil {
		live.Close()
	}
	logging.Info("Disconnected", "gen", gen, "discarded", dropped)
	c.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDisconnect, Comp: "conn", Gen: gen, Count: dropped})
}

// Close releases any live subscription whatever the state and waits for its
// goroutine to exit. Later Connect calls fail with ErrClosed. Status is left
// as it was.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	live := c.live
	c.live = nil
	c.gen++
	c.mu.Unlock()

	if live != nil {
		live.Close()
		<-live.Done()
	}
}

func (c *Controller) handler(gen uint64) stream.Handler {
	return stream.Handler{
		OnOpen:    func() { c.onOpen(gen) },
		OnMessage: func(raw []byte) { c.onMessage(gen, raw) },
		OnError:   func(err error) { c.onError(gen, err) },
		OnClose:   func() { c.onClosedByPeer(gen) },
	}
}

// current must be called with c.mu held.
func (c *Controller) current(gen uint64) bool {
	return gen == c.gen && !c.closed
}

func (c *Controller) onOpen(gen uint64) {
	c.mu.Lock()
	if !c.current(gen) || c.status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.status = StatusOpen
	url := c.url
	c.notify()
	c.mu.Unlock()

	logging.Info("Stream open", "url", url, "gen", gen)
	c.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindOpen, Comp: "conn", Gen: gen, URL: url})
}

func (c *Controller) onMessage(gen uint64, raw []byte) {
	ev, err := event.Decode(raw)

	c.mu.Lock()
	if !c.current(gen) || c.status != StatusOpen {
		c.mu.Unlock()
		return
	}
	c.received++
	if err != nil {
		c.dropped++
		c.unreported++
		var report int
		if c.dropLimit.Allow() {
			report, c.unreported = c.unreported, 0
		}
		c.mu.Unlock()

		if report > 0 {
			logging.Debug("Dropped undecodable messages", "count", report, "error", err)
			c.journal.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindDecodeDrop, Comp: "conn", Gen: gen, Count: report, Err: err.Error()})
		}
		return
	}
	c.sink.Admit(ev)
	n := c.received
	c.mu.Unlock()

	if otel.TraceEnabled() {
		c.journal.Emit(otel.Event{
			Level: otel.LevelDebug,
			Kind:  otel.KindMsgReceived,
			Comp:  "conn",
			Gen:   gen,
			Count: n,
			Extra: map[string]any{"wiki": ev.Wiki, "type": string(ev.Kind), "title": ev.Title},
		})
	}
}

func (c *Controller) onError(gen uint64, err error) {
	c.mu.Lock()
	if !c.current(gen) || (c.status != StatusConnecting && c.status != StatusOpen) {
		c.mu.Unlock()
		return
	}
	c.status = StatusError
	c.lastErr = err
	live := c.live
	c.live = nil
	c.notify()
	c.mu.Unlock()

	if live != nil {
		live.Close()
	}
	logging.Warn("Stream error", "gen", gen, "error", err)
	c.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindConnError, Comp: "conn", Gen: gen, Err: errString(err)})
}

func (c *Controller) onClosedByPeer(gen uint64) {
	c.mu.Lock()
	if !c.current(gen) || (c.status != StatusConnecting && c.status != StatusOpen) {
		c.mu.Unlock()
		return
	}
	c.status = StatusClosed
	live := c.live
	c.live = nil
	c.notify()
	c.mu.Unlock()

	if live != nil {
		live.Close()
	}
	logging.Info("Stream closed by peer", "gen", gen)
	c.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPeerClosed, Comp: "conn", Gen: gen})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
