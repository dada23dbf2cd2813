// Package stream opens push subscriptions and delivers raw messages.
//
// Subscribe never blocks on the network. It starts one goroutine that
// connects and then reports through the Handler callbacks: OnOpen once the
// upstream accepted the subscription, OnMessage for each message, and
// exactly one of OnError or OnClose when it ends. Nothing is reported after
// the caller's own Close. No reconnection is attempted.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor ws(s).
var ErrUnsupportedScheme = errors.New("stream: unsupported URL scheme")

// Handler receives subscription notifications. Nil callbacks are skipped.
// Callbacks for one subscription run sequentially on its goroutine.
type Handler struct {
	OnOpen    func()
	OnMessage func(raw []byte)
	OnError   func(err error)
	OnClose   func()
}

func (h Handler) open() {
	if h.OnOpen != nil {
		h.OnOpen()
	}
}

func (h Handler) message(raw []byte) {
	if h.OnMessage != nil {
		h.OnMessage(raw)
	}
}

func (h Handler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h Handler) closed() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

// Subscription is a live upstream connection.
type Subscription interface {
	// Close tears the connection down. It does not wait for the
	// subscription goroutine, so it is safe to call from a callback.
	Close() error
	// Done is closed once the subscription goroutine has exited.
	Done() <-chan struct{}
}

// Subscriber opens subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, rawURL string, h Handler) (Subscription, error)
}

// DefaultUserAgent identifies wikiwatch to upstream servers.
const DefaultUserAgent = "wikiwatch/0.1 (https://github.com/abelbrown/wikiwatch)"

// Dialer picks a transport by URL scheme.
type Dialer struct {
	SSE       *SSE
	WebSocket *WebSocket
}

// NewDialer returns a Dialer whose transports use the given connect timeout.
func NewDialer(connectTimeout time.Duration) *Dialer {
	return &Dialer{
		SSE:       NewSSE(connectTimeout),
		WebSocket: NewWebSocket(connectTimeout),
	}
}

// Subscribe implements Subscriber.
func (d *Dialer) Subscribe(ctx context.Context, rawURL string, h Handler) (Subscription, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("stream: parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return d.SSE.Subscribe(ctx, rawURL, h)
	case "ws", "wss":
		return d.WebSocket.Subscribe(ctx, rawURL, h)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// subscription is the cancel/done pair shared by both transports.
type subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	onClose   func() // transport-specific teardown, may be nil
}

func newSubscription(cancel context.CancelFunc) *subscription {
	return &subscription{cancel: cancel, done: make(chan struct{})}
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}
