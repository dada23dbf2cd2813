package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket subscribes to a ws:// or wss:// endpoint. Each text or binary
// frame is one raw message.
type WebSocket struct {
	dialer    *websocket.Dialer
	UserAgent string
}

// NewWebSocket returns a WebSocket transport with the given handshake timeout.
func NewWebSocket(handshakeTimeout time.Duration) *WebSocket {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &WebSocket{dialer: &d, UserAgent: DefaultUserAgent}
}

// Subscribe implements Subscriber.
func (w *WebSocket) Subscribe(ctx context.Context, rawURL string, h Handler) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	var (
		mu   sync.Mutex
		conn *websocket.Conn
	)
	sub.onClose = func() {
		mu.Lock()
		c := conn
		mu.Unlock()
		if c != nil {
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.Close()
		}
	}

	header := http.Header{}
	if w.UserAgent != "" {
		header.Set("User-Agent", w.UserAgent)
	}

	go func() {
		defer close(sub.done)
		defer cancel()

		c, _, err := w.dialer.DialContext(ctx, rawURL, header)
		if err != nil {
			if ctx.Err() == nil {
				h.fail(fmt.Errorf("stream: websocket dial: %w", err))
			}
			return
		}
		mu.Lock()
		conn = c
		mu.Unlock()
		defer c.Close()

		// Close may have run before conn was published.
		if ctx.Err() != nil {
			return
		}

		h.open()
		for {
			msgType, data, err := c.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.closed()
					return
				}
				h.fail(fmt.Errorf("stream: websocket read: %w", err))
				return
			}
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			h.message(data)
		}
	}()
	return sub, nil
}
