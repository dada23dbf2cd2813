package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// collector records Handler callbacks.
type collector struct {
	mu       sync.Mutex
	opened   int
	messages []string
	errs     []error
	closed   int
	end      chan struct{} // receives on error or close
}

func newCollector() *collector {
	return &collector{end: make(chan struct{}, 4)}
}

func (c *collector) handler() Handler {
	return Handler{
		OnOpen: func() {
			c.mu.Lock()
			c.opened++
			c.mu.Unlock()
		},
		OnMessage: func(raw []byte) {
			c.mu.Lock()
			c.messages = append(c.messages, string(raw))
			c.mu.Unlock()
		},
		OnError: func(err error) {
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
			c.end <- struct{}{}
		},
		OnClose: func() {
			c.mu.Lock()
			c.closed++
			c.mu.Unlock()
			c.end <- struct{}{}
		},
	}
}

func (c *collector) waitEnd(t *testing.T) {
	t.Helper()
	select {
	case <-c.end:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription to end")
	}
}

func (c *collector) snapshot() (opened int, msgs []string, errs []error, closed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, append([]string(nil), c.messages...), append([]error(nil), c.errs...), c.closed
}

func TestReadEvents(t *testing.T) {
	input := ": keepalive comment\n" +
		"event: message\n" +
		"id: 1\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data:first\n" +
		"data: second\r\n" +
		"\r\n" +
		"retry: 1000\n" +
		"\n" +
		"data: unterminated\n"

	var got []string
	if err := readEvents(strings.NewReader(input), func(d []byte) { got = append(got, string(d)) }); err != nil {
		t.Fatalf("readEvents: %v", err)
	}

	want := []string{`{"a":1}`, "first\nsecond"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadEventsEmptyData(t *testing.T) {
	var got []string
	readEvents(strings.NewReader("data\n\n"), func(d []byte) { got = append(got, string(d)) })
	if len(got) != 1 || got[0] != "" {
		t.Errorf("got %q, want one empty event", got)
	}
}

func TestSSESubscribeDeliversAndCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "data: {\"n\":%d}\n\n", i)
		}
	}))
	defer srv.Close()

	c := newCollector()
	sub, err := NewSSE(time.Second).Subscribe(context.Background(), srv.URL, c.handler())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	c.waitEnd(t)

	opened, msgs, errs, closed := c.snapshot()
	if opened != 1 {
		t.Errorf("opened = %d, want 1", opened)
	}
	if len(msgs) != 3 || msgs[2] != `{"n":2}` {
		t.Errorf("messages = %q", msgs)
	}
	if len(errs) != 0 || closed != 1 {
		t.Errorf("errs = %v, closed = %d; want clean close", errs, closed)
	}
}

func TestSSEHTTPErrorReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newCollector()
	sub, err := NewSSE(time.Second).Subscribe(context.Background(), srv.URL, c.handler())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	c.waitEnd(t)

	opened, _, errs, _ := c.snapshot()
	if opened != 0 {
		t.Error("OnOpen must not fire for a failed subscription")
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "503") {
		t.Errorf("errs = %v, want one 503 error", errs)
	}
}

func TestSSECloseSilencesCallbacks(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: one\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	got := make(chan string, 4)
	h := Handler{
		OnMessage: func(raw []byte) { got <- string(raw) },
		OnError:   func(err error) { t.Errorf("OnError after Close: %v", err) },
		OnClose:   func() { t.Error("OnClose after caller Close") },
	}
	sub, err := NewSSE(time.Second).Subscribe(context.Background(), srv.URL, h)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case m := <-got:
		if m != "one" {
			t.Errorf("message = %q", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}

	sub.Close()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription goroutine did not exit")
	}
}

func TestSSEConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newCollector()
	sub, err := NewSSE(time.Second).Subscribe(context.Background(), url, c.handler())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	c.waitEnd(t)

	if _, _, errs, _ := c.snapshot(); len(errs) != 1 {
		t.Errorf("errs = %v, want 1", errs)
	}
}

var upgrader = websocket.Upgrader{}

func TestWebSocketSubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"A"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"title":"B"}`))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// wait for the client to acknowledge
		conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := newCollector()
	sub, err := NewDialer(time.Second).Subscribe(context.Background(), wsURL, c.handler())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	c.waitEnd(t)

	opened, msgs, errs, closed := c.snapshot()
	if opened != 1 || closed != 1 || len(errs) != 0 {
		t.Errorf("opened=%d closed=%d errs=%v", opened, closed, errs)
	}
	if len(msgs) != 2 || msgs[0] != `{"title":"A"}` || msgs[1] != `{"title":"B"}` {
		t.Errorf("messages = %q", msgs)
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := newCollector()
	sub, err := NewWebSocket(time.Second).Subscribe(context.Background(), wsURL, c.handler())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	c.waitEnd(t)

	if _, _, errs, _ := c.snapshot(); len(errs) != 1 {
		t.Errorf("errs = %v, want handshake error", errs)
	}
}

func TestDialerRejectsUnknownScheme(t *testing.T) {
	_, err := NewDialer(time.Second).Subscribe(context.Background(), "ftp://example.org/stream", Handler{})
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("err = %v, want ErrUnsupportedScheme", err)
	}
}
