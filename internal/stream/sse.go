package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxLineSize bounds a single SSE line. Recent-change events are a few KB.
const maxLineSize = 1 << 20

// SSE subscribes to a text/event-stream endpoint.
type SSE struct {
	client    *http.Client
	UserAgent string
}

// NewSSE returns an SSE transport. connectTimeout bounds dialing and the
// wait for response headers; the body itself is read for as long as the
// subscription lives.
func NewSSE(connectTimeout time.Duration) *SSE {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.ResponseHeaderTimeout = connectTimeout
	return &SSE{
		client:    &http.Client{Transport: transport},
		UserAgent: DefaultUserAgent,
	}
}

// Subscribe implements Subscriber.
func (s *SSE) Subscribe(ctx context.Context, rawURL string, h Handler) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	sub := newSubscription(cancel)
	go func() {
		defer close(sub.done)
		defer cancel()
		s.run(ctx, req, h)
	}()
	return sub, nil
}

func (s *SSE) run(ctx context.Context, req *http.Request, h Handler) {
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			h.fail(fmt.Errorf("stream: connect: %w", err))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if ctx.Err() == nil {
			h.fail(fmt.Errorf("stream: HTTP %s", resp.Status))
		}
		return
	}

	h.open()
	err = readEvents(resp.Body, func(data []byte) {
		if ctx.Err() == nil {
			h.message(data)
		}
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		h.fail(fmt.Errorf("stream: read: %w", err))
		return
	}
	h.closed()
}

// readEvents parses an event stream and calls emit with the data of each
// dispatched event. Multiple data lines are joined with "\n". Comment
// lines and the event, id and retry fields are ignored. A trailing event
// without its terminating blank line is discarded. Returns nil at EOF.
func readEvents(r io.Reader, emit func(data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var data bytes.Buffer
	hasData := false
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			if hasData {
				emit(bytes.Clone(data.Bytes()))
			}
			data.Reset()
			hasData = false
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}
		if string(field) != "data" {
			continue
		}
		if hasData {
			data.WriteByte('\n')
		}
		data.Write(value)
		hasData = true
	}
	return sc.Err()
}
