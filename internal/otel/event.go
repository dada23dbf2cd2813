// Package otel records what the stream and buffer did, for later inspection.
//
// Records are typed structs written as JSONL by an async Logger (buffered
// channel + drain goroutine). A RingBuffer can be attached to keep the most
// recent records in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of a record.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Connection lifecycle
	KindConnect    EventKind = "conn.connect"
	KindOpen       EventKind = "conn.open"
	KindConnError  EventKind = "conn.error"
	KindPeerClosed EventKind = "conn.closed"
	KindDisconnect EventKind = "conn.disconnect"

	// Stream traffic
	KindDecodeDrop  EventKind = "stream.decode_drop"
	KindMsgReceived EventKind = "stream.message"

	// Buffer state changes
	KindPause  EventKind = "buffer.pause"
	KindResume EventKind = "buffer.resume"
	KindPurge  EventKind = "buffer.purge"
	KindClear  EventKind = "buffer.clear"

	// Process
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is one journal record. Every field except Kind and Time is optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "conn", "buffer", "retention", "main"
	SessionID string         `json:"session_id,omitempty"`
	Gen       uint64         `json:"gen,omitempty"` // connection generation
	URL       string         `json:"url,omitempty"`
	Count     int            `json:"count,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
