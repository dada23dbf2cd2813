// Package event defines the recent-change record carried by the stream and
// decodes raw push messages into it.
//
// Events are values. Once decoded they are never mutated; the buffer and the
// UI share them freely without copying.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDecode is returned when a raw message is not a well-formed event.
// Callers drop the message and keep the stream going.
var ErrDecode = errors.New("event: malformed message")

// Kind is the closed set of change types the stream emits.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindEdit       Kind = "edit"
	KindNew        Kind = "new"
	KindLog        Kind = "log"
	KindCategorize Kind = "categorize"
)

// ParseKind maps a wire value onto the closed set. Anything unrecognized,
// including the empty string, becomes KindUnknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindEdit, KindNew, KindLog, KindCategorize:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Length is the page size before and after an edit. Either side may be
// absent (page creation has no old size).
type Length struct {
	Old *int `json:"old,omitempty"`
	New *int `json:"new,omitempty"`
}

// Event is one recent change.
type Event struct {
	Wiki      string  `json:"wiki,omitempty"`
	Kind      Kind    `json:"type,omitempty"`
	Namespace *int    `json:"namespace,omitempty"`
	Title     string  `json:"title,omitempty"`
	User      string  `json:"user,omitempty"`
	Bot       bool    `json:"bot,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"` // unix seconds
	Comment   string  `json:"comment,omitempty"`
	Length    *Length `json:"length,omitempty"`
	LogType   string  `json:"log_type,omitempty"`
	LogAction string  `json:"log_action,omitempty"`
}

// HasTimestamp reports whether the event carries a usable timestamp.
// Events without one are never purged by age.
func (e Event) HasTimestamp() bool {
	return e.Timestamp != nil
}

// Unix returns the timestamp in unix seconds, or 0 when unset.
func (e Event) Unix() int64 {
	if e.Timestamp == nil {
		return 0
	}
	return *e.Timestamp
}

// Time returns the timestamp as a time.Time, or the zero time when unset.
func (e Event) Time() time.Time {
	if e.Timestamp == nil {
		return time.Time{}
	}
	return time.Unix(*e.Timestamp, 0)
}

// Delta returns new-old page size. ok is false unless both sides are known.
func (e Event) Delta() (delta int, ok bool) {
	if e.Length == nil || e.Length.Old == nil || e.Length.New == nil {
		return 0, false
	}
	return *e.Length.New - *e.Length.Old, true
}

// ID returns a display key for the event. It is not guaranteed unique: two
// edits to the same page by the same user in the same second collide.
func (e Event) ID() string {
	return fmt.Sprintf("%s:%d:%s:%s", e.Wiki, e.Unix(), e.Title, e.User)
}

// wireEvent mirrors Event with loosely typed fields so that one bad field
// (a string timestamp, a float namespace) does not reject the whole message.
type wireEvent struct {
	Wiki      string          `json:"wiki"`
	Type      string          `json:"type"`
	Namespace json.RawMessage `json:"namespace"`
	Title     string          `json:"title"`
	User      string          `json:"user"`
	Bot       bool            `json:"bot"`
	Timestamp json.RawMessage `json:"timestamp"`
	Comment   string          `json:"comment"`
	Length    *struct {
		Old json.RawMessage `json:"old"`
		New json.RawMessage `json:"new"`
	} `json:"length"`
	LogType   string `json:"log_type"`
	LogAction string `json:"log_action"`
}

// Decode parses one raw stream message. The payload must be a JSON object;
// anything else returns an error wrapping ErrDecode. Fields with an
// unexpected type are treated as absent.
func Decode(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}

	var w wireEvent
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ev := Event{
		Wiki:      w.Wiki,
		Kind:      ParseKind(w.Type),
		Title:     w.Title,
		User:      w.User,
		Bot:       w.Bot,
		Comment:   w.Comment,
		LogType:   w.LogType,
		LogAction: w.LogAction,
	}
	if ns, ok := rawInt(w.Namespace); ok {
		n := int(ns)
		ev.Namespace = &n
	}
	if ts, ok := rawInt(w.Timestamp); ok {
		ev.Timestamp = &ts
	}
	if w.Length != nil {
		var l Length
		if v, ok := rawInt(w.Length.Old); ok {
			n := int(v)
			l.Old = &n
		}
		if v, ok := rawInt(w.Length.New); ok {
			n := int(v)
			l.New = &n
		}
		if l.Old != nil || l.New != nil {
			ev.Length = &l
		}
	}
	return ev, nil
}

// DecodeString is Decode for text frames.
func DecodeString(raw string) (Event, error) {
	return Decode([]byte(raw))
}

// rawInt reads a JSON number, or a string holding one. Fractional numbers
// are truncated; null and non-numeric values report !ok.
func rawInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return int64(f), true
}
