package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abelbrown/wikiwatch/internal/conn"
	"github.com/abelbrown/wikiwatch/internal/event"
	"github.com/charmbracelet/lipgloss"
)

var namespaceNames = map[int]string{
	0:  "Article",
	1:  "Talk",
	2:  "User",
	3:  "User Talk",
	4:  "Project",
	5:  "Project Talk",
	6:  "File",
	7:  "File Talk",
	10: "Template",
	11: "Template Talk",
	14: "Category",
	15: "Category Talk",
}

// namespaceLabel names a page namespace. Unknown numbers show as NS:n and
// a missing namespace as an em dash.
func namespaceLabel(ns *int) string {
	if ns == nil {
		return "—"
	}
	if name, ok := namespaceNames[*ns]; ok {
		return name
	}
	return "NS:" + strconv.Itoa(*ns)
}

// deltaText is the signed byte change, or "" when either size is unknown.
func deltaText(ev event.Event) string {
	d, ok := ev.Delta()
	if !ok {
		return ""
	}
	if d > 0 {
		return "+" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

// clockText is the event time as HH:MM:SS in local time.
func clockText(ev event.Event) string {
	if !ev.HasTimestamp() {
		return ""
	}
	return ev.Time().Format("15:04:05")
}

func userText(ev event.Event) string {
	if ev.Bot {
		return ev.User + " [bot]"
	}
	return ev.User
}

func kindText(ev event.Event) string {
	if ev.Kind == event.KindLog && ev.LogType != "" {
		if ev.LogAction != "" {
			return "log/" + ev.LogType + "/" + ev.LogAction
		}
		return "log/" + ev.LogType
	}
	if ev.Kind == "" {
		return string(event.KindUnknown)
	}
	return string(ev.Kind)
}

// statusLabel is the chip text for a connection state.
func statusLabel(s conn.Status) string {
	switch s {
	case conn.StatusOpen:
		return "Connected"
	case conn.StatusConnecting:
		return "Connecting..."
	case conn.StatusError:
		return "Error"
	case conn.StatusClosed:
		return "Disconnected"
	default:
		return "Idle"
	}
}

// status picks the chip style for a connection state.
func (st styles) status(s conn.Status) lipgloss.Style {
	switch s {
	case conn.StatusOpen:
		return st.ChipOpen
	case conn.StatusConnecting:
		return st.ChipConnecting
	case conn.StatusError:
		return st.ChipError
	case conn.StatusClosed:
		return st.ChipClosed
	default:
		return st.ChipIdle
	}
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes cuts s to at most n runes, ending in "…" when cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
