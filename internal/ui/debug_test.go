package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/wikiwatch/internal/otel"
	tea "github.com/charmbracelet/bubbletea"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(newStyles(ThemeDark), nil, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindConnect, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindOpen, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindConnError, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindPurge, Time: time.Now(), Count: 7})
	ring.Push(otel.Event{Kind: otel.KindDecodeDrop, Time: time.Now(), Count: 3})

	result := debugOverlay(newStyles(ThemeDark), ring, 120, 40)

	if !strings.Contains(result, "Stream Stats") {
		t.Error("overlay should contain 'Stream Stats' header")
	}
	if !strings.Contains(result, "1 started, 1 open, 1 errors") {
		t.Errorf("overlay should show connection stats, got:\n%s", result)
	}
	if !strings.Contains(result, "3 undecodable") {
		t.Errorf("overlay should sum decode drops, got:\n%s", result)
	}
	if !strings.Contains(result, "7 purged") {
		t.Errorf("overlay should sum purged events, got:\n%s", result)
	}
	if !strings.Contains(result, "5 / 64 records") {
		t.Errorf("overlay should show journal stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindConnect, Time: time.Now(), Gen: 3, Msg: "hello world"})
	ring.Push(otel.Event{Kind: otel.KindConnError, Time: time.Now(), Err: "timeout"})
	ring.Push(otel.Event{Kind: otel.KindPurge, Time: time.Now(), Count: 12})

	result := debugOverlay(newStyles(ThemeDark), ring, 120, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "hello world") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
	if !strings.Contains(result, "gen:3") {
		t.Errorf("overlay should show connection generation, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	if !strings.Contains(result, "n=12") {
		t.Errorf("overlay should show count, got:\n%s", result)
	}
}

func TestDebugOverlayShowsNewestTwenty(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindMsgReceived, Time: time.Now(), Msg: fmt.Sprintf("rec-%02d", i)})
	}

	result := debugOverlay(newStyles(ThemeDark), ring, 120, 100)
	if !strings.Contains(result, "rec-10") || !strings.Contains(result, "rec-29") {
		t.Errorf("overlay should list the newest twenty records, got:\n%s", result)
	}
	if strings.Contains(result, "rec-09") {
		t.Error("overlay lists a record older than the newest twenty")
	}
	if !strings.Contains(result, "30 traced") || !strings.Contains(result, "30 / 64 records") {
		t.Errorf("stats should cover every held record, got:\n%s", result)
	}
}

func TestDebugOverlayTruncatesToHeight(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindMsgReceived, Time: time.Now()})
	}

	result := debugOverlay(newStyles(ThemeDark), ring, 120, 15)
	// Height 15 leaves 11 content lines plus 4 lines of chrome.
	if got := strings.Count(result, "\n") + 1; got > 15 {
		t.Errorf("overlay height = %d, want <= 15", got)
	}
}

func TestDebugToggleShowsOverlay(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	ring.Push(otel.Event{Kind: otel.KindStartup, Time: time.Now()})
	app := NewApp(AppConfig{Watcher: newFakeWatcher(), Ring: ring})
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = model.(App)

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	app = model.(App)
	if !app.debugVisible {
		t.Fatal("D should open the debug overlay")
	}
	view := app.View()
	if !strings.Contains(view, "Stream Stats") || !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view missing overlay:\n%s", view)
	}

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if model.(App).debugVisible {
		t.Error("second D should close the overlay")
	}
}

func TestDebugOverlayWithoutJournal(t *testing.T) {
	app := NewApp(AppConfig{Watcher: newFakeWatcher()})
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model, _ = model.(App).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if !strings.Contains(model.(App).View(), "Journal disabled") {
		t.Error("overlay without ring should say the journal is disabled")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{3 * time.Minute, "3m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNamespaceLabel(t *testing.T) {
	if got := namespaceLabel(nil); got != "—" {
		t.Errorf("nil namespace = %q", got)
	}
	if got := namespaceLabel(intp(0)); got != "Article" {
		t.Errorf("ns 0 = %q", got)
	}
	if got := namespaceLabel(intp(2600)); got != "NS:2600" {
		t.Errorf("ns 2600 = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語テキスト", 3, "日本…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.s, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}
