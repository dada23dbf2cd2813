package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/abelbrown/wikiwatch/internal/buffer"
	"github.com/abelbrown/wikiwatch/internal/conn"
	"github.com/abelbrown/wikiwatch/internal/event"
	"github.com/abelbrown/wikiwatch/internal/watch"
	tea "github.com/charmbracelet/bubbletea"
)

// fakeWatcher records the actions the App issues.
type fakeWatcher struct {
	view        watch.View
	changes     chan struct{}
	connects    int
	connectErr  error
	disconnects int
	toggles     int
	clears      int
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{changes: make(chan struct{}, 1)}
}

func (f *fakeWatcher) View() watch.View         { return f.view }
func (f *fakeWatcher) Changes() <-chan struct{} { return f.changes }
func (f *fakeWatcher) Connect() error           { f.connects++; return f.connectErr }
func (f *fakeWatcher) Disconnect()              { f.disconnects++ }
func (f *fakeWatcher) TogglePause()             { f.toggles++ }
func (f *fakeWatcher) Clear()                   { f.clears++ }

func intp(n int) *int    { return &n }
func tsp(n int64) *int64 { return &n }

func sampleEvents() []event.Event {
	return []event.Event{
		{
			Wiki: "enwiki", Kind: event.KindEdit, Namespace: intp(0), Title: "Go (programming language)",
			User: "Gopher", Timestamp: tsp(1700000000),
			Length: &event.Length{Old: intp(1000), New: intp(1050)},
		},
		{
			Wiki: "dewiki", Kind: event.KindLog, Namespace: intp(14), Title: "Kategorie:Test",
			User: "CleanupBot", Bot: true, LogType: "delete", LogAction: "delete",
		},
		{
			Wiki: "frwiki", Kind: event.KindNew, Namespace: intp(118), Title: "Brouillon",
			User: "Someone", Length: &event.Length{New: intp(300)},
		},
	}
}

func sizedApp(t *testing.T, f *fakeWatcher) App {
	t.Helper()
	app := NewApp(AppConfig{Watcher: f, Filters: "enwiki · edit", ShowComment: true})
	model, _ := app.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	return model.(App)
}

func press(t *testing.T, a App, k string) (App, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func TestAppInitReturnsCommand(t *testing.T) {
	app := NewApp(AppConfig{Watcher: newFakeWatcher()})
	if app.Init() == nil {
		t.Fatal("Init should return a command")
	}
}

func TestAppLoadingBeforeSize(t *testing.T) {
	app := NewApp(AppConfig{Watcher: newFakeWatcher()})
	if got := app.View(); got != "Loading..." {
		t.Errorf("View before size = %q", got)
	}
}

func TestStateChangedRefreshesRows(t *testing.T) {
	f := newFakeWatcher()
	f.view = watch.View{
		Snapshot: buffer.Snapshot{Visible: sampleEvents(), TotalReceived: 5, Capacity: 200, Retention: 10},
		Status:   conn.StatusOpen,
	}
	app := sizedApp(t, f)

	model, cmd := app.Update(stateChanged{})
	app = model.(App)
	if cmd == nil {
		t.Error("stateChanged should re-arm the listener")
	}

	rows := app.table.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][3] != "Article" || rows[0][6] != "+50" {
		t.Errorf("row 0 = %q", rows[0])
	}
	if rows[1][2] != "log/delete/delete" || rows[1][3] != "Category" || rows[1][5] != "CleanupBot [bot]" {
		t.Errorf("row 1 = %q", rows[1])
	}
	if rows[2][3] != "NS:118" || rows[2][6] != "" {
		t.Errorf("row 2 = %q", rows[2])
	}

	view := app.View()
	for _, want := range []string{"WIKIWATCH", "Connected", "received", "5", "purged", "2", "retention 10s", "enwiki · edit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestListenerDeliversChange(t *testing.T) {
	f := newFakeWatcher()
	app := sizedApp(t, f)

	cmd := app.listen()
	f.changes <- struct{}{}
	if _, ok := cmd().(stateChanged); !ok {
		t.Error("listener should return stateChanged")
	}
}

func TestListenerStopsOnDone(t *testing.T) {
	done := make(chan struct{})
	app := NewApp(AppConfig{Watcher: newFakeWatcher(), Done: done})
	cmd := app.listen()
	close(done)
	if msg := cmd(); msg != nil {
		t.Errorf("listener after done = %v, want nil", msg)
	}
}

func TestStartKey(t *testing.T) {
	tests := []struct {
		status      conn.Status
		wantConnect bool
	}{
		{conn.StatusIdle, true},
		{conn.StatusClosed, true},
		{conn.StatusError, true},
		{conn.StatusConnecting, false},
		{conn.StatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			f := newFakeWatcher()
			f.view.Status = tt.status
			app := sizedApp(t, f)
			app.refresh()

			_, cmd := press(t, app, "s")
			if tt.wantConnect {
				if cmd == nil {
					t.Fatal("s should return a connect command")
				}
				if _, ok := cmd().(ConnectDone); !ok || f.connects != 1 {
					t.Errorf("connects = %d", f.connects)
				}
			} else if cmd != nil {
				t.Error("s should be ignored while connected or connecting")
			}
		})
	}
}

func TestConnectErrorShown(t *testing.T) {
	f := newFakeWatcher()
	app := sizedApp(t, f)

	model, _ := app.Update(ConnectDone{Err: errors.New("unsupported scheme")})
	app = model.(App)
	if !strings.Contains(app.View(), "unsupported scheme") {
		t.Error("connect error not rendered")
	}
}

func TestTransportErrorShown(t *testing.T) {
	f := newFakeWatcher()
	f.view.Status = conn.StatusError
	f.view.LastErr = errors.New("HTTP 503")
	app := sizedApp(t, f)
	app.refresh()

	view := app.View()
	if !strings.Contains(view, "HTTP 503") || !strings.Contains(view, "Error") {
		t.Errorf("error status not rendered:\n%s", view)
	}
}

func TestStopKey(t *testing.T) {
	f := newFakeWatcher()
	f.view.Status = conn.StatusIdle
	app := sizedApp(t, f)
	app.refresh()

	app, _ = press(t, app, "x")
	if f.disconnects != 0 {
		t.Error("x should be ignored while idle")
	}

	f.view.Status = conn.StatusOpen
	app.refresh()
	press(t, app, "x")
	if f.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", f.disconnects)
	}
}

func TestPauseAndClearKeys(t *testing.T) {
	f := newFakeWatcher()
	app := sizedApp(t, f)

	app, _ = press(t, app, " ")
	app, _ = press(t, app, "p")
	press(t, app, "c")

	if f.toggles != 2 {
		t.Errorf("toggles = %d, want 2", f.toggles)
	}
	if f.clears != 1 {
		t.Errorf("clears = %d, want 1", f.clears)
	}
}

func TestPausedBadge(t *testing.T) {
	f := newFakeWatcher()
	f.view.Status = conn.StatusOpen
	f.view.Paused = true
	f.view.PendingCount = 4
	app := sizedApp(t, f)
	app.refresh()

	view := app.View()
	if !strings.Contains(view, "PAUSED") {
		t.Error("paused badge missing")
	}
	if !strings.Contains(view, "held until you resume") {
		t.Error("paused empty text missing")
	}
}

func TestQuitKey(t *testing.T) {
	app := sizedApp(t, newFakeWatcher())
	_, cmd := press(t, app, "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestActionKeysIgnoredInDebug(t *testing.T) {
	f := newFakeWatcher()
	app := sizedApp(t, f)

	app, _ = press(t, app, "D")
	press(t, app, "c")
	if f.clears != 0 {
		t.Error("clear should be ignored while the debug overlay is open")
	}
}

func TestHelpToggle(t *testing.T) {
	app := sizedApp(t, newFakeWatcher())
	app, _ = press(t, app, "?")
	if !app.help.ShowAll {
		t.Error("? should expand help")
	}
	if !strings.Contains(app.View(), "stop stream") {
		t.Error("full help should list stop stream")
	}
}

func TestColumnsFitWidth(t *testing.T) {
	app := NewApp(AppConfig{ShowComment: true})
	cols := app.columns(160)
	total := 0
	for _, c := range cols {
		total += c.Width + 2
	}
	if total != 160 {
		t.Errorf("columns span %d, want 160", total)
	}

	narrow := app.columns(40)
	if narrow[4].Width != minTitle {
		t.Errorf("title width = %d, want minimum %d", narrow[4].Width, minTitle)
	}
}
