package ui

import (
	"fmt"
	"strings"

	"github.com/abelbrown/wikiwatch/internal/conn"
	"github.com/abelbrown/wikiwatch/internal/event"
	"github.com/abelbrown/wikiwatch/internal/otel"
	"github.com/abelbrown/wikiwatch/internal/watch"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Watcher is the part of watch.Watcher the UI drives.
type Watcher interface {
	View() watch.View
	Changes() <-chan struct{}
	Connect() error
	Disconnect()
	TogglePause()
	Clear()
}

// AppConfig holds the App's collaborators and display options.
type AppConfig struct {
	Watcher Watcher
	Ring    *otel.RingBuffer // debug overlay source, may be nil

	// Filters is a one-line description of the active stream filters.
	Filters     string
	ShowComment bool
	Theme       string // ThemeDark or ThemeLight; anything else is dark

	// Done stops the change listener when closed.
	Done <-chan struct{}
}

// App is the root Bubble Tea model.
// App never mutates the buffer directly; every action goes through Watcher
// and the result comes back as a state change.
type App struct {
	w       Watcher
	ring    *otel.RingBuffer
	done    <-chan struct{}
	filters string

	view    watch.View
	st      styles
	table   table.Model
	spinner spinner.Model
	help    help.Model

	showComment  bool
	debugVisible bool
	err          error
	width        int
	height       int
	ready        bool
}

// NewApp creates the App. Call Init through tea.NewProgram.
func NewApp(cfg AppConfig) App {
	st := newStyles(cfg.Theme)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = st.Spinner

	t := table.New(table.WithFocused(true))
	t.SetStyles(st.Table)

	a := App{
		w:           cfg.Watcher,
		ring:        cfg.Ring,
		done:        cfg.Done,
		filters:     cfg.Filters,
		st:          st,
		table:       t,
		spinner:     s,
		help:        help.New(),
		showComment: cfg.ShowComment,
	}
	a.table.SetColumns(a.columns(120))
	return a
}

// Init starts the spinner and the change listener. The first stateChanged
// is synthetic; each one handled re-arms a single listener.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg { return stateChanged{} },
	)
}

// listen waits for the next watcher change.
func (a App) listen() tea.Cmd {
	if a.w == nil {
		return nil
	}
	ch, done := a.w.Changes(), a.done
	return func() tea.Msg {
		select {
		case <-ch:
			return stateChanged{}
		case <-done:
			return nil
		}
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.help.Width = msg.Width
		a.table.SetColumns(a.columns(msg.Width))
		a.table.SetWidth(msg.Width)
		a.table.SetHeight(a.tableHeight())
		return a, nil

	case stateChanged:
		a.refresh()
		return a, a.listen()

	case ConnectDone:
		a.err = msg.Err
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		a.debugVisible = !a.debugVisible
		return a, nil

	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.table.SetHeight(a.tableHeight())
		return a, nil

	case key.Matches(msg, keys.Theme):
		a.st = a.st.toggled()
		a.table.SetStyles(a.st.Table)
		a.spinner.Style = a.st.Spinner
		return a, nil
	}

	if a.debugVisible || a.w == nil {
		return a, nil
	}

	switch {
	case key.Matches(msg, keys.Start):
		// Start is disabled while a connection is live or being opened.
		if s := a.view.Status; s == conn.StatusOpen || s == conn.StatusConnecting {
			return a, nil
		}
		a.err = nil
		w := a.w
		return a, func() tea.Msg { return ConnectDone{Err: w.Connect()} }

	case key.Matches(msg, keys.Stop):
		if s := a.view.Status; s == conn.StatusIdle || s == conn.StatusClosed {
			return a, nil
		}
		a.w.Disconnect()
		a.refresh()
		return a, nil

	case key.Matches(msg, keys.Pause):
		a.w.TogglePause()
		a.refresh()
		return a, nil

	case key.Matches(msg, keys.Clear):
		a.w.Clear()
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

// refresh re-reads the watcher and rebuilds the table rows.
func (a *App) refresh() {
	if a.w == nil {
		return
	}
	a.view = a.w.View()
	rows := make([]table.Row, 0, len(a.view.Visible))
	for _, ev := range a.view.Visible {
		rows = append(rows, a.row(ev))
	}
	a.table.SetRows(rows)
	if c := a.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		a.table.SetCursor(len(rows) - 1)
	}
}

func (a App) row(ev event.Event) table.Row {
	r := table.Row{
		clockText(ev),
		ev.Wiki,
		kindText(ev),
		namespaceLabel(ev.Namespace),
		ev.Title,
		userText(ev),
		deltaText(ev),
	}
	if a.showComment {
		r = append(r, strings.ReplaceAll(ev.Comment, "\n", " "))
	}
	return r
}

// Fixed column widths; Title and Comment share what is left.
const (
	colTime  = 8
	colWiki  = 12
	colType  = 10
	colNS    = 13
	colUser  = 20
	colDelta = 7
	minTitle = 12
)

func (a App) columns(width int) []table.Column {
	n := 7
	if a.showComment {
		n = 8
	}
	// Each cell carries one column of padding on both sides.
	rest := width - (colTime + colWiki + colType + colNS + colUser + colDelta) - 2*n
	title, comment := rest, 0
	if a.showComment {
		title = rest * 3 / 5
		comment = rest - title
	}
	if title < minTitle {
		title = minTitle
	}

	cols := []table.Column{
		{Title: "Time", Width: colTime},
		{Title: "Wiki", Width: colWiki},
		{Title: "Type", Width: colType},
		{Title: "NS", Width: colNS},
		{Title: "Title", Width: title},
		{Title: "User", Width: colUser},
		{Title: "Δ bytes", Width: colDelta},
	}
	if a.showComment {
		if comment < 1 {
			comment = 1
		}
		cols = append(cols, table.Column{Title: "Comment", Width: comment})
	}
	return cols
}

// tableHeight is the terminal height minus header, message line and help.
func (a App) tableHeight() int {
	h := a.height - 2 - lipgloss.Height(a.help.View(keys))
	if h < 3 {
		h = 3
	}
	return h
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		overlay := debugOverlay(a.st, a.ring, a.width, a.height-1)
		if overlay == "" {
			overlay = a.st.EmptyStyle.Render("Journal disabled (started with --no-journal).")
		}
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.st, a.width))
	}

	var body string
	if len(a.view.Visible) == 0 {
		body = a.st.EmptyStyle.Height(a.tableHeight()).Render(a.emptyText())
	} else {
		body = a.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		body,
		a.renderMessageLine(),
		a.help.View(keys),
	)
}

func (a App) emptyText() string {
	switch a.view.Status {
	case conn.StatusOpen:
		if a.view.Paused {
			return "Paused. New events are held until you resume."
		}
		return "Waiting for events..."
	case conn.StatusConnecting:
		return "Connecting to " + a.view.URL
	default:
		return "No events. Press s to start the stream."
	}
}

func (a App) renderHeader() string {
	st := a.view.Status
	label := statusLabel(st)
	if st == conn.StatusConnecting {
		label = a.spinner.View() + label
	}

	parts := []string{
		a.st.Header.Render("WIKIWATCH"),
		" ",
		a.st.status(st).Render(label),
		" ",
		a.counter("received", a.view.TotalReceived),
		a.counter("visible", len(a.view.Visible)),
		a.counter("pending", a.view.PendingCount),
		a.counter("purged", a.view.PurgedCount()),
	}
	if a.view.Retention > 0 {
		parts = append(parts, a.st.CounterLabel.Render(fmt.Sprintf(" retention %ds ", a.view.Retention)))
	}
	if a.view.Paused {
		parts = append(parts, " ", a.st.PausedBadge.Render("PAUSED"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) counter(label string, n int) string {
	return a.st.CounterLabel.Render(" "+label+" ") + a.st.CounterValue.Render(fmt.Sprint(n))
}

// renderMessageLine shows the last error, or the stream filters.
func (a App) renderMessageLine() string {
	err := a.err
	if err == nil && a.view.Status == conn.StatusError {
		err = a.view.LastErr
	}
	if err != nil {
		return a.st.ErrorStyle.Width(a.width).Render("Error: " + err.Error() + " (press s to reconnect)")
	}

	text := a.filters
	if a.view.Dropped > 0 {
		text += fmt.Sprintf("  ·  %d undecodable dropped", a.view.Dropped)
	}
	return a.st.StatusBar.Width(a.width).Render(a.st.StatusBarText.Render(text))
}
