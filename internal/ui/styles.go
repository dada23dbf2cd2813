package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Theme names accepted in the config file.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// palette is the set of colors one theme renders with.
type palette struct {
	primary   lipgloss.Color // header and selection background
	secondary lipgloss.Color // idle chip, dim status text
	muted     lipgloss.Color // placeholder text
	highlight lipgloss.Color // badges, column headers, key hints
	success   lipgloss.Color
	info      lipgloss.Color
	warning   lipgloss.Color
	errColor  lipgloss.Color
	text      lipgloss.Color // counters and header text
	onAccent  lipgloss.Color // text drawn on a colored chip
	bar       lipgloss.Color // status bar background
}

var palettes = map[string]palette{
	ThemeDark: {
		primary:   lipgloss.Color("62"),  // Purple
		secondary: lipgloss.Color("241"), // Gray
		muted:     lipgloss.Color("240"),
		highlight: lipgloss.Color("212"), // Pink
		success:   lipgloss.Color("78"),
		info:      lipgloss.Color("39"),
		warning:   lipgloss.Color("214"),
		errColor:  lipgloss.Color("196"),
		text:      lipgloss.Color("255"),
		onAccent:  lipgloss.Color("0"),
		bar:       lipgloss.Color("236"),
	},
	ThemeLight: {
		primary:   lipgloss.Color("#1976d2"), // Blue
		secondary: lipgloss.Color("#4a4f57"),
		muted:     lipgloss.Color("245"),
		highlight: lipgloss.Color("#9c27b0"), // Purple
		success:   lipgloss.Color("28"),
		info:      lipgloss.Color("31"),
		warning:   lipgloss.Color("166"),
		errColor:  lipgloss.Color("160"),
		text:      lipgloss.Color("232"),
		onAccent:  lipgloss.Color("255"),
		bar:       lipgloss.Color("254"),
	},
}

// styles holds every style the App renders with, built from one palette.
type styles struct {
	theme string

	Header         lipgloss.Style
	ChipIdle       lipgloss.Style
	ChipConnecting lipgloss.Style
	ChipOpen       lipgloss.Style
	ChipError      lipgloss.Style
	ChipClosed     lipgloss.Style
	PausedBadge    lipgloss.Style
	CounterLabel   lipgloss.Style
	CounterValue   lipgloss.Style
	StatusBar      lipgloss.Style
	StatusBarKey   lipgloss.Style
	StatusBarText  lipgloss.Style
	ErrorStyle     lipgloss.Style
	EmptyStyle     lipgloss.Style
	Spinner        lipgloss.Style

	DebugPanel       lipgloss.Style
	DebugHeaderStyle lipgloss.Style

	Table table.Styles
}

// newStyles builds the styles for theme. Unknown names get the dark theme.
func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		theme = ThemeDark
		p = palettes[ThemeDark]
	}

	chip := lipgloss.NewStyle().
		Bold(true).
		Foreground(p.onAccent).
		Padding(0, 1)

	tbl := table.DefaultStyles()
	tbl.Header = tbl.Header.Bold(true).Foreground(p.highlight)
	tbl.Selected = tbl.Selected.Foreground(lipgloss.Color("255")).Background(p.primary)

	return styles{
		theme: theme,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(p.primary).
			Padding(0, 1),

		ChipIdle:       chip.Background(p.secondary),
		ChipConnecting: chip.Background(p.info),
		ChipOpen:       chip.Background(p.success),
		ChipError:      chip.Background(p.errColor).Foreground(lipgloss.Color("255")),
		ChipClosed:     chip.Background(p.warning),

		PausedBadge: chip.Background(p.highlight),

		CounterLabel: lipgloss.NewStyle().Foreground(p.secondary),
		CounterValue: lipgloss.NewStyle().Bold(true).Foreground(p.text),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.text).
			Background(p.bar).
			Padding(0, 1),
		StatusBarKey:  lipgloss.NewStyle().Foreground(p.highlight).Bold(true),
		StatusBarText: lipgloss.NewStyle().Foreground(p.secondary),

		ErrorStyle: lipgloss.NewStyle().
			Foreground(p.errColor).
			Bold(true).
			Padding(0, 1),

		// Placeholder shown before any event arrives.
		EmptyStyle: lipgloss.NewStyle().
			Foreground(p.muted).
			Padding(1, 2),

		Spinner: lipgloss.NewStyle().Foreground(p.info),

		DebugPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.primary).
			Padding(1, 2),
		DebugHeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.highlight),

		Table: tbl,
	}
}

// Theme reports the theme name the styles were built for.
func (s styles) Theme() string {
	return s.theme
}

// toggled returns the styles for the other theme.
func (s styles) toggled() styles {
	if s.theme == ThemeLight {
		return newStyles(ThemeDark)
	}
	return newStyles(ThemeLight)
}
