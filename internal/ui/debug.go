package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/wikiwatch/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing stream stats and recent
// journal records. Returns empty string if ring is nil.
func debugOverlay(st styles, ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	held := ring.Last(ring.Size())
	stats := otel.Tally(held)
	recent := held[max(len(held)-20, 0):]

	var lines []string
	lines = append(lines, st.DebugHeaderStyle.Render("Stream Stats"))
	lines = append(lines, fmt.Sprintf("  Connects:   %d started, %d open, %d errors, %d peer closed, %d stopped",
		stats[otel.KindConnect], stats[otel.KindOpen], stats[otel.KindConnError],
		stats[otel.KindPeerClosed], stats[otel.KindDisconnect]))
	lines = append(lines, fmt.Sprintf("  Messages:   %d traced, %d undecodable",
		stats[otel.KindMsgReceived], stats[otel.KindDecodeDrop]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d paused, %d resumed, %d cleared, %d purged",
		stats[otel.KindPause], stats[otel.KindResume], stats[otel.KindClear], stats[otel.KindPurge]))
	lines = append(lines, fmt.Sprintf("  Journal:    %d / %d records", len(held), ring.Size()))
	lines = append(lines, "")

	lines = append(lines, st.DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-20s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Gen != 0 {
			line += fmt.Sprintf("  gen:%d", e.Gen)
		}
		if e.Count != 0 {
			line += fmt.Sprintf("  n=%d", e.Count)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 90
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return st.DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(st styles, width int) string {
	keys := st.StatusBarKey.Render("D") + st.StatusBarText.Render(":close")
	return st.StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
