package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// eventRecord mirrors otel.Event for JSON decoding.
// We decode from JSONL rather than importing otel to keep this
// subcommand usable even if the journal schema evolves.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	Gen       uint64         `json:"gen"`
	URL       string         `json:"url"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects journal records.
type eventFilter struct {
	kind    string // prefix, e.g. "conn"
	level   string
	comp    string
	session string
	gen     uint64
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.session != "" && ev.SessionID != f.session {
		return false
	}
	if f.gen != 0 && ev.Gen != f.gen {
		return false
	}
	return true
}

// formatEvent renders one record as a single human line.
func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-9s] %-20s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Gen != 0 {
		parts = append(parts, fmt.Sprintf("gen=%d", ev.Gen))
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.URL != "" {
		parts = append(parts, "url="+ev.URL)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

func runEvents(args []string) error {
	fs := newFlagSet("events")
	tail := fs.IntP("tail", "n", 50, "Number of recent lines to show")
	follow := fs.BoolP("follow", "f", false, "Follow mode (like tail -f)")
	var filter eventFilter
	fs.StringVar(&filter.kind, "kind", "", "Filter by event kind prefix (e.g. 'conn')")
	fs.StringVar(&filter.level, "level", "", "Minimum level: debug, info, warn, error")
	fs.StringVar(&filter.comp, "comp", "", "Filter by component name")
	fs.StringVar(&filter.session, "session", "", "Filter by session ID")
	fs.Uint64Var(&filter.gen, "gen", 0, "Filter by connection generation")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	path := fs.String("file", journalPath(), "Journal file")
	if err := parseFlags(fs, args); err != nil {
		return errOrNil(err)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Journal not found at %s\n", *path)
		fmt.Fprintf(os.Stderr, "  Run wikiwatch first to generate events.\n")
		return err
	}
	defer f.Close()

	show := func(l parsedLine) {
		if *rawJSON {
			fmt.Println(string(l.raw))
			return
		}
		fmt.Println(formatEvent(l.ev))
	}

	// Read all lines, keep last N matching
	reader := bufio.NewReader(f)
	for _, l := range readTailLines(reader, *tail, filter.match) {
		show(l)
	}
	if !*follow {
		return nil
	}

	// Follow mode: poll for new lines
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			show(parsedLine{ev: ev, raw: line})
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r to EOF and returns the last n lines matching the
// filter. Unparseable lines are skipped.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	var ring []parsedLine
	eachRecord(r, func(ev eventRecord, raw []byte) {
		if n <= 0 || !match(ev) {
			return
		}
		// Make a copy of raw since the scanner reuses the buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
			return
		}
		// Shift left
		copy(ring, ring[1:])
		ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
	})
	return ring
}

// eachRecord calls fn for every decodable JSONL line in r.
func eachRecord(r io.Reader, fn func(ev eventRecord, raw []byte)) {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some records carry big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		fn(ev, raw)
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
