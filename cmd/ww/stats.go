package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// journalStats summarizes a journal.
type journalStats struct {
	Records  int
	Sessions int
	First    time.Time
	Last     time.Time

	Connects    int
	Opens       int
	ConnErrors  int
	PeerClosed  int
	Disconnects int

	Messages     int // only with tracing on
	DecodeDrops  int
	Purged       int
	PurgeTicks   int
	Pauses       int
	Clears       int
	LongestRunMs float64

	Errors map[string]int // error text -> occurrences
}

// summarize reads a whole journal. Purge and decode-drop records carry a
// batch size in Count; the other kinds count one per record.
func summarize(r io.Reader) journalStats {
	s := journalStats{Errors: map[string]int{}}
	eachRecord(r, func(ev eventRecord, _ []byte) {
		s.Records++
		if s.First.IsZero() || ev.Time.Before(s.First) {
			s.First = ev.Time
		}
		if ev.Time.After(s.Last) {
			s.Last = ev.Time
		}
		if ev.Err != "" {
			s.Errors[ev.Err]++
		}

		switch ev.Kind {
		case "sys.startup":
			s.Sessions++
		case "sys.shutdown":
			if ev.DurMs > s.LongestRunMs {
				s.LongestRunMs = ev.DurMs
			}
		case "conn.connect":
			s.Connects++
		case "conn.open":
			s.Opens++
		case "conn.error":
			s.ConnErrors++
		case "conn.closed":
			s.PeerClosed++
		case "conn.disconnect":
			s.Disconnects++
		case "stream.message":
			s.Messages++
		case "stream.decode_drop":
			s.DecodeDrops += max(ev.Count, 1)
		case "buffer.purge":
			s.PurgeTicks++
			s.Purged += max(ev.Count, 1)
		case "buffer.pause":
			s.Pauses++
		case "buffer.clear":
			s.Clears++
		}
	})
	return s
}

// topErrors returns up to n error strings, most frequent first.
func (s journalStats) topErrors(n int) []string {
	errs := make([]string, 0, len(s.Errors))
	for e := range s.Errors {
		errs = append(errs, e)
	}
	sort.Slice(errs, func(i, j int) bool {
		if s.Errors[errs[i]] != s.Errors[errs[j]] {
			return s.Errors[errs[i]] > s.Errors[errs[j]]
		}
		return errs[i] < errs[j]
	})
	if len(errs) > n {
		errs = errs[:n]
	}
	return errs
}

func runStats(args []string) error {
	fs := newFlagSet("stats")
	path := fs.String("file", journalPath(), "Journal file")
	top := fs.Int("errors", 5, "Number of distinct errors to list")
	if err := parseFlags(fs, args); err != nil {
		return errOrNil(err)
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := summarize(f)
	if s.Records == 0 {
		fmt.Println("Journal is empty.")
		return nil
	}

	fmt.Printf("Records:               %d\n", s.Records)
	fmt.Printf("Sessions:              %d\n", s.Sessions)
	fmt.Printf("Span:                  %s .. %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
	if s.LongestRunMs > 0 {
		fmt.Printf("Longest session:       %s\n", time.Duration(s.LongestRunMs*float64(time.Millisecond)).Round(time.Second))
	}

	fmt.Println("\nConnections:")
	fmt.Printf("  Started:             %d\n", s.Connects)
	fmt.Printf("  Opened:              %d\n", s.Opens)
	fmt.Printf("  Errors:              %d\n", s.ConnErrors)
	fmt.Printf("  Closed by server:    %d\n", s.PeerClosed)
	fmt.Printf("  Stopped by user:     %d\n", s.Disconnects)

	fmt.Println("\nBuffer:")
	fmt.Printf("  Purged:              %d (%d ticks)\n", s.Purged, s.PurgeTicks)
	fmt.Printf("  Undecodable:         %d\n", s.DecodeDrops)
	fmt.Printf("  Pauses:              %d\n", s.Pauses)
	fmt.Printf("  Clears:              %d\n", s.Clears)
	if s.Messages > 0 {
		fmt.Printf("  Traced messages:     %d\n", s.Messages)
	}

	if errs := s.topErrors(*top); len(errs) > 0 {
		fmt.Printf("\nErrors (%d distinct):\n", len(s.Errors))
		for _, e := range errs {
			fmt.Printf("  %4d  %s\n", s.Errors[e], truncate(e, 70))
		}
	}
	return nil
}
