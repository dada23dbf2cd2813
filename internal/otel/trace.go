package otel

import (
	"os"
	"strconv"
	"sync/atomic"
)

// tracing gates the per-message msg.received records. The stream goroutine
// reads it on every message.
var tracing atomic.Bool

func init() {
	tracing.Store(traceFromEnv(os.Getenv("WIKIWATCH_TRACE")))
}

// traceFromEnv reads a WIKIWATCH_TRACE value. "0" and "false" turn tracing
// off; any other non-empty value turns it on.
func traceFromEnv(v string) bool {
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	return on || err != nil
}

// TraceEnabled reports whether each received message is journaled.
func TraceEnabled() bool {
	return tracing.Load()
}

// SetTraceEnabled overrides the environment (the --trace flag) and returns
// the previous setting.
func SetTraceEnabled(on bool) (was bool) {
	return tracing.Swap(on)
}
