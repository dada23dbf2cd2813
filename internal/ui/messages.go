// Package ui provides the Bubble Tea TUI for wikiwatch.
package ui

// stateChanged is sent when the watcher signals a buffer or connection
// change.
type stateChanged struct{}

// ConnectDone is sent when a Connect issued from the UI returns.
type ConnectDone struct {
	Err error
}
