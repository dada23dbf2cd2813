package main

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/abelbrown/wikiwatch/internal/config"
)

// journalPath returns the default journal location.
func journalPath() string {
	return config.JournalPath()
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// parseFlags parses args; -h is reported as pflag.ErrHelp.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	return fs.Parse(args)
}

// errOrNil hides pflag.ErrHelp, for which usage has already been printed.
func errOrNil(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

// truncate shortens a string to n runes, appending "..." if truncated.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n || n < 4 {
		return s
	}
	return string(runes[:n-3]) + "..."
}
