// Command ww is the wikiwatch maintenance CLI.
//
// Usage:
//
//	ww                      Show help
//	ww events               JSONL journal viewer
//	ww stats                Connection and buffer statistics from the journal
//	ww config               Print the effective configuration
//	ww config --init        Write the default config file
package main

import (
	"fmt"
	"os"
)

const usage = `ww: wikiwatch maintenance CLI

Usage:
  ww <command> [flags]

Commands:
  events      JSONL journal viewer
  stats       Connection and buffer statistics from the journal
  config      Print the effective configuration, or write the default one

Environment:
  WIKIWATCH_URL        stream endpoint
  WIKIWATCH_RETENTION  retention seconds
  WIKIWATCH_CAPACITY   maximum visible events

Run 'ww <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	var err error
	switch cmd {
	case "events":
		err = runEvents(os.Args[1:])
	case "stats":
		err = runStats(os.Args[1:])
	case "config":
		err = runConfig(os.Args[1:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "ww: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
