// wikiwatch is a terminal viewer for a live stream of wiki recent changes.
//
// It subscribes to a filtered event stream (SSE or WebSocket), keeps the
// most recent events in a bounded, time-limited buffer and renders them as
// a table. The stream is started and stopped from the UI; nothing
// reconnects on its own.
//
// Settings come from, in increasing priority: built-in defaults,
// ~/.wikiwatch/config.json (or --config), WIKIWATCH_* environment
// variables, and flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/wikiwatch/internal/config"
	"github.com/abelbrown/wikiwatch/internal/logging"
	"github.com/abelbrown/wikiwatch/internal/otel"
	"github.com/abelbrown/wikiwatch/internal/ui"
	"github.com/abelbrown/wikiwatch/internal/watch"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wikiwatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		url        string
		retention  int
		capacity   int
		wiki       string
		kind       string
		namespace  int
		bot        string
		minDelta   int
		logLevel   string
		theme      string
		noJournal  bool
		connect    bool
		trace      bool
		showHelp   bool
	)

	fs := pflag.NewFlagSet("wikiwatch", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "config file (default ~/.wikiwatch/config.json; .yaml also accepted)")
	fs.StringVar(&url, "url", "", "stream endpoint (http(s):// for SSE, ws(s):// for WebSocket)")
	fs.IntVar(&retention, "retention", 0, "seconds an event stays visible; 0 keeps events until evicted")
	fs.IntVar(&capacity, "capacity", 0, "maximum number of visible events")
	fs.StringVar(&wiki, "wiki", "", "wiki filter, e.g. enwiki (empty string for all)")
	fs.StringVar(&kind, "type", "", "change type filter: edit, new, log, categorize")
	fs.IntVar(&namespace, "namespace", 0, "namespace filter; negative for all")
	fs.StringVar(&bot, "bot", "", "bot filter: true, false, or empty for any")
	fs.IntVar(&minDelta, "min-delta", 0, "minimum absolute byte change")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&theme, "theme", "", "color theme: dark or light")
	fs.BoolVar(&noJournal, "no-journal", false, "do not write the event journal")
	fs.BoolVar(&connect, "connect", false, "start the stream immediately")
	fs.BoolVar(&trace, "trace", false, "journal every received message")
	fs.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(fs)
			return nil
		}
		return err
	}
	if showHelp {
		printHelp(fs)
		return nil
	}
	if args := fs.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Flags win over file and environment, but only when given.
	if fs.Changed("url") {
		cfg.Stream.URL = url
	}
	if fs.Changed("retention") {
		cfg.Stream.RetentionSeconds = retention
	}
	if fs.Changed("capacity") {
		cfg.Stream.Capacity = capacity
	}
	if fs.Changed("wiki") {
		cfg.Filters.Wiki = wiki
	}
	if fs.Changed("type") {
		cfg.Filters.Type = kind
	}
	if fs.Changed("namespace") {
		if namespace < 0 {
			cfg.Filters.Namespace = nil
		} else {
			ns := namespace
			cfg.Filters.Namespace = &ns
		}
	}
	if fs.Changed("bot") {
		cfg.Filters.Bot = bot
	}
	if fs.Changed("min-delta") {
		cfg.Filters.MinDelta = minDelta
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if fs.Changed("theme") {
		cfg.UI.Theme = theme
	}
	if noJournal {
		cfg.Log.Journal = false
	}
	if connect {
		cfg.Stream.AutoConnect = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	subURL, err := cfg.SubscriptionURL()
	if err != nil {
		return err
	}
	timeout, err := cfg.ConnectTimeout()
	if err != nil {
		return err
	}

	if err := logging.Init(config.DataDir(), cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	otel.SetTraceEnabled(trace || otel.TraceEnabled())

	journal := otel.NewNullLogger()
	var ring *otel.RingBuffer
	if cfg.Log.Journal {
		j, err := otel.OpenFile(config.JournalPath())
		if err != nil {
			logging.Warn("Journal disabled", "path", config.JournalPath(), "error", err)
		} else {
			journal = j
			ring = otel.NewRingBuffer(otel.DefaultRingSize)
			journal.SetRingBuffer(ring)
		}
	}
	defer journal.Close()

	start := time.Now()
	journal.Emit(otel.Event{
		Kind: otel.KindStartup,
		Comp: "main",
		URL:  subURL,
		Extra: map[string]any{
			"capacity":  cfg.Stream.Capacity,
			"retention": cfg.Stream.RetentionSeconds,
		},
	})
	logging.Info("wikiwatch starting", "url", subURL, "capacity", cfg.Stream.Capacity, "retention", cfg.Stream.RetentionSeconds)

	w, err := watch.New(watch.Options{
		URL:              subURL,
		Capacity:         cfg.Stream.Capacity,
		RetentionSeconds: cfg.Stream.RetentionSeconds,
		ConnectTimeout:   timeout,
		Journal:          journal,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w.Start(ctx)
	if cfg.Stream.AutoConnect {
		if err := w.Connect(); err != nil {
			logging.Warn("Auto-connect failed", "error", err)
		}
	}

	app := ui.NewApp(ui.AppConfig{
		Watcher:     w,
		Ring:        ring,
		Filters:     cfg.Filters.Summary(),
		ShowComment: cfg.UI.ShowComment,
		Theme:       cfg.UI.Theme,
		Done:        ctx.Done(),
	})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			// Interrupted by a signal.
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		w.Close()
		return nil
	})

	err = g.Wait()
	journal.Emit(otel.Event{Kind: otel.KindShutdown, Comp: "main", Dur: time.Since(start)})
	if err != nil {
		logging.Error("Application error", "error", err)
		return err
	}
	logging.Info("wikiwatch exiting normally")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHelp(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wikiwatch: live wiki recent changes in the terminal.

Usage:
  wikiwatch [flags]

Keys:
  s  start stream    x  stop stream    space/p  pause/resume
  c  clear           t  light/dark     D        debug journal
  ?  help            q  quit

Flags:
%s
Environment:
  WIKIWATCH_URL         stream endpoint
  WIKIWATCH_RETENTION   retention seconds
  WIKIWATCH_CAPACITY    maximum visible events
  WIKIWATCH_TRACE       journal every received message unless 0 or false
`, fs.FlagUsages())
}
