package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rewired-gh/everyday/internal/config"
	"github.com/rewired-gh/everyday/internal/logger"
	"github.com/rewired-gh/everyday/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// app carries what every command needs.
type app struct {
	cfg   *config.Config
	store *storage.Storage
	out   io.Writer
	now   func() time.Time
}

type command struct {
	usage string
	help  string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"add":     {"add NAME [-unit U] [-target 30d]", "Start tracking a new event", (*app).cmdAdd},
		"record":  {"record EVENT [-at TIME] [-note TEXT]", "Record an occurrence (now by default)", (*app).cmdRecord},
		"list":    {"list [-all] [-json]", "List events with their stats", (*app).cmdList},
		"show":    {"show EVENT [-n N] [-json]", "Show one event in detail", (*app).cmdShow},
		"due":     {"due [-k N]", "List overdue and due-soon events", (*app).cmdDue},
		"rename":  {"rename EVENT NAME", "Rename an event", (*app).cmdRename},
		"unit":    {"unit EVENT UNIT", "Set the display unit of an event", (*app).cmdUnit},
		"target":  {"target EVENT INTERVAL|none", "Set or clear the target interval", (*app).cmdTarget},
		"archive": {"archive EVENT", "Stop tracking an event but keep its history", (*app).cmdArchive},
		"delete":  {"delete EVENT | delete -entry ID", "Delete an event or a single entry", (*app).cmdDelete},
		"export":  {"export [-o FILE]", "Write a JSON backup", (*app).cmdExport},
		"import":  {"import FILE [-replace]", "Restore a JSON backup", (*app).cmdImport},
		"log":     {"log [-n N]", "Show the change log", (*app).cmdLog},
		"watch":   {"watch [-once]", "Scan for due events periodically and notify", (*app).cmdWatch},
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.New(
		cfg.Storage.MaxEvents,
		cfg.Storage.MaxEntriesPerEvent,
		cfg.Storage.DBPath,
	)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{cfg: cfg, store: store, out: os.Stdout, now: time.Now}
	runErr := cmd.run(a, ctx, args[1:])

	cancel()
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}

	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "everyday %s: %v\n", args[0], runErr)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: everyday [-config path] <command> [arguments]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-44s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}

// parseArgs parses fs allowing flags to follow positional arguments, as in
// `everyday add "Water plants" -target 3d`, and checks the positional count.
func parseArgs(fs *flag.FlagSet, args []string, minPos, maxPos int) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	if len(positional) < minPos || (maxPos >= 0 && len(positional) > maxPos) {
		return nil, fmt.Errorf("usage: everyday %s", commands[fs.Name()].usage)
	}
	return positional, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: everyday %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseWhen accepts an absolute time or a duration meaning "that long ago".
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return now, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (use RFC3339, YYYY-MM-DD[ HH:MM] or a duration like 2h)", s)
}
