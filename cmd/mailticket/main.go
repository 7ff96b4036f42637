// Package main is the mailticket command: it turns support emails into
// tickets from files, mbox archives or an SMTP listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/shineum/mailticket/internal/config"
)

const usage = `Usage: mailticket <command> [flags]

Commands:
  parse   extract tickets from .eml/.txt/.msg files, directories or stdin
  mbox    extract tickets from mbox archives
  serve   accept messages over SMTP and publish a ticket for each
  match   show fuzzy match scores for a term against some text
  dict    list and check the variant dictionary

Run "mailticket <command> --help" for the flags of a command.
`

// command runs one subcommand with its arguments.
type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"parse": runParse,
	"mbox":  runMbox,
	"serve": runServe,
	"match": runMatch,
	"dict":  runDict,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "mailticket: unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("command failed", "command", name, "error", err)
		os.Exit(1)
	}
}

// commonFlags are shared by the commands that load configuration.
type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configPath, "config", "c", "", "path to YAML configuration file (optional)")
	fs.StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// load reads the configuration, applies override, installs the logger and
// validates the result.
func (c *commonFlags) load(override func(cfg *config.Config)) (*config.Config, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	setupLogger(os.Stderr, cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// parseLevel maps a configured level name onto a slog.Level. Unknown names
// mean info.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogger installs a JSON slog handler on w as the default logger.
// Logs go to stderr so stdout stays free for published tickets.
func setupLogger(w io.Writer, level string) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

// newFlagSet creates a subcommand flag set whose usage prints a one-line
// synopsis above the flag defaults.
func newFlagSet(name, synopsis string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mailticket %s\n\nFlags:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs
}
