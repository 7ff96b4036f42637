package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/shineum/mailticket/internal/app"
	"github.com/shineum/mailticket/internal/config"
	"github.com/shineum/mailticket/internal/intake"
)

// batchFlags are shared by parse and mbox.
type batchFlags struct {
	commonFlags
	publisher string
	format    string
	workers   int
}

func (b *batchFlags) flagSet(name, synopsis string) *pflag.FlagSet {
	fs := newFlagSet(name, synopsis)
	b.commonFlags.register(fs)
	fs.StringVarP(&b.publisher, "publisher", "p", "", "override publisher.name (stdout, ses, graph, s3)")
	fs.StringVarP(&b.format, "format", "f", "", "override publisher.format for stdout (json, text)")
	fs.IntVarP(&b.workers, "workers", "w", 0, "override intake.workers")
	return fs
}

// override applies the flag values on top of the configuration.
func (b *batchFlags) override(cfg *config.Config) {
	if b.publisher != "" {
		cfg.Publisher.Name = b.publisher
	}
	if b.format != "" {
		cfg.Publisher.Format = b.format
	}
	if b.workers > 0 {
		cfg.Intake.Workers = b.workers
	}
}

func runParse(ctx context.Context, args []string) error {
	var flags batchFlags
	fs := flags.flagSet("parse", "parse [flags] <file|dir|->...")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	cfg, err := flags.load(flags.override)
	if err != nil {
		return err
	}

	var msgs []intake.Message
	for _, path := range paths {
		found, err := readPath(path, cfg.Intake.Extensions)
		if err != nil {
			return err
		}
		msgs = append(msgs, found...)
	}
	return runBatch(ctx, cfg, msgs)
}

// readPath reads one parse argument: "-" is stdin, a directory contributes
// every file with a known extension, anything else is a single message.
func readPath(path string, exts []string) ([]intake.Message, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []intake.Message{{Raw: raw}}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return intake.ReadDir(path, exts)
	}
	m, err := intake.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []intake.Message{m}, nil
}

// runBatch publishes a ticket for every message and fails when any message
// did not make it.
func runBatch(ctx context.Context, cfg *config.Config, msgs []intake.Message) error {
	pub, err := app.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(cfg, pub)
	if err != nil {
		return err
	}

	gate, err := intake.NewProjectGate(cfg.Intake.AllowedProjects)
	if err != nil {
		return err
	}
	if gate != nil {
		slog.Info("limiting intake to allowed projects", "projects", gate.Projects())
	}

	_, stats := intake.NewBatch(pipeline, cfg.Intake.Workers).WithGate(gate).Run(ctx, msgs)
	slog.Info("batch complete",
		"messages", len(msgs),
		"published", stats.Published,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"publisher", pub.Name(),
	)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d messages failed", stats.Failed, len(msgs))
	}
	return nil
}
