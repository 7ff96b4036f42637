package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shineum/mailticket/internal/intake"
)

func runMbox(ctx context.Context, args []string) error {
	var flags batchFlags
	fs := flags.flagSet("mbox", "mbox [flags] <archive>...")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("mbox: at least one archive is required")
	}

	cfg, err := flags.load(flags.override)
	if err != nil {
		return err
	}

	var msgs []intake.Message
	for _, path := range paths {
		found, err := readMbox(path)
		if err != nil {
			return err
		}
		msgs = append(msgs, found...)
	}
	return runBatch(ctx, cfg, msgs)
}

func readMbox(path string) ([]intake.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	msgs, err := intake.ReadMbox(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msgs, nil
}
