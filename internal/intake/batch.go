package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/shineum/mailticket/internal/ticket"
)

// Result is the outcome for one message of a batch.
type Result struct {
	ID      string
	Ticket  *ticket.Ticket
	Err     error
	Skipped bool
}

// Stats counts batch outcomes.
type Stats struct {
	Published int
	Failed    int
	Skipped   int
}

// Batch extracts a set of messages on a bounded worker pool and publishes
// the tickets in input order.
type Batch struct {
	pipeline *Pipeline
	workers  int
	gate     *ProjectGate
}

// NewBatch creates a Batch running at most workers extractions at once.
func NewBatch(pipeline *Pipeline, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{pipeline: pipeline, workers: workers}
}

// WithGate makes Run skip messages that g does not allow.
func (b *Batch) WithGate(g *ProjectGate) *Batch {
	b.gate = g
	return b
}

// Run processes msgs. A message whose ID already appeared earlier in msgs
// is skipped, and so is one the gate rejects after extraction. Failures are
// logged and recorded per message; the batch always runs to completion
// unless ctx is cancelled.
func (b *Batch) Run(ctx context.Context, msgs []Message) ([]Result, Stats) {
	results := make([]Result, len(msgs))
	seen := make(map[string]bool, len(msgs))

	var todo []int
	for i, m := range msgs {
		results[i].ID = m.ID
		if m.ID != "" && seen[m.ID] {
			results[i].Skipped = true
			slog.Info("skipping duplicate message", "message", m.ID)
			continue
		}
		seen[m.ID] = true
		todo = append(todo, i)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(b.workers, len(todo)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Ticket, results[i].Err = b.pipeline.Extract(msgs[i])
				if results[i].Err == nil && b.gate != nil {
					text, _ := Text(msgs[i].Raw)
					results[i].Skipped = !b.gate.Allows(results[i].Ticket, text)
				}
			}
		}()
	}

feed:
	for _, i := range todo {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var stats Stats
	for _, i := range todo {
		r := &results[i]
		if r.Skipped {
			slog.Info("skipping message without an allowed project", "message", r.ID, "project", string(r.Ticket.Project))
			continue
		}
		if r.Ticket == nil && r.Err == nil {
			r.Err = ctx.Err()
		}
		if r.Err == nil {
			r.Err = b.pipeline.Publish(ctx, r.Ticket)
		}
		if r.Err != nil {
			stats.Failed++
			slog.Error("failed to process message", "message", r.ID, "error", r.Err)
			continue
		}
		stats.Published++
	}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		}
	}
	return results, stats
}

// DefaultExtensions are the file types ReadDir picks up.
var DefaultExtensions = []string{".eml", ".txt", ".msg"}

// ReadDir reads every regular file in dir whose extension is in exts, in
// file name order. Each message is identified by its file name.
func ReadDir(dir string, exts []string) ([]Message, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var msgs []Message
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(exts, ext) {
			continue
		}
		m, err := ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ReadFile reads one message file, identified by its base name.
func ReadFile(path string) (Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Message{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Message{ID: filepath.Base(path), Raw: raw}, nil
}
