// Package stdout implements a Publisher that prints tickets to standard
// output.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

const separator = "========================================\n"

// Publisher prints tickets as indented JSON or as a readable report.
type Publisher struct {
	mu     sync.Mutex
	writer io.Writer
	format string
}

// New creates a stdout Publisher writing format to os.Stdout.
func New(format string) *Publisher {
	return NewWithWriter(os.Stdout, format)
}

// NewWithWriter creates a Publisher that writes to w.
func NewWithWriter(w io.Writer, format string) *Publisher {
	if format != FormatText {
		format = FormatJSON
	}
	return &Publisher{writer: w, format: format}
}

// Publish writes the ticket. Writes are serialised so concurrent publishers
// never interleave output.
func (p *Publisher) Publish(_ context.Context, t *ticket.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatText {
		if _, err := fmt.Fprint(p.writer, separator+provider.Text(t)+separator); err != nil {
			return fmt.Errorf("failed to write ticket: %w", err)
		}
		return nil
	}

	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to write ticket: %w", err)
	}
	return nil
}

// Name returns the publisher name.
func (p *Publisher) Name() string {
	return "stdout"
}
