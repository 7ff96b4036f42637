// Package intake feeds raw messages from files, mbox archives, SMTP and S3
// through the extraction engine and hands the tickets to a publisher.
package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/parser"
	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

// Message is one raw message awaiting extraction.
type Message struct {
	// ID names the message within a run: a file name, a Message-ID or an
	// object key. Empty means unknown.
	ID  string
	Raw []byte
}

// Contributors supplies the contributor snapshot each parse reads.
type Contributors interface {
	Snapshot() []ticket.Contributor
}

// Handler processes one message end to end.
type Handler interface {
	Handle(ctx context.Context, m Message) (*ticket.Ticket, error)
}

// Pipeline turns raw messages into published tickets.
type Pipeline struct {
	extractor    *extract.Extractor
	contributors Contributors
	publisher    provider.Publisher
}

// NewPipeline creates a Pipeline. A nil publisher makes Handle extract
// without publishing.
func NewPipeline(extractor *extract.Extractor, contributors Contributors, publisher provider.Publisher) *Pipeline {
	return &Pipeline{
		extractor:    extractor,
		contributors: contributors,
		publisher:    publisher,
	}
}

// Text returns the plain text the engine reads for raw, plus the message's
// Message-ID header when it has one. Stored RFC 5322 messages are decoded
// and flattened; anything else, such as text pasted out of a mail client,
// is only converted to UTF-8.
func Text(raw []byte) (text, messageID string) {
	if parser.LooksLikeMessage(raw) {
		msg, err := parser.Parse(raw)
		if err == nil {
			return parser.Flatten(msg), msg.MessageID
		}
		slog.Warn("failed to decode message, reading it as text", "error", err)
	}
	return parser.DecodeText(raw, "", "text/plain"), ""
}

// Extract builds the ticket for m without publishing it.
func (p *Pipeline) Extract(m Message) (*ticket.Ticket, error) {
	text, messageID := Text(m.Raw)

	var contributors []ticket.Contributor
	if p.contributors != nil {
		contributors = p.contributors.Snapshot()
	}

	t, err := p.extractor.Parse(text, contributors)
	if err != nil {
		return nil, err
	}

	t.MessageID = m.ID
	if t.MessageID == "" {
		t.MessageID = messageID
	}
	return t, nil
}

// Publish hands t to the publisher.
func (p *Pipeline) Publish(ctx context.Context, t *ticket.Ticket) error {
	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.Publish(ctx, t); err != nil {
		return fmt.Errorf("%s: %w", p.publisher.Name(), err)
	}
	return nil
}

// Handle extracts and publishes one message.
func (p *Pipeline) Handle(ctx context.Context, m Message) (*ticket.Ticket, error) {
	t, err := p.Extract(m)
	if err != nil {
		return nil, err
	}

	slog.Info("ticket extracted",
		"message", t.MessageID,
		"project", t.Project,
		"priority", t.Priority,
		"bug_type", t.BugType,
		"owner", t.TicketOwner,
	)

	if err := p.Publish(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}
