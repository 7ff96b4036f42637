// Package provider defines the interface for ticket publishing backends and
// the notification format they share.
package provider

import (
	"context"

	"github.com/shineum/mailticket/internal/ticket"
)

// Publisher delivers an assembled ticket to a downstream system (a terminal,
// a support mailbox, an archive bucket).
type Publisher interface {
	// Publish delivers the ticket. It returns an error if delivery fails.
	Publish(ctx context.Context, t *ticket.Ticket) error

	// Name returns the human-readable name of this publisher.
	Name() string
}
