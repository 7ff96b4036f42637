package parser

import (
	"log/slog"
	"strings"

	"github.com/shineum/mailticket/internal/email"
)

// Flatten renders msg the way a mail client displays it: a From, Sent, To,
// Cc and Subject header block, a blank line, then the plain-text body.
// Empty headers are left out.
func Flatten(msg *email.Email) string {
	var b strings.Builder
	writeHeader(&b, "From", msg.From)
	writeHeader(&b, "Sent", msg.Date)
	writeHeader(&b, "To", strings.Join(msg.To, "; "))
	writeHeader(&b, "Cc", strings.Join(msg.Cc, "; "))
	writeHeader(&b, "Subject", msg.Subject)
	b.WriteString("\n")
	b.WriteString(Body(msg))
	return b.String()
}

// Body returns the plain-text body of msg, converting the HTML body when the
// message has no usable text part.
func Body(msg *email.Email) string {
	if text := strings.TrimSpace(strings.ReplaceAll(msg.TextBody, "\r\n", "\n")); text != "" {
		return text
	}
	if strings.TrimSpace(msg.HTMLBody) == "" {
		return ""
	}
	text, err := HTMLToText(msg.HTMLBody)
	if err != nil {
		slog.Warn("failed to convert HTML body", "message_id", msg.MessageID, "error", err)
		return ""
	}
	return text
}

func writeHeader(b *strings.Builder, name, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	b.WriteString(name + ": " + value + "\n")
}
