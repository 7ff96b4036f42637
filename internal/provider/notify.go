package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shineum/mailticket/internal/email"
	"github.com/shineum/mailticket/internal/ticket"
)

// TicketAttachment is the file name of the JSON ticket attached to
// notifications.
const TicketAttachment = "ticket.json"

// Subject returns the notification subject line for t.
func Subject(t *ticket.Ticket) string {
	return fmt.Sprintf("[%s][%s] %s", t.Project.DisplayName(), t.Priority.DisplayName(), t.Summary)
}

// Text renders t as a plain-text report.
func Text(t *ticket.Ticket) string {
	var b strings.Builder
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-13s%s\n", name+":", value)
		}
	}

	field("Summary", t.Summary)
	field("Project", t.Project.DisplayName())
	field("Priority", t.Priority.DisplayName())
	field("Bug type", t.BugType.DisplayName())
	field("Status", string(t.Status))
	field("Received", t.ReceivedDate.String())
	field("Owner", t.TicketOwner)
	if t.ContributorName != nil {
		field("Contributor", *t.ContributorName)
	} else {
		field("Contributor", "(unassigned)")
	}
	field("Sender", t.Sender)
	field("Employee ID", t.Details.EmployeeID)
	field("Employee", t.Details.EmployeeName)
	field("Contact", t.Details.Contact)
	field("Message", t.MessageID)

	b.WriteString("\nImpact:\n" + t.Impact + "\n")
	b.WriteString("\n" + t.IssueDescription + "\n")
	return b.String()
}

// Notification renders t as an email from sender to recipients with the
// ticket attached as JSON.
func Notification(sender string, recipients []string, t *ticket.Ticket) (*email.Email, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return &email.Email{
		From:     sender,
		To:       recipients,
		Subject:  Subject(t),
		TextBody: Text(t),
		Attachments: []email.Attachment{{
			Filename:    TicketAttachment,
			ContentType: "application/json",
			Content:     data,
		}},
	}, nil
}
