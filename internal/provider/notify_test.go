package provider

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shineum/mailticket/internal/ticket"
)

func sampleTicket() *ticket.Ticket {
	name := "Arun Kumar"
	return &ticket.Ticket{
		Summary:          "Urgnt isue with CK Alumi portal",
		Project:          ticket.ProjectCKAlumni,
		IssueDescription: "Subject: Urgnt isue with CK Alumi portal\n\nDescription:\nThe page is blank.",
		ReceivedDate:     ticket.Date{Year: 2025, Month: time.July, Day: 11},
		Priority:         ticket.PriorityHigh,
		BugType:          ticket.BugTypeBug,
		Status:           ticket.StatusOpened,
		Impact:           "The page is blank.",
		TicketOwner:      "priya raman",
		Contributor:      &ticket.Contributor{ID: 1, Name: name, Email: "arun.kumar@hepl.com", Active: true},
		ContributorName:  &name,
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	if got := Subject(sampleTicket()); got != "[CK Alumni][High] Urgnt isue with CK Alumi portal" {
		t.Errorf("got %q", got)
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	tk := sampleTicket()
	got := Text(tk)
	for _, want := range []string{
		"Project:     CK Alumni\n",
		"Priority:    High\n",
		"Received:    2025-07-11\n",
		"Contributor: Arun Kumar\n",
		"\nImpact:\nThe page is blank.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("text does not contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Employee") {
		t.Error("text should leave out empty details")
	}

	tk.ContributorName = nil
	if !strings.Contains(Text(tk), "Contributor: (unassigned)") {
		t.Error("unassigned ticket not marked")
	}
}

func TestNotification(t *testing.T) {
	t.Parallel()

	msg, err := Notification("tickets@hepl.com", []string{"l3@hepl.com"}, sampleTicket())
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	if msg.From != "tickets@hepl.com" || len(msg.To) != 1 {
		t.Errorf("addresses: got %q -> %v", msg.From, msg.To)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != TicketAttachment {
		t.Fatalf("Attachments: got %+v", msg.Attachments)
	}

	var back ticket.Ticket
	if err := json.Unmarshal(msg.Attachments[0].Content, &back); err != nil {
		t.Fatalf("attachment is not ticket JSON: %v", err)
	}
	if back.Project != ticket.ProjectCKAlumni || back.ReceivedDate.String() != "2025-07-11" {
		t.Errorf("attachment ticket: got %+v", back)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		if got := Backoff(time.Second, attempt); got != want {
			t.Errorf("Backoff(%d): got %v, want %v", attempt, got, want)
		}
	}
}

func TestSleep_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Error("expected context error")
	}
}
