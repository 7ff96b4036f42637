// Package ticket defines the support ticket data model produced by the
// extraction engine.
package ticket

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is the structured record derived from one raw email. It is built
// once per parse and never mutated by the engine afterwards.
type Ticket struct {
	Summary          string       `json:"summary"`
	Project          Project      `json:"project"`
	IssueDescription string       `json:"issueDescription"`
	ReceivedDate     Date         `json:"receivedDate"`
	Priority         Priority     `json:"priority"`
	BugType          BugType      `json:"bugType"`
	Status           Status       `json:"status"`
	Impact           string       `json:"impact"`
	TicketOwner      string       `json:"ticketOwner"`
	Contributor      *Contributor `json:"contributor"`
	ContributorName  *string      `json:"contributorName"`

	// Sender carries the address the ticket owner was derived from.
	Sender string `json:"sender,omitempty"`

	// Details holds optional sender details found in the body.
	Details Details `json:"details"`

	// MessageID identifies the source message when the caller knows it
	// (a file name or a Message-ID header). The engine never sets it.
	MessageID string `json:"messageId,omitempty"`
}

// Details are best-effort sender details scraped from the email text.
type Details struct {
	EmployeeID   string `json:"employeeId,omitempty"`
	EmployeeName string `json:"employeeName,omitempty"`
	Contact      string `json:"contact,omitempty"`
}

// Contributor is a person eligible for ticket assignment. Contributors are
// owned by an external registry; the engine only reads them.
type Contributor struct {
	ID     int64  `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email,omitempty" yaml:"email"`
	Active bool   `json:"active" yaml:"active"`
}

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO 8601 calendar date (yyyy-mm-dd).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats d as yyyy-mm-dd.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalText implements encoding.TextMarshaler. The zero Date marshals to
// an empty string.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
