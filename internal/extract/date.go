package extract

import (
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shineum/mailticket/internal/ticket"
)

// Clock supplies the current time for the date fallback.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// sentLabels are tried in order before the generic Date label.
var sentLabels = []struct {
	label string
	re    *regexp.Regexp
}{
	{"Sent", headerPattern("sent")},
	{"Sent On", headerPattern("sent on")},
	{"Sent Date", headerPattern("sent date")},
	{"ReceivedDate", headerPattern("receiveddate")},
	{"Received Date", headerPattern("received date")},
	{"Date Sent", headerPattern("date sent")},
	{"Date", headerPattern("date")},
}

// findSentToken returns the first sent-date token and the label it was
// found under.
func findSentToken(text string) (token, label string) {
	for _, l := range sentLabels {
		if v, ok := findHeader(text, l.re); ok {
			return v, l.label
		}
	}
	return "", ""
}

// dateLayouts is the parse cascade. Order matters: the day-first slash
// layout must be tried before the month-first one, and layouts with a time
// of day before their date-only prefixes.
var dateLayouts = []string{
	// Weekday, full month name, time.
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006 3:04:05 PM",
	"Monday, January 2, 2006 15:04",
	"Monday, January 2, 2006",
	"Monday, 2 January 2006 15:04",
	"Monday, 2 January 2006",

	// Full month name without weekday.
	"January 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"2 January 2006 15:04",
	"2 January 2006 3:04 PM",
	"2 January 2006",

	// Abbreviated month.
	"Mon, Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2-Jan-2006",

	// ISO.
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",

	// Slash dates, day first.
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 3:04 PM",

	// Slash dates, month first.
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",

	// RFC 2822 with optional weekday and zone.
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
}

// dateFragment finds a date-shaped substring inside a token that no layout
// accepted as a whole.
var dateFragment = regexp.MustCompile(`\d{1,2}\s+\w+\s+\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`)

// ParseDateToken parses a sent-date token with the layout cascade, falling
// back to net/mail's RFC 5322 parser and then to a date fragment found
// inside the token. The fragment is only retried when it differs from the
// token, so parsing always terminates.
func ParseDateToken(token string) (ticket.Date, bool) {
	return parseDateToken(token, true)
}

func parseDateToken(token string, retry bool) (ticket.Date, bool) {
	token = strings.Join(strings.Fields(token), " ")
	if token == "" {
		return ticket.Date{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return ticket.DateOf(t), true
		}
	}
	if t, err := mail.ParseDate(token); err == nil {
		return ticket.DateOf(t), true
	}

	if !retry {
		return ticket.Date{}, false
	}
	fragment := dateFragment.FindString(token)
	if fragment == "" || fragment == token {
		return ticket.Date{}, false
	}
	return parseDateToken(fragment, false)
}

// DateResolver turns raw email text into the date the email was sent. It
// never fails: when nothing parses it returns today's date according to its
// clock. That fallback hides missing dates and is kept for compatibility
// with existing ticket data.
type DateResolver struct {
	clock Clock
	diag  diag
}

// NewDateResolver creates a DateResolver. A nil clock means SystemClock and
// a nil logger means slog.Default().
func NewDateResolver(clock Clock, logger *slog.Logger, verbose bool) *DateResolver {
	if clock == nil {
		clock = SystemClock
	}
	return &DateResolver{clock: clock, diag: newDiag(logger, verbose)}
}

// Resolve finds the sent-date token in raw and parses it.
func (r *DateResolver) Resolve(raw string) ticket.Date {
	token, label := findSentToken(normalize(raw))
	return r.resolve(token, label)
}

// ResolveToken parses an already extracted token.
func (r *DateResolver) ResolveToken(token string) ticket.Date {
	return r.resolve(token, "")
}

func (r *DateResolver) resolve(token, label string) ticket.Date {
	if token != "" {
		if d, ok := ParseDateToken(token); ok {
			r.diag.log("resolved sent date", "label", label, "token", token, "date", d.String())
			return d
		}
	}
	today := ticket.DateOf(r.clock.Now())
	r.diag.log("sent date unresolved, using today", "label", label, "token", token, "date", today.String())
	return today
}
