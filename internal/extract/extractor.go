// Package extract turns free-text support emails into structured tickets.
//
// The engine is purely computational: an Extractor holds only immutable
// configuration and may be shared by any number of goroutines. Each Parse
// call reads a caller-supplied snapshot of contributors and returns a new
// ticket.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shineum/mailticket/internal/ticket"
)

// Config holds the tunables of the engine.
type Config struct {
	// Classifier thresholds; a match must score strictly above them.
	ProjectThreshold  float64
	PriorityThreshold float64
	BugTypeThreshold  float64

	// VerboseLogging logs every extraction decision at Info instead of Debug.
	VerboseLogging bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ProjectThreshold:  0.75,
		PriorityThreshold: 0.80,
		BugTypeThreshold:  0.80,
	}
}

// Extractor assembles tickets from raw email text.
type Extractor struct {
	cfg        Config
	dict       *Dictionary
	clock      Clock
	logger     *slog.Logger
	diag       diag
	dates      *DateResolver
	projects   *Classifier[ticket.Project]
	priorities *Classifier[ticket.Priority]
	bugTypes   *Classifier[ticket.BugType]
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithDictionary replaces the embedded variant dictionary.
func WithDictionary(d *Dictionary) Option {
	return func(e *Extractor) { e.dict = d }
}

// WithClock sets the clock used for the received-date fallback.
func WithClock(c Clock) Option {
	return func(e *Extractor) { e.clock = c }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor. It fails when a threshold is outside (0, 1].
func New(cfg Config, opts ...Option) (*Extractor, error) {
	e := &Extractor{cfg: cfg, clock: SystemClock, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.dict == nil {
		e.dict = DefaultDictionary()
	}
	e.diag = newDiag(e.logger, cfg.VerboseLogging)
	e.dates = NewDateResolver(e.clock, e.logger, cfg.VerboseLogging)

	var err error
	if e.projects, err = newProjectClassifier(e.dict, cfg.ProjectThreshold, e.diag); err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	if e.priorities, err = newPriorityClassifier(e.dict, cfg.PriorityThreshold, e.diag); err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	if e.bugTypes, err = newBugTypeClassifier(e.dict, cfg.BugTypeThreshold, e.diag); err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	return e, nil
}

// Dictionary returns the variant dictionary in use.
func (e *Extractor) Dictionary() *Dictionary {
	return e.dict
}

// Parse builds a ticket from raw email text. contributors is a read-only
// snapshot of the contributor registry; only active contributors are
// considered. Missing headers, dates and matches resolve to defaults, so the
// only failure is a *ParseError for empty input or an internal fault.
func (e *Extractor) Parse(raw string, contributors []ticket.Contributor) (t *ticket.Ticket, err error) {
	if strings.TrimSpace(raw) == "" {
		return nil, NewParseError("email is empty", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ticket assembly failed", "panic", r)
			t, err = nil, NewParseError(fmt.Sprint(r), nil)
		}
	}()
	return e.assemble(raw, contributors), nil
}

func (e *Extractor) assemble(raw string, contributors []ticket.Contributor) *ticket.Ticket {
	h := ExtractHeaders(raw)
	body := ExtractBody(raw)

	subject := ""
	if h.Subject != NoSubject {
		subject = CleanSubject(h.Subject)
	}
	e.diag.log("extracted headers", "subject", h.Subject, "from", h.From, "to", h.To, "body_length", len(body))

	t := &ticket.Ticket{
		Summary:          Summary(subject, body),
		Project:          e.projects.Classify(subject, body),
		IssueDescription: Description(subject, body),
		ReceivedDate:     e.dates.resolve(h.SentToken, h.SentLabel),
		Priority:         e.priorities.Classify(subject, body),
		BugType:          e.bugTypes.Classify(subject, body),
		Status:           ticket.StatusOpened,
		Impact:           Impact(body),
		TicketOwner:      TicketOwner(h.From),
		Sender:           h.From,
		Details:          ExtractDetails(raw, h.From),
	}
	if c := resolveContributor(h.To, contributors, e.diag); c != nil {
		t.Contributor = c
		t.ContributorName = &c.Name
	}
	return t
}

// ExplainProject reports how subject and body classify to a project.
func (e *Extractor) ExplainProject(subject, body string) Match[ticket.Project] {
	return e.projects.Explain(subject, body)
}

// ExplainPriority reports how subject and body classify to a priority.
func (e *Extractor) ExplainPriority(subject, body string) Match[ticket.Priority] {
	return e.priorities.Explain(subject, body)
}

// ExplainBugType reports how subject and body classify to a bug type.
func (e *Extractor) ExplainBugType(subject, body string) Match[ticket.BugType] {
	return e.bugTypes.Explain(subject, body)
}
