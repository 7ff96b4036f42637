package extract

import (
	"strings"
	"unicode"
)

// Field limits, ellipsis included.
const (
	maxSummary     = 100
	maxDescription = 1900
	maxImpact      = 500
)

// Placeholder values for fields that could not be derived.
const (
	DefaultSummary     = "Ticket from Email"
	NoDescription      = "No description available"
	NoImpact           = "No impact information available"
	UnknownTicketOwner = "Unknown"
)

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// Summary returns the ticket summary: the subject, else the first line of
// the body, else DefaultSummary.
func Summary(subject, body string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return truncate(s, maxSummary)
	}
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, maxSummary)
		}
	}
	return DefaultSummary
}

// Description labels the subject and body for the ticket's issue
// description.
func Description(subject, body string) string {
	var b strings.Builder
	if s := strings.TrimSpace(subject); s != "" {
		b.WriteString("Subject: " + s + "\n\n")
	}
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString("Description:\n" + body)
	}
	if b.Len() == 0 {
		return NoDescription
	}
	return truncate(strings.TrimSpace(b.String()), maxDescription)
}

// Impact picks the middle of the body, where the substance of a request
// usually sits between greeting and sign-off. With three or more sentences
// the middle half of the sentences is used, with two the second, and
// otherwise the middle half of the characters of a body longer than 100
// characters.
func Impact(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return NoImpact
	}

	var impact string
	sentences := splitSentences(body)
	switch n := len(sentences); {
	case n > 2:
		impact = strings.Join(sentences[n/4:n*3/4], " ")
	case n == 2:
		impact = sentences[1]
	default:
		r := []rune(body)
		if len(r) > 100 {
			impact = string(r[len(r)/4 : len(r)*3/4])
		} else {
			impact = body
		}
	}

	impact = strings.TrimSpace(impact)
	if impact == "" {
		return NoImpact
	}
	return truncate(impact, maxImpact)
}

// splitSentences splits text after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	r := []rune(text)
	start := 0
	for i := 0; i < len(r); i++ {
		if r[i] != '.' && r[i] != '!' && r[i] != '?' {
			continue
		}
		if i+1 >= len(r) || !unicode.IsSpace(r[i+1]) {
			continue
		}
		out = append(out, string(r[start:i+1]))
		for i+1 < len(r) && unicode.IsSpace(r[i+1]) {
			i++
		}
		start = i + 1
	}
	if start < len(r) {
		out = append(out, string(r[start:]))
	}
	return out
}

// TicketOwner derives the owner's name from the local part of the sender
// address, turning dots into spaces.
func TicketOwner(from string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(from), "@")
	if owner := strings.TrimSpace(strings.ReplaceAll(local, ".", " ")); owner != "" {
		return owner
	}
	return UnknownTicketOwner
}
