package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NoSubject is the subject reported when the email has no Subject line.
const NoSubject = "No Subject"

// Headers holds the header values found in a raw email. Missing headers
// are represented by their zero value (NoSubject for the subject).
type Headers struct {
	Subject string
	// From is the sender address, or the raw From text when no address
	// could be isolated.
	From string
	// To is the raw To value.
	To          string
	ToAddresses []string
	// SentToken is the unparsed date text of the first sent-date label.
	SentToken string
	// SentLabel is the label SentToken was found under.
	SentLabel string
}

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	angleBrackets = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+)\s*>`)

	subjectHeader = headerPattern("subject")
	fromHeader    = headerPattern("from")
	toHeader      = headerPattern("to")
)

// headerPattern matches a line that starts with the label and a colon.
// Outlook exports sometimes bold labels with asterisks, so those are allowed
// around the label.
func headerPattern(label string) *regexp.Regexp {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?im)^[ \t]*\**[ \t]*` + strings.Join(words, `[ \t]+`) + `[ \t]*\**[ \t]*:\**[ \t]*(.*)$`)
}

// findHeader returns the first non-empty value captured by re.
func findHeader(text string, re *regexp.Regexp) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := strings.TrimSpace(strings.Trim(m[1], "*")); v != "" {
			return v, true
		}
	}
	return "", false
}

// normalize folds line endings to \n and applies NFKC so that no-break and
// narrow spaces from mail clients compare equal to ASCII spaces.
func normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFKC.String(s)
}

// ExtractHeaders pulls Subject, From, To and the sent-date token out of raw
// email text. It never fails; absent headers are left at their defaults.
func ExtractHeaders(raw string) Headers {
	text := normalize(raw)

	h := Headers{Subject: NoSubject}
	if v, ok := findHeader(text, subjectHeader); ok {
		h.Subject = v
	}
	if v, ok := findHeader(text, fromHeader); ok {
		h.From = senderAddress(v)
	}
	if v, ok := findHeader(text, toHeader); ok {
		h.To = v
		h.ToAddresses = Addresses(v)
	}
	h.SentToken, h.SentLabel = findSentToken(text)
	return h
}

// senderAddress isolates the address in a From value: the bracketed address
// of "Name <addr>", else the first address-shaped token, else the value.
func senderAddress(value string) string {
	if m := angleBrackets.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if addr := emailPattern.FindString(value); addr != "" {
		return addr
	}
	return value
}

// Addresses returns every address-shaped token in s, lower-cased, in order.
func Addresses(s string) []string {
	return emailPattern.FindAllString(strings.ToLower(s), -1)
}
