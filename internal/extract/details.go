package extract

import (
	"regexp"
	"strings"

	"github.com/shineum/mailticket/internal/ticket"
)

var (
	replyPrefix = regexp.MustCompile(`(?i)^(?:(?:re|fw|fwd)[ \t]*:[ \t]*)+`)

	employeeIDLabel  = regexp.MustCompile(`(?i)\b(?:employee|emp)[ \t]*(?:id|code|no)\b[ \t]*[:#.-]?[ \t]*([a-z0-9]*\d[a-z0-9]*)`)
	employeeIDPrefix = regexp.MustCompile(`(?i)\b(emp\d{3,})\b`)
	employeeIDNumber = regexp.MustCompile(`\b(\d{6,8})\b`)
	employeeName     = regexp.MustCompile(`(?i)employee[ \t]*name[ \t]*[:-]?[ \t]*([a-z][a-z .]*)`)
	personName       = regexp.MustCompile(`^[A-Za-z][A-Za-z .]{1,48}$`)
	phoneNumber      = regexp.MustCompile(`\+\d{1,3}[ \t]?\d{10}\b|\b\d{5}[ \t]+\d{6}\b|\b\d{10}\b`)
)

// CleanSubject strips leading reply and forward markers such as "Re:" and
// "Fwd:" from a subject.
func CleanSubject(subject string) string {
	return strings.TrimSpace(replyPrefix.ReplaceAllString(strings.TrimSpace(subject), ""))
}

// ExtractDetails scrapes sender details from the message text following the
// header block, including the signature. sender is used as the contact when
// no phone number is present.
func ExtractDetails(raw, sender string) ticket.Details {
	lines := strings.Split(normalize(raw), "\n")
	lines = lines[bodyStart(lines):]
	text := strings.Join(lines, "\n")

	var d ticket.Details
	for _, re := range []*regexp.Regexp{employeeIDLabel, employeeIDPrefix, employeeIDNumber} {
		if m := re.FindStringSubmatch(text); m != nil {
			d.EmployeeID = strings.ToUpper(m[1])
			break
		}
	}

	if m := employeeName.FindStringSubmatch(text); m != nil {
		d.EmployeeName = strings.TrimSpace(m[1])
	} else {
		d.EmployeeName = signatureName(lines)
	}

	switch {
	case phoneNumber.MatchString(text):
		d.Contact = phoneNumber.FindString(text)
	case emailPattern.MatchString(sender):
		d.Contact = sender
	default:
		d.Contact = emailPattern.FindString(text)
	}
	return d
}

// signatureName returns the line following a closing salutation when it
// looks like a person's name.
func signatureName(lines []string) string {
	for i, line := range lines {
		if !salutationLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" {
				continue
			}
			if personName.MatchString(next) {
				return next
			}
			break
		}
	}
	return ""
}
