package extract

import (
	"regexp"
	"strings"
)

var (
	headerLine = regexp.MustCompile(`(?i)^[ \t]*\**[ \t]*(?:from|to|cc|bcc|subject|date|sent|sent[ \t]+on|sent[ \t]+date|received[ \t]*date|date[ \t]+sent|reply-to|importance|message-id|mime-version|content-type|content-transfer-encoding|x-[a-z0-9-]+)[ \t]*\**[ \t]*:`)

	// Lines that end the body: a closing salutation, optionally followed on
	// the same line by a separator and a short sign-off such as
	// "Regards, Priya | HR Team"; a signature separator; or a legal trailer.
	salutationLine    = regexp.MustCompile(`(?i)^(?:thanks[ \t]*(?:&|and)[ \t]*|best[ \t]+|kind[ \t]+|warm[ \t]+|with[ \t]+)?regards[ \t]*(?:[,.!:|\x{2013}\x{2014}-].{0,60})?$`)
	signatureLine     = regexp.MustCompile(`(?i)^--[ \t]*$|^sent from my [\w ]+$`)
	confidentialityRe = regexp.MustCompile(`(?i)confidentiality notice|^[ \t]*disclaimer[ \t]*:`)
)

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isHeaderLine(line string) bool {
	return headerLine.MatchString(line)
}

// isTrailerStart reports whether line begins the signature or disclaimer
// block that closes a message.
func isTrailerStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	return salutationLine.MatchString(trimmed) ||
		signatureLine.MatchString(trimmed) ||
		confidentialityRe.MatchString(line)
}

// bodyStart returns the index of the first body line. A leading header
// block ends at the first blank line; without a blank line, header-like and
// blank lines are skipped until real content appears.
func bodyStart(lines []string) int {
	i := 0
	for i < len(lines) && isBlank(lines[i]) {
		i++
	}
	if i < len(lines) && isHeaderLine(lines[i]) {
		for i < len(lines) && !isBlank(lines[i]) {
			// Folded header values continue on indented lines.
			if !isHeaderLine(lines[i]) && !strings.HasPrefix(lines[i], " ") && !strings.HasPrefix(lines[i], "\t") {
				break
			}
			i++
		}
		if i < len(lines) && isBlank(lines[i]) {
			return i + 1
		}
	}
	for i < len(lines) && (isBlank(lines[i]) || isHeaderLine(lines[i])) {
		i++
	}
	return i
}

// ExtractBody returns the message body of raw email text with the header
// block and the trailing signature or confidentiality notice removed. The
// result is trimmed and may be empty.
func ExtractBody(raw string) string {
	lines := strings.Split(normalize(raw), "\n")

	var b strings.Builder
	for _, line := range lines[bodyStart(lines):] {
		if isTrailerStart(line) {
			break
		}
		b.WriteString(strings.TrimRight(line, " \t"))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
