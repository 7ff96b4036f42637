package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockElements start on a new line when rendered.
const blockElements = "p, div, li, tr, table, blockquote, h1, h2, h3, h4, h5, h6, hr, pre"

var whitespaceRun = regexp.MustCompile(`\s+`)

// HTMLToText renders an HTML body as plain text: one line per block element,
// line breaks for <br>, and whitespace collapsed as a browser would.
func HTMLToText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("head, script, style, title").Remove()

	// Source line breaks are layout, not content, outside <pre>.
	doc.Find("*").Not("pre, pre *").Contents().Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); n.Type == html.TextNode {
			n.Data = whitespaceRun.ReplaceAllString(n.Data, " ")
		}
	})

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
		s.AppendHtml("\n")
	})

	return tidyLines(doc.Text()), nil
}

// tidyLines trims every line, collapses inner whitespace and keeps at most
// one blank line between paragraphs.
func tidyLines(text string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
