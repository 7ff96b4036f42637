package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// lookupEncoding resolves a MIME charset label. IANA names are tried first,
// then the WHATWG labels browsers accept ("latin1", "cp1252", ...).
func lookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.ToLower(strings.Trim(strings.TrimSpace(label), `"`))
	if enc, err := ianaindex.MIME.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, _ := charset.Lookup(label); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}

// newCharsetReader adapts lookupEncoding to mime.WordDecoder.
func newCharsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8", "us-ascii":
		return input, nil
	}
	enc, err := lookupEncoding(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

// DecodeText converts content in the named charset to UTF-8. Without a label,
// valid UTF-8 passes through and anything else is sniffed the way browsers
// do: byte order mark, then HTML meta tags, then windows-1252.
func DecodeText(content []byte, label, mediaType string) string {
	if label == "" {
		if utf8.Valid(content) {
			return string(content)
		}
		enc, name, _ := charset.DetermineEncoding(content, mediaType)
		out, err := enc.NewDecoder().Bytes(content)
		if err != nil {
			slog.Warn("failed to decode text, using raw bytes", "charset", name, "error", err)
			return string(content)
		}
		return string(out)
	}

	r, err := newCharsetReader(label, bytes.NewReader(content))
	if err != nil {
		slog.Warn("unsupported charset, using raw bytes", "charset", label)
		return string(content)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		slog.Warn("failed to decode text, using raw bytes", "charset", label, "error", err)
		return string(content)
	}
	return string(out)
}
