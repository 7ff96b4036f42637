// Package parser decodes RFC 5322 messages with MIME multipart support and
// renders them back to the plain header-and-body text a mail client shows.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/shineum/mailticket/internal/email"
)

// wordDecoder decodes RFC 2047 encoded words in any charset newCharsetReader
// knows.
var wordDecoder = &mime.WordDecoder{CharsetReader: newCharsetReader}

// transportHeaders mark a message written by a mail system rather than text
// copied out of a mail client.
var transportHeaders = []string{"Mime-Version", "Content-Type", "Message-Id", "Received", "Return-Path"}

// LooksLikeMessage reports whether raw is an RFC 5322 message as stored or
// transferred by a mail system. Text pasted from a mail client also starts
// with "From:" lines but carries none of the transport headers.
func LooksLikeMessage(raw []byte) bool {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return false
	}
	for _, h := range transportHeaders {
		if _, ok := msg.Header[h]; ok {
			return true
		}
	}
	return false
}

// Parse parses a raw RFC 5322 email message into an Email struct.
// It handles plain text messages, multipart messages with text/html bodies,
// and attachments. Header values and text bodies are decoded to UTF-8.
// Unrecognized MIME parts are logged as warnings.
func Parse(raw []byte) (*email.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Email{
		RawHeaders: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		result.RawHeaders[key] = values
	}

	result.From = decodeHeader(msg.Header.Get("From"))
	result.Subject = decodeHeader(msg.Header.Get("Subject"))
	result.Date = strings.TrimSpace(msg.Header.Get("Date"))
	result.MessageID = strings.TrimSpace(msg.Header.Get("Message-Id"))
	result.To = parseAddressList(msg.Header.Get("To"))
	result.Cc = parseAddressList(msg.Header.Get("Cc"))
	result.Bcc = parseAddressList(msg.Header.Get("Bcc"))

	if err := parseEntity(textproto.MIMEHeader(msg.Header), msg.Body, result, true); err != nil {
		return nil, err
	}
	return result, nil
}

// parseEntity decodes one MIME entity into result. The top-level entity keeps
// bodies of unknown type as text; nested parts of unknown type are kept only
// when they carry a filename.
func parseEntity(header textproto.MIMEHeader, body io.Reader, result *email.Email, topLevel bool) error {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(body, boundary, result); err != nil {
			return fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return nil
	}

	content, err := readContent(header, body)
	if err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	disposition := strings.ToLower(header.Get("Content-Disposition"))
	if strings.HasPrefix(disposition, "attachment") {
		result.Attachments = append(result.Attachments, email.Attachment{
			Filename:    extractFilename(header, params, mediaType),
			ContentType: mediaType,
			Content:     content,
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		if result.TextBody == "" {
			result.TextBody = DecodeText(content, params["charset"], mediaType)
		}
	case "text/html":
		if result.HTMLBody == "" {
			result.HTMLBody = DecodeText(content, params["charset"], mediaType)
		}
	default:
		if topLevel {
			slog.Warn("unrecognized top-level content type",
				"content_type", mediaType,
			)
			result.TextBody = DecodeText(content, params["charset"], "text/plain")
			return nil
		}
		if hasFilename(header, params) {
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    extractFilename(header, params, mediaType),
				ContentType: mediaType,
				Content:     content,
			})
			return nil
		}
		slog.Warn("unrecognized MIME part, skipping",
			"content_type", mediaType,
			"disposition", disposition,
		)
	}
	return nil
}

// parseMultipart walks the parts of a multipart body. Failures inside a part
// are logged and the part is skipped.
func parseMultipart(body io.Reader, boundary string, result *email.Email) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		if err := parseEntity(part.Header, part, result, false); err != nil {
			slog.Warn("failed to parse MIME part, skipping",
				"content_type", part.Header.Get("Content-Type"),
				"error", err,
			)
		}
	}
}

// readContent reads an entity body and removes its Content-Transfer-Encoding.
// multipart.Reader already decodes quoted-printable parts and drops the
// header, so only the top-level entity reaches the quoted-printable case.
func readContent(header textproto.MIMEHeader, body io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		cleaned := strings.Join(strings.Fields(string(raw)), "")
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode quoted-printable content: %w", err)
		}
		return decoded, nil
	default:
		return raw, nil
	}
}

func hasFilename(header textproto.MIMEHeader, params map[string]string) bool {
	if _, dp, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && dp["filename"] != "" {
		return true
	}
	return params["name"] != ""
}

// extractFilename returns the part's filename from Content-Disposition or the
// Content-Type name parameter, else a name derived from the media type.
func extractFilename(header textproto.MIMEHeader, params map[string]string, mediaType string) string {
	if _, dp, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && dp["filename"] != "" {
		return decodeHeader(dp["filename"])
	}
	if name := params["name"]; name != "" {
		return decodeHeader(name)
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
		return "attachment." + sub
	}
	return "attachment"
}

// decodeHeader decodes RFC 2047 encoded words, keeping the raw value when
// decoding fails.
func decodeHeader(value string) string {
	value = strings.TrimSpace(value)
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		slog.Debug("failed to decode header", "value", value, "error", err)
		return value
	}
	return decoded
}

// parseAddressList splits an address header into bare addresses.
func parseAddressList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parser := mail.AddressParser{WordDecoder: wordDecoder}
	addresses, err := parser.ParseList(raw)
	if err != nil {
		// Fall back to a plain split for lists mail clients wrote loosely,
		// such as "a@x.com; b@x.com".
		fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
		result := make([]string, 0, len(fields))
		for _, f := range fields {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
