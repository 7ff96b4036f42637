// Package email defines the decoded message model shared by intake and the
// notification publishers.
package email

// Email is a decoded RFC 5322 message. Header values are decoded to UTF-8
// and bodies are decoded from their transfer encoding and charset.
type Email struct {
	MessageID string
	// From is the decoded From header, display name included.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// Date is the raw Date header.
	Date        string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	RawHeaders  map[string][]string
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
