package parser

import (
	"strings"
	"testing"
)

func TestParse_PlainText(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: Priya Raman <priya.raman@hepl.com>",
		"To: l3support@hepl.com",
		"Subject: Livewire export fails",
		"Date: Fri, 11 Jul 2025 13:14:00 +0530",
		"Message-Id: <a1b2@hepl.com>",
		"Content-Type: text/plain",
		"",
		"The export button does nothing.",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.From != "Priya Raman <priya.raman@hepl.com>" {
		t.Errorf("From: got %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "l3support@hepl.com" {
		t.Errorf("To: got %v, want [l3support@hepl.com]", msg.To)
	}
	if msg.Subject != "Livewire export fails" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
	if msg.Date != "Fri, 11 Jul 2025 13:14:00 +0530" {
		t.Errorf("Date: got %q", msg.Date)
	}
	if msg.MessageID != "<a1b2@hepl.com>" {
		t.Errorf("MessageID: got %q", msg.MessageID)
	}
	if msg.TextBody != "The export button does nothing." {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if msg.HTMLBody != "" || len(msg.Attachments) != 0 {
		t.Errorf("unexpected HTML body or attachments: %q, %d", msg.HTMLBody, len(msg.Attachments))
	}
}

func TestParse_EncodedHeadersAndCharset(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: =?ISO-8859-1?Q?Andr=E9_Silva?= <andre@hepl.com>",
		"To: l3support@hepl.com",
		"Subject: =?UTF-8?B?VXJnZW50OiBwb3J0YWwg4oCTIGxvZ2luIGlzc3Vl?=",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=iso-8859-1",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Caf=E9 menu page is broken.",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.From != "André Silva <andre@hepl.com>" {
		t.Errorf("From: got %q", msg.From)
	}
	if msg.Subject != "Urgent: portal – login issue" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
	if msg.TextBody != "Café menu page is broken." {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
}

func TestParse_MultipartTextAndHTML(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, bob@example.com",
		"Cc: carol@example.com",
		"Subject: Multipart Test",
		"Content-Type: multipart/alternative; boundary=boundary123",
		"",
		"--boundary123",
		"Content-Type: text/plain",
		"",
		"Plain text body",
		"--boundary123",
		"Content-Type: text/html; charset=windows-1252",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"<p>Caf=E9 body</p>",
		"--boundary123--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msg.To) != 2 || msg.To[0] != "alice@example.com" || msg.To[1] != "bob@example.com" {
		t.Errorf("To: got %v", msg.To)
	}
	if len(msg.Cc) != 1 || msg.Cc[0] != "carol@example.com" {
		t.Errorf("Cc: got %v, want [carol@example.com]", msg.Cc)
	}
	if msg.TextBody != "Plain text body" {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if msg.HTMLBody != "<p>Café body</p>" {
		t.Errorf("HTMLBody: got %q", msg.HTMLBody)
	}
}

func TestParse_Attachments(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: With Attachment",
		"Content-Type: multipart/mixed; boundary=outer",
		"",
		"--outer",
		"Content-Type: multipart/alternative; boundary=inner",
		"",
		"--inner",
		"Content-Type: text/plain",
		"",
		"Screenshot attached",
		"--inner--",
		"--outer",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVs",
		"bG8g",
		"V29ybGQ=",
		"--outer",
		"Content-Type: image/png; name=\"screen.png\"",
		"",
		"png",
		"--outer",
		"Content-Type: application/x-unknown",
		"",
		"dropped",
		"--outer--",
	}, "\r\n"))

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.TextBody != "Screenshot attached" {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("Attachments: got %d, want 2", len(msg.Attachments))
	}
	if a := msg.Attachments[0]; a.Filename != "attachment.pdf" || string(a.Content) != "Hello World" {
		t.Errorf("Attachments[0]: got %q with %q", a.Filename, a.Content)
	}
	if a := msg.Attachments[1]; a.Filename != "screen.png" || a.ContentType != "image/png" {
		t.Errorf("Attachments[1]: got %q (%s)", a.Filename, a.ContentType)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	t.Run("completely invalid message", func(t *testing.T) {
		t.Parallel()
		if _, err := Parse([]byte("not a valid email at all\x00\x01\x02")); err == nil {
			t.Error("expected error for completely invalid message, got nil")
		}
	})

	t.Run("missing content type defaults to text/plain", func(t *testing.T) {
		t.Parallel()
		msg, err := Parse([]byte("From: sender@example.com\r\nSubject: x\r\n\r\nBody"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.TextBody != "Body" {
			t.Errorf("TextBody: got %q, want %q", msg.TextBody, "Body")
		}
	})

	t.Run("multipart missing boundary", func(t *testing.T) {
		t.Parallel()
		raw := []byte("From: sender@example.com\r\nContent-Type: multipart/mixed\r\n\r\nsome body")
		if _, err := Parse(raw); err == nil {
			t.Error("expected error for multipart missing boundary, got nil")
		}
	})
}

func TestParseAddressList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"Arun Kumar <arun.kumar@hepl.com>, meena.iyer@hepl.com", []string{"arun.kumar@hepl.com", "meena.iyer@hepl.com"}},
		{"arun.kumar@hepl.com; meena.iyer@hepl.com", []string{"arun.kumar@hepl.com", "meena.iyer@hepl.com"}},
	}

	for _, tt := range tests {
		got := parseAddressList(tt.raw)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseAddressList(%q): got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLooksLikeMessage(t *testing.T) {
	t.Parallel()

	eml := "From: a@hepl.com\r\nMIME-Version: 1.0\r\nSubject: x\r\n\r\nbody"
	pasted := "From: Priya Raman\nSent: Friday, July 11, 2025 1:14 PM\nTo: L3 Support\nSubject: x\n\nbody"

	if !LooksLikeMessage([]byte(eml)) {
		t.Error("stored message not recognised")
	}
	if LooksLikeMessage([]byte(pasted)) {
		t.Error("pasted client text recognised as a stored message")
	}
	if LooksLikeMessage([]byte("just some words")) {
		t.Error("free text recognised as a stored message")
	}
}
