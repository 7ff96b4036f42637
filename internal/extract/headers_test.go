package extract

import (
	"slices"
	"strings"
	"testing"
)

func TestExtractHeaders_Outlook(t *testing.T) {
	t.Parallel()

	h := ExtractHeaders(outlookEmail)

	if h.Subject != "Urgnt isue with CK Alumi portal" {
		t.Errorf("Subject: got %q, want %q", h.Subject, "Urgnt isue with CK Alumi portal")
	}
	if h.From != "priya.raman@hepl.com" {
		t.Errorf("From: got %q, want %q", h.From, "priya.raman@hepl.com")
	}
	wantTo := []string{"l3support@hepl.com", "arun.kumar@hepl.com"}
	if !slices.Equal(h.ToAddresses, wantTo) {
		t.Errorf("ToAddresses: got %v, want %v", h.ToAddresses, wantTo)
	}
	if !strings.HasPrefix(h.To, "L3 Support") {
		t.Errorf("To: got %q, want raw header value", h.To)
	}
	if h.SentToken != "Friday, July 11, 2025 1:14 PM" {
		t.Errorf("SentToken: got %q, want %q", h.SentToken, "Friday, July 11, 2025 1:14 PM")
	}
	if h.SentLabel != "Sent" {
		t.Errorf("SentLabel: got %q, want %q", h.SentLabel, "Sent")
	}
}

func TestExtractHeaders_Missing(t *testing.T) {
	t.Parallel()

	h := ExtractHeaders("The export button does nothing.\nPlease check.")

	if h.Subject != NoSubject {
		t.Errorf("Subject: got %q, want %q", h.Subject, NoSubject)
	}
	if h.From != "" || h.To != "" || h.SentToken != "" {
		t.Errorf("expected empty From/To/SentToken, got %q %q %q", h.From, h.To, h.SentToken)
	}
	if len(h.ToAddresses) != 0 {
		t.Errorf("ToAddresses: got %v, want none", h.ToAddresses)
	}
}

func TestExtractHeaders_FromVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"From: Priya Raman <priya.raman@hepl.com>", "priya.raman@hepl.com"},
		{"from: priya.raman@hepl.com (Priya)", "priya.raman@hepl.com"},
		{"FROM:   \"Raman, Priya\" < priya@hepl.com >", "priya@hepl.com"},
		{"From: Priya Raman", "Priya Raman"},
		{"**From:** Priya Raman <priya@hepl.com>", "priya@hepl.com"},
	}

	for _, tt := range tests {
		h := ExtractHeaders(tt.line + "\nSubject: x\n\nbody")
		if h.From != tt.want {
			t.Errorf("ExtractHeaders(%q).From: got %q, want %q", tt.line, h.From, tt.want)
		}
	}
}

func TestExtractHeaders_FirstNonEmptyValue(t *testing.T) {
	t.Parallel()

	raw := "Subject:\nSUBJECT: Printer offline\nSubject: ignored\n\nbody"
	h := ExtractHeaders(raw)
	if h.Subject != "Printer offline" {
		t.Errorf("Subject: got %q, want %q", h.Subject, "Printer offline")
	}
}

func TestExtractHeaders_LabelMustStartLine(t *testing.T) {
	t.Parallel()

	raw := "Please forward to: ops@hepl.com\nThe subject: reports are late"
	h := ExtractHeaders(raw)
	if h.To != "" {
		t.Errorf("To: got %q, want empty", h.To)
	}
	if h.Subject != NoSubject {
		t.Errorf("Subject: got %q, want %q", h.Subject, NoSubject)
	}
}

func TestExtractHeaders_SentLabelPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantToken string
		wantLabel string
	}{
		{
			name:      "sent on beats date",
			raw:       "Date: Tue, 15 Jul 2025 10:00:00 +0000\nSent On: 12 July 2025 10:26\n",
			wantToken: "12 July 2025 10:26",
			wantLabel: "Sent On",
		},
		{
			name:      "date sent",
			raw:       "Date Sent: 07/15/2025\n",
			wantToken: "07/15/2025",
			wantLabel: "Date Sent",
		},
		{
			name:      "received date",
			raw:       "ReceivedDate: 2025-07-15\nDate: 2025-07-01\n",
			wantToken: "2025-07-15",
			wantLabel: "ReceivedDate",
		},
		{
			name:      "generic date",
			raw:       "Date: Tue, 15 Jul 2025 10:00:00 +0000\n",
			wantToken: "Tue, 15 Jul 2025 10:00:00 +0000",
			wantLabel: "Date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := ExtractHeaders(tt.raw)
			if h.SentToken != tt.wantToken {
				t.Errorf("SentToken: got %q, want %q", h.SentToken, tt.wantToken)
			}
			if h.SentLabel != tt.wantLabel {
				t.Errorf("SentLabel: got %q, want %q", h.SentLabel, tt.wantLabel)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	t.Parallel()

	got := Addresses("Team <Team@HEPL.com>, ops@hepl.co.in; not-an-address")
	want := []string{"team@hepl.com", "ops@hepl.co.in"}
	if !slices.Equal(got, want) {
		t.Errorf("Addresses: got %v, want %v", got, want)
	}
}
