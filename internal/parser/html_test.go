package parser

import (
	"testing"

	"github.com/shineum/mailticket/internal/email"
)

func TestHTMLToText(t *testing.T) {
	t.Parallel()

	src := "<html><head><title>x</title><style>p{color:red}</style></head><body>" +
		"<p>Hi Team,</p><p>The   portal\n shows an error.<br>Please&nbsp;check.</p>" +
		"<ul><li>one</li><li>two</li></ul><script>var a;</script></body></html>"

	got, err := HTMLToText(src)
	if err != nil {
		t.Fatalf("HTMLToText: %v", err)
	}
	want := "Hi Team,\n\nThe portal shows an error.\nPlease check.\n\none\n\ntwo"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTidyLines(t *testing.T) {
	t.Parallel()

	got := tidyLines("\n\n  a   b \n\n\n\nc\n  \n")
	if got != "a b\n\nc" {
		t.Errorf("got %q, want %q", got, "a b\n\nc")
	}
}

func TestDecodeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
		label   string
		want    string
	}{
		{"utf-8 passthrough", []byte("Café"), "", "Café"},
		{"latin-1 label", []byte("Caf\xe9"), "ISO-8859-1", "Café"},
		{"whatwg label", []byte("Caf\xe9"), "latin1", "Café"},
		{"sniffed windows-1252", []byte("Caf\xe9 \x93quoted\x94"), "", "Café “quoted”"},
		{"unknown label keeps bytes", []byte("plain"), "x-no-such-charset", "plain"},
	}

	for _, tt := range tests {
		if got := DecodeText(tt.content, tt.label, "text/plain"); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	msg := &email.Email{
		From:     "Priya Raman <priya.raman@hepl.com>",
		Date:     "Fri, 11 Jul 2025 13:14:00 +0530",
		To:       []string{"l3support@hepl.com", "arun.kumar@hepl.com"},
		Subject:  "Livewire\r\n export fails",
		TextBody: "\r\nThe export button does nothing.\r\n",
	}

	want := "From: Priya Raman <priya.raman@hepl.com>\n" +
		"Sent: Fri, 11 Jul 2025 13:14:00 +0530\n" +
		"To: l3support@hepl.com; arun.kumar@hepl.com\n" +
		"Subject: Livewire export fails\n" +
		"\n" +
		"The export button does nothing."
	if got := Flatten(msg); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBody_HTMLFallback(t *testing.T) {
	t.Parallel()

	msg := &email.Email{TextBody: "  ", HTMLBody: "<div>Export</div><div>fails</div>"}
	if got := Body(msg); got != "Export\n\nfails" {
		t.Errorf("got %q", got)
	}
	if got := Body(&email.Email{}); got != "" {
		t.Errorf("empty message: got %q", got)
	}
}
