package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shineum/mailticket/internal/email"
	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

func testTicket() *ticket.Ticket {
	name := "Arun Kumar"
	return &ticket.Ticket{
		Summary:         "CK Alumni portal login fails",
		Project:         ticket.ProjectCKAlumni,
		ReceivedDate:    ticket.Date{Year: 2025, Month: time.July, Day: 11},
		Priority:        ticket.PriorityHigh,
		BugType:         ticket.BugTypeBug,
		Status:          ticket.StatusOpened,
		Impact:          "Alumni cannot sign in.",
		TicketOwner:     "priya raman",
		ContributorName: &name,
	}
}

// newTestPublisher wires a Publisher to a fresh token server and the given
// sendMail handler.
func newTestPublisher(t *testing.T, handler http.HandlerFunc) (*Publisher, *atomic.Int32) {
	t.Helper()
	tokenServer, tokenCalls := newTokenServer(t, 3600)
	graphServer := httptest.NewServer(handler)
	t.Cleanup(graphServer.Close)

	p := newWithEndpoints(Config{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		Sender:       "tickets@hepl.com",
		Recipients:   []string{"l3@hepl.com"},
	}, graphServer.URL, tokenServer.URL, graphServer.Client())
	p.retryDelay = time.Millisecond
	return p, tokenCalls
}

func writeGraphError(w http.ResponseWriter, status int, message string) {
	var er errorResponse
	er.Error.Code = http.StatusText(status)
	er.Error.Message = message
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(er)
}

func TestBuildSendMailRequest(t *testing.T) {
	t.Parallel()

	req := buildSendMailRequest(&email.Email{
		To:       []string{"alice@hepl.com", "bob@hepl.com"},
		Cc:       []string{"carol@hepl.com"},
		Subject:  "Report",
		TextBody: "See attached",
		Attachments: []email.Attachment{
			{Filename: "ticket.json", ContentType: "application/json", Content: []byte(`{}`)},
		},
	})

	m := req.Message
	if m.Subject != "Report" {
		t.Errorf("Subject: got %q, want %q", m.Subject, "Report")
	}
	if m.Body.ContentType != "text" || m.Body.Content != "See attached" {
		t.Errorf("Body: got %+v", m.Body)
	}
	if len(m.ToRecipients) != 2 || m.ToRecipients[1].EmailAddress.Address != "bob@hepl.com" {
		t.Errorf("ToRecipients: got %+v", m.ToRecipients)
	}
	if len(m.CcRecipients) != 1 {
		t.Errorf("CcRecipients: got %d, want 1", len(m.CcRecipients))
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(m.Attachments))
	}
	att := m.Attachments[0]
	if att.ODataType != fileAttachmentType || att.Name != "ticket.json" {
		t.Errorf("attachment: got %+v", att)
	}
	if att.ContentBytes != base64.StdEncoding.EncodeToString([]byte(`{}`)) {
		t.Errorf("ContentBytes: got %q", att.ContentBytes)
	}
}

func TestBuildSendMailRequest_HTMLBody(t *testing.T) {
	t.Parallel()

	req := buildSendMailRequest(&email.Email{TextBody: "plain", HTMLBody: "<p>rich</p>"})
	if req.Message.Body.ContentType != "html" || req.Message.Body.Content != "<p>rich</p>" {
		t.Errorf("Body: got %+v", req.Message.Body)
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"toRecipients":[]`) {
		t.Errorf("empty recipient list not encoded as []: %s", data)
	}
	if strings.Contains(string(data), "ccRecipients") {
		t.Errorf("empty cc list encoded: %s", data)
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := (&Publisher{}).Name(); got != "msgraph" {
		t.Errorf("Name: got %q, want %q", got, "msgraph")
	}
}

func TestPublish_Success(t *testing.T) {
	t.Parallel()

	var body sendMailRequest
	p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization: got %q, want %q", got, "Bearer token-1")
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := p.Publish(context.Background(), testTicket()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := body.Message
	if m.Subject != "[CK Alumni][High] CK Alumni portal login fails" {
		t.Errorf("Subject: got %q", m.Subject)
	}
	if len(m.ToRecipients) != 1 || m.ToRecipients[0].EmailAddress.Address != "l3@hepl.com" {
		t.Errorf("ToRecipients: got %+v", m.ToRecipients)
	}
	if !strings.Contains(m.Body.Content, "Arun Kumar") {
		t.Errorf("body does not name the contributor:\n%s", m.Body.Content)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Name != provider.TicketAttachment {
		t.Fatalf("Attachments: got %+v", m.Attachments)
	}

	raw, err := base64.StdEncoding.DecodeString(m.Attachments[0].ContentBytes)
	if err != nil {
		t.Fatalf("attachment is not base64: %v", err)
	}
	var back ticket.Ticket
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("attachment is not ticket JSON: %v", err)
	}
	if back.Priority != ticket.PriorityHigh {
		t.Errorf("attached priority: got %s", back.Priority)
	}
}

func TestPublish_PermanentErrors(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeGraphError(w, status, "rejected")
			})

			err := p.Publish(context.Background(), testTicket())
			var apiErr *apiError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *apiError, got %T (%v)", err, err)
			}
			if apiErr.transient || apiErr.message != "rejected" {
				t.Errorf("apiError: got %+v", apiErr)
			}
			if calls.Load() != 1 {
				t.Errorf("send calls: got %d, want 1", calls.Load())
			}
		})
	}
}

func TestPublish_RetryOn5xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeGraphError(w, http.StatusServiceUnavailable, "try again")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := p.Publish(context.Background(), testTicket()); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("send calls: got %d, want 3", calls.Load())
	}
}

func TestPublish_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeGraphError(w, http.StatusBadGateway, "down")
	})

	err := p.Publish(context.Background(), testTicket())
	if err == nil || !strings.Contains(err.Error(), "after 3 retries") {
		t.Fatalf("error: got %v, want one mentioning 3 retries", err)
	}
	if calls.Load() != 4 {
		t.Errorf("send calls: got %d, want 4", calls.Load())
	}
}

func TestPublish_RefreshesTokenOn401(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p, tokenCalls := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeGraphError(w, http.StatusUnauthorized, "token expired")
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-2" {
			t.Errorf("Authorization after refresh: got %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := p.Publish(context.Background(), testTicket()); err != nil {
		t.Fatalf("expected success after token refresh, got: %v", err)
	}
	if calls.Load() != 2 || tokenCalls.Load() != 2 {
		t.Errorf("calls: got %d sends and %d token requests, want 2 and 2", calls.Load(), tokenCalls.Load())
	}
}

func TestPublish_RateLimited(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeGraphError(w, http.StatusTooManyRequests, "slow down")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := p.Publish(context.Background(), testTicket()); err != nil {
		t.Fatalf("expected success after rate limit, got: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("send calls: got %d, want 2", calls.Load())
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	t.Parallel()

	p, _ := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		writeGraphError(w, http.StatusServiceUnavailable, "down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Publish(ctx, testTicket()); err == nil {
		t.Error("expected error for cancelled context, got nil")
	}
}

func TestNewAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{400, false},
		{401, true},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		if got := newAPIError(tt.status, "m", "").transient; got != tt.transient {
			t.Errorf("newAPIError(%d).transient: got %v, want %v", tt.status, got, tt.transient)
		}
	}

	if got := newAPIError(500, "boom", "").Error(); got != "Graph API error (HTTP 500): boom" {
		t.Errorf("Error(): got %q", got)
	}
}

func TestRetryAfterDelay(t *testing.T) {
	t.Parallel()

	p := &Publisher{retryDelay: time.Second}
	tests := []struct {
		header  string
		attempt int
		want    time.Duration
	}{
		{"", 1, 2 * time.Second},
		{"junk", 2, 4 * time.Second},
		{"7", 0, 7 * time.Second},
		{"86400", 0, maxRetryAfter},
	}

	for _, tt := range tests {
		if got := p.retryAfterDelay(tt.header, tt.attempt); got != tt.want {
			t.Errorf("retryAfterDelay(%q, %d): got %v, want %v", tt.header, tt.attempt, got, tt.want)
		}
	}
}
