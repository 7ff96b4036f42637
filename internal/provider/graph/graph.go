package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

// Config holds the configuration for creating a Publisher.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
	Recipients   []string
}

// maxRetryAfter caps the server-requested wait on HTTP 429.
const maxRetryAfter = 2 * time.Minute

// Publisher mails ticket notifications from a Graph user mailbox using
// OAuth2 client credentials.
type Publisher struct {
	sender     string
	recipients []string
	sendURL    string
	httpClient *http.Client
	tokens     *tokenSource
	retryDelay time.Duration
}

// New creates a Publisher for the given tenant and sender mailbox.
func New(cfg Config) *Publisher {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID))
	sendURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", url.PathEscape(cfg.Sender))
	return newWithEndpoints(cfg, sendURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

// newWithEndpoints creates a Publisher against custom endpoints, used for
// testing.
func newWithEndpoints(cfg Config, sendURL, tokenURL string, client *http.Client) *Publisher {
	return &Publisher{
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
		sendURL:    sendURL,
		httpClient: client,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
		retryDelay: provider.BaseRetryDelay,
	}
}

// Publish mails the ticket notification. Transient failures are retried
// with exponential backoff, HTTP 429 honours Retry-After, and one 401 per
// call triggers a token refresh.
func (p *Publisher) Publish(ctx context.Context, t *ticket.Ticket) error {
	msg, err := provider.Notification(p.sender, p.recipients, t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	refreshed := false

	for attempt := 0; attempt <= provider.MaxRetries; attempt++ {
		err := p.send(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *apiError
		if !errors.As(err, &apiErr) {
			return err
		}

		var delay time.Duration
		switch {
		case apiErr.statusCode == http.StatusUnauthorized && !refreshed:
			slog.Info("refreshing Graph API token after 401")
			if _, err := p.tokens.Invalidate(ctx); err != nil {
				return fmt.Errorf("token refresh failed: %w", err)
			}
			refreshed = true
			continue
		case apiErr.statusCode == http.StatusTooManyRequests:
			delay = p.retryAfterDelay(apiErr.retryAfter, attempt)
			slog.Info("rate limited by Graph API", "retry_after", delay)
		case apiErr.transient:
			delay = provider.Backoff(p.retryDelay, attempt)
			slog.Info("transient Graph API error, retrying",
				"status", apiErr.statusCode,
				"delay", delay,
				"summary", t.Summary,
			)
		default:
			return apiErr
		}

		if err := provider.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled during retry wait: %w", err)
		}
	}

	return fmt.Errorf("Graph API request failed after %d retries: %w", provider.MaxRetries, lastErr)
}

// Name returns the publisher name.
func (p *Publisher) Name() string {
	return "msgraph"
}

// send performs one sendMail request.
func (p *Publisher) send(ctx context.Context, payload []byte) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &apiError{message: err.Error(), transient: true}
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(body))
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		message = er.Error.Message
	}
	return newAPIError(resp.StatusCode, message, resp.Header.Get("Retry-After"))
}

// apiError is a failed sendMail response classified for retry decisions.
type apiError struct {
	message    string
	statusCode int
	transient  bool
	retryAfter string
}

func (e *apiError) Error() string {
	if e.statusCode == 0 {
		return "Graph API request failed: " + e.message
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// newAPIError classifies a response status. 401, 429 and 5xx are transient;
// everything else, including 400 and 403, is permanent.
func newAPIError(statusCode int, message, retryAfter string) *apiError {
	transient := statusCode == http.StatusUnauthorized ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= 500
	return &apiError{
		message:    message,
		statusCode: statusCode,
		transient:  transient,
		retryAfter: retryAfter,
	}
}

// retryAfterDelay honours a Retry-After value in seconds, falling back to
// exponential backoff when it is missing or malformed.
func (p *Publisher) retryAfterDelay(retryAfter string, attempt int) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter))
	if err != nil || seconds <= 0 {
		return provider.Backoff(p.retryDelay, attempt)
	}
	return min(time.Duration(seconds)*time.Second, maxRetryAfter)
}
