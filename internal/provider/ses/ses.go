// Package ses implements a Publisher that emails ticket notifications via
// AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mailticket/internal/email"
	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

// Config holds the configuration for creating a Publisher.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string
	Recipients      []string
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Publisher sends one notification email per ticket through SES, with the
// ticket attached as JSON.
type Publisher struct {
	sender     string
	recipients []string
	client     SendEmailAPI
	retryDelay time.Duration
}

// New creates a Publisher using the default AWS credential chain, or static
// credentials when both keys are set.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, cfg.Recipients, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Publisher with a custom client, used for testing.
func NewWithClient(sender string, recipients []string, client SendEmailAPI) *Publisher {
	return &Publisher{
		sender:     sender,
		recipients: recipients,
		client:     client,
		retryDelay: provider.BaseRetryDelay,
	}
}

// Publish emails the ticket notification, retrying failed calls with
// exponential backoff.
func (p *Publisher) Publish(ctx context.Context, t *ticket.Ticket) error {
	msg, err := provider.Notification(p.sender, p.recipients, t)
	if err != nil {
		return err
	}
	raw, err := buildRawMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to build raw message: %w", err)
	}
	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{ToAddresses: msg.To},
		Content:     &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	}

	var lastErr error
	for attempt := 0; attempt <= provider.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", provider.MaxRetries,
			)
			if err := provider.Sleep(ctx, provider.Backoff(p.retryDelay, attempt)); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		_, err := p.client.SendEmail(ctx, input)
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"summary", t.Summary,
			"error", lastErr,
		)
	}

	return fmt.Errorf("SES API request failed after %d retries: %w", provider.MaxRetries, lastErr)
}

// Name returns the publisher name.
func (p *Publisher) Name() string {
	return "ses"
}

// buildRawMessage writes msg as a multipart/mixed MIME message: the text body
// followed by base64 attachments.
func buildRawMessage(msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	if len(msg.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	bodyHeader.Set("Content-Transfer-Encoding", "base64")
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := part.Write([]byte(encodeBase64Lines([]byte(msg.TextBody)))); err != nil {
		return nil, fmt.Errorf("failed to write body part: %w", err)
	}

	for _, att := range msg.Attachments {
		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", att.ContentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := part.Write([]byte(encodeBase64Lines(att.Content))); err != nil {
			return nil, fmt.Errorf("failed to write attachment part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeBase64Lines encodes data as base64 wrapped at 76 characters per
// RFC 2045.
func encodeBase64Lines(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for len(encoded) > 76 {
		lines = append(lines, encoded[:76])
		encoded = encoded[76:]
	}
	lines = append(lines, encoded)
	return strings.Join(lines, "\r\n")
}
