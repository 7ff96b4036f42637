// Package archive implements a Publisher that stores tickets as JSON
// objects in an S3 bucket, and reads raw messages back out of one.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/ticket"
)

// Config holds the configuration for creating a Publisher.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// PutObjectAPI is the S3 PutObject operation.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// GetObjectAPI is the S3 GetObject operation.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Publisher writes one JSON object per ticket.
type Publisher struct {
	bucket     string
	prefix     string
	client     PutObjectAPI
	retryDelay time.Duration
}

// NewClient builds an S3 client from the default AWS credential chain, or
// from static credentials when both keys are set.
func NewClient(ctx context.Context, region, accessKeyID, secretAccessKey string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// New creates a Publisher for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	client, err := NewClient(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg.Bucket, cfg.Prefix, client), nil
}

// NewWithClient creates a Publisher with a custom client, used for testing.
func NewWithClient(bucket, prefix string, client PutObjectAPI) *Publisher {
	return &Publisher{
		bucket:     bucket,
		prefix:     prefix,
		client:     client,
		retryDelay: provider.BaseRetryDelay,
	}
}

// Publish stores t under Key, retrying failed uploads with exponential
// backoff. Publishing the same message twice overwrites one object.
func (p *Publisher) Publish(ctx context.Context, t *ticket.Ticket) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}
	key := p.Key(t, data)

	var lastErr error
	for attempt := 0; attempt <= provider.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := provider.Sleep(ctx, provider.Backoff(p.retryDelay, attempt)); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err == nil {
			slog.Debug("ticket archived", "bucket", p.bucket, "key", key)
			return nil
		}

		lastErr = err
		slog.Warn("S3 API error",
			"attempt", attempt,
			"key", key,
			"error", lastErr,
		)
	}

	return fmt.Errorf("S3 API request failed after %d retries: %w", provider.MaxRetries, lastErr)
}

// Name returns the publisher name.
func (p *Publisher) Name() string {
	return "s3"
}

// Key returns the object key for t: the prefix, the received date as
// yyyy/mm/dd, and the message ID made key-safe. Tickets without a message
// ID are named by a digest of their encoded form.
func (p *Publisher) Key(t *ticket.Ticket, encoded []byte) string {
	day := "undated"
	if !t.ReceivedDate.IsZero() {
		day = fmt.Sprintf("%04d/%02d/%02d", t.ReceivedDate.Year, t.ReceivedDate.Month, t.ReceivedDate.Day)
	}

	name := safeName(t.MessageID)
	if name == "" {
		sum := sha256.Sum256(encoded)
		name = hex.EncodeToString(sum[:8])
	}
	return p.prefix + day + "/" + name + ".json"
}

// safeName maps s onto the characters S3 documents as safe for keys.
func safeName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, s)
	return strings.Trim(mapped, "_.")
}

// Fetch reads a whole object.
func Fetch(ctx context.Context, client GetObjectAPI, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
