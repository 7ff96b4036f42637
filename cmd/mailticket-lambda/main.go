// Package main is the AWS Lambda entrypoint: each S3 object-created event
// names a raw email, which is fetched, turned into a ticket and published.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/shineum/mailticket/internal/app"
	"github.com/shineum/mailticket/internal/config"
	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/intake"
	"github.com/shineum/mailticket/internal/provider/archive"
)

// handler processes the records of one S3 event.
type handler struct {
	objects  archive.GetObjectAPI
	pipeline intake.Handler
}

// Handle fetches and processes every record. A message the engine rejects
// is logged and dropped, since retrying cannot help it; fetch and publish
// failures are returned so Lambda retries the event.
func (h *handler) Handle(ctx context.Context, event events.S3Event) error {
	var errs []error
	for _, rec := range event.Records {
		bucket := rec.S3.Bucket.Name
		key := rec.S3.Object.URLDecodedKey
		if key == "" {
			key = rec.S3.Object.Key
		}
		slog.Info("processing object", "bucket", bucket, "key", key)

		raw, err := archive.Fetch(ctx, h.objects, bucket, key)
		if err != nil {
			slog.Error("failed to fetch object", "bucket", bucket, "key", key, "error", err)
			errs = append(errs, err)
			continue
		}

		_, err = h.pipeline.Handle(ctx, intake.Message{ID: key, Raw: raw})
		var perr *extract.ParseError
		switch {
		case errors.As(err, &perr):
			slog.Warn("dropping message that could not be parsed", "key", key, "error", err)
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func main() {
	ctx := context.Background()

	// Lambda has no config file; everything comes from MAILTICKET_ variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Source objects are read with the function's own credentials, in the
	// region Lambda runs in unless s3.region says otherwise.
	objects, err := archive.NewClient(ctx, cfg.S3.Region, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	if err != nil {
		slog.Error("failed to create S3 client", "error", err)
		os.Exit(1)
	}

	pub, err := app.NewPublisher(ctx, cfg)
	if err != nil {
		slog.Error("failed to create publisher", "error", err)
		os.Exit(1)
	}
	pipeline, err := app.NewPipeline(cfg, pub)
	if err != nil {
		slog.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	h := &handler{objects: objects, pipeline: pipeline}
	lambda.Start(h.Handle)
}
