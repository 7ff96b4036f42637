// Package app assembles the extraction pipeline from configuration. Both the
// CLI and the Lambda handler build their pipeline here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/mailticket/internal/config"
	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/intake"
	"github.com/shineum/mailticket/internal/provider"
	"github.com/shineum/mailticket/internal/provider/archive"
	"github.com/shineum/mailticket/internal/provider/graph"
	"github.com/shineum/mailticket/internal/provider/ses"
	"github.com/shineum/mailticket/internal/provider/stdout"
	"github.com/shineum/mailticket/internal/registry"
)

// NewExtractor creates the engine, loading the dictionary file when one is
// configured.
func NewExtractor(cfg *config.Config) (*extract.Extractor, error) {
	var opts []extract.Option
	if path := cfg.Extraction.DictionaryFile; path != "" {
		dict, err := extract.LoadDictionary(path)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded variant dictionary", "file", path)
		opts = append(opts, extract.WithDictionary(dict))
	}
	ex, err := extract.New(cfg.Engine(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return ex, nil
}

// NewPublisher chooses the ticket publisher. publisher.name wins when set;
// otherwise Graph, SES and S3 are tried in that order and stdout is the
// fallback.
func NewPublisher(ctx context.Context, cfg *config.Config) (provider.Publisher, error) {
	switch cfg.Publisher.Name {
	case config.PublisherSES:
		if !cfg.SESConfigured() {
			return nil, fmt.Errorf("ses publisher selected but ses.region, ses.sender and ses.recipients are required")
		}
		return newSES(ctx, cfg)

	case config.PublisherGraph:
		if !cfg.GraphConfigured() {
			return nil, fmt.Errorf("graph publisher selected but graph.tenant_id, graph.client_id, graph.client_secret, graph.sender and graph.recipients are required")
		}
		return newGraph(cfg), nil

	case config.PublisherS3:
		if !cfg.S3Configured() {
			return nil, fmt.Errorf("s3 publisher selected but s3.region and s3.bucket are required")
		}
		return newArchive(ctx, cfg)

	case config.PublisherStdout:
		slog.Info("using stdout publisher", "format", cfg.Publisher.Format)
		return stdout.New(cfg.Publisher.Format), nil

	case "":
		switch {
		case cfg.GraphConfigured():
			return newGraph(cfg), nil
		case cfg.SESConfigured():
			return newSES(ctx, cfg)
		case cfg.S3Configured():
			return newArchive(ctx, cfg)
		}
		slog.Info("no publisher configured, using stdout publisher", "format", cfg.Publisher.Format)
		return stdout.New(cfg.Publisher.Format), nil

	default:
		return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher.Name)
	}
}

func newSES(ctx context.Context, cfg *config.Config) (provider.Publisher, error) {
	slog.Info("using AWS SES publisher",
		"region", cfg.SES.Region,
		"sender", cfg.SES.Sender,
		"recipients", len(cfg.SES.Recipients),
	)
	p, err := ses.New(ctx, ses.Config{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
		Recipients:      cfg.SES.Recipients,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES publisher: %w", err)
	}
	return p, nil
}

func newGraph(cfg *config.Config) provider.Publisher {
	slog.Info("using Microsoft Graph publisher",
		"sender", cfg.Graph.Sender,
		"recipients", len(cfg.Graph.Recipients),
	)
	return graph.New(graph.Config{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		Sender:       cfg.Graph.Sender,
		Recipients:   cfg.Graph.Recipients,
	})
}

func newArchive(ctx context.Context, cfg *config.Config) (provider.Publisher, error) {
	slog.Info("using S3 archive publisher",
		"region", cfg.S3.Region,
		"bucket", cfg.S3.Bucket,
		"prefix", cfg.S3.Prefix,
	)
	p, err := archive.New(ctx, archive.Config{
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Bucket:          cfg.S3.Bucket,
		Prefix:          cfg.S3.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 publisher: %w", err)
	}
	return p, nil
}

// NewPipeline wires the registry, the engine and pub into a pipeline. A nil
// pub extracts without publishing.
func NewPipeline(cfg *config.Config, pub provider.Publisher) (*intake.Pipeline, error) {
	contributors, err := registry.Load(cfg.Registry.File)
	if err != nil {
		return nil, err
	}
	if cfg.Registry.File != "" {
		slog.Info("loaded contributor registry", "file", cfg.Registry.File, "contributors", contributors.Len())
	}

	ex, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return intake.NewPipeline(ex, contributors, pub), nil
}
