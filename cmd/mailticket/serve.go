package main

import (
	"context"
	"log/slog"

	"github.com/shineum/mailticket/internal/app"
	"github.com/shineum/mailticket/internal/config"
	"github.com/shineum/mailticket/internal/smtp"
	smtptls "github.com/shineum/mailticket/internal/tls"
)

func runServe(ctx context.Context, args []string) error {
	var flags commonFlags
	fs := newFlagSet("serve", "serve [flags]")
	flags.register(fs)
	listen := fs.StringP("listen", "l", "", "override smtp.listen")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.load(func(cfg *config.Config) {
		if *listen != "" {
			cfg.SMTP.Listen = *listen
		}
	})
	if err != nil {
		return err
	}

	tlsConfig, err := smtptls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.SMTP.Hostname)
	if err != nil {
		return err
	}
	tlsMode := "self-signed"
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		tlsMode = "file"
	}

	pub, err := app.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(cfg, pub)
	if err != nil {
		return err
	}

	server := smtp.New(smtp.ServerConfig{
		ListenAddr:     cfg.SMTP.Listen,
		Hostname:       cfg.SMTP.Hostname,
		Handler:        pipeline,
		TLSConfig:      tlsConfig,
		AuthUsername:   cfg.SMTP.Username,
		AuthPassword:   cfg.SMTP.Password,
		MaxMessageSize: cfg.SMTP.MaxMessageSize,
	})

	slog.Info("starting mailticket",
		"listen", cfg.SMTP.Listen,
		"publisher", pub.Name(),
		"auth_enabled", cfg.AuthEnabled(),
		"tls_mode", tlsMode,
	)

	// Blocks until ctx is cancelled by SIGINT or SIGTERM.
	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}

	slog.Info("mailticket stopped")
	return nil
}
