// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for mailticket.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/ticket"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "MAILTICKET_"

// defaultMaxMessageSize is 25 MB in bytes.
const defaultMaxMessageSize = 26214400

// Publisher names accepted in publisher.name.
const (
	PublisherStdout = "stdout"
	PublisherSES    = "ses"
	PublisherGraph  = "graph"
	PublisherS3     = "s3"
)

// Config holds the complete application configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Registry   RegistryConfig   `yaml:"registry"`
	Intake     IntakeConfig     `yaml:"intake"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	TLS        TLSConfig        `yaml:"tls"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	SES        SESConfig        `yaml:"ses"`
	Graph      GraphConfig      `yaml:"graph"`
	S3         S3Config         `yaml:"s3"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExtractionConfig holds the ticket extraction engine settings.
type ExtractionConfig struct {
	ProjectThreshold  float64 `yaml:"project_threshold"`
	PriorityThreshold float64 `yaml:"priority_threshold"`
	BugTypeThreshold  float64 `yaml:"bug_type_threshold"`
	Verbose           bool    `yaml:"verbose"`
	// DictionaryFile replaces the embedded variant dictionary when set.
	DictionaryFile string `yaml:"dictionary_file"`
}

// RegistryConfig points at the contributor registry file.
type RegistryConfig struct {
	File string `yaml:"file"`
}

// IntakeConfig holds batch intake settings.
type IntakeConfig struct {
	Workers    int      `yaml:"workers"`
	Extensions []string `yaml:"extensions"`
	// AllowedProjects limits batch intake to messages about these projects,
	// given as codes or display names. Empty admits every message.
	AllowedProjects []string `yaml:"allowed_projects"`
}

// SMTPConfig holds SMTP listener configuration.
type SMTPConfig struct {
	Listen         string `yaml:"listen"`
	Hostname       string `yaml:"hostname"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	MaxMessageSize int64  `yaml:"max_message_size"`
}

// TLSConfig holds TLS certificate file paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// PublisherConfig selects where assembled tickets go.
type PublisherConfig struct {
	Name string `yaml:"name"`
	// Format is "json" or "text" for the stdout publisher.
	Format string `yaml:"format"`
}

// SESConfig holds Amazon SES notification settings.
type SESConfig struct {
	Region          string   `yaml:"region"`
	AccessKeyID     string   `yaml:"access_key_id"`
	SecretAccessKey string   `yaml:"secret_access_key"`
	Sender          string   `yaml:"sender"`
	Recipients      []string `yaml:"recipients"`
}

// GraphConfig holds Microsoft Graph API notification settings.
type GraphConfig struct {
	TenantID     string   `yaml:"tenant_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Sender       string   `yaml:"sender"`
	Recipients   []string `yaml:"recipients"`
}

// S3Config holds the ticket archive bucket settings.
type S3Config struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvVars()

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"project_threshold":  c.Extraction.ProjectThreshold,
		"priority_threshold": c.Extraction.PriorityThreshold,
		"bug_type_threshold": c.Extraction.BugTypeThreshold,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Errorf("extraction.%s must be in (0, 1], got %v", name, v))
		}
	}
	if c.Intake.Workers < 1 {
		errs = append(errs, fmt.Errorf("intake.workers must be at least 1, got %d", c.Intake.Workers))
	}
	for _, name := range c.Intake.AllowedProjects {
		if ticket.ParseProject(name) == ticket.ProjectGeneral {
			errs = append(errs, fmt.Errorf("intake.allowed_projects: unknown project %q", name))
		}
	}
	switch c.Publisher.Name {
	case "", PublisherStdout, PublisherSES, PublisherGraph, PublisherS3:
	default:
		errs = append(errs, fmt.Errorf("unknown publisher %q", c.Publisher.Name))
	}
	switch c.Publisher.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("publisher.format must be json or text, got %q", c.Publisher.Format))
	}
	return errors.Join(errs...)
}

// Engine returns the extraction engine configuration.
func (c *Config) Engine() extract.Config {
	return extract.Config{
		ProjectThreshold:  c.Extraction.ProjectThreshold,
		PriorityThreshold: c.Extraction.PriorityThreshold,
		BugTypeThreshold:  c.Extraction.BugTypeThreshold,
		VerboseLogging:    c.Extraction.Verbose,
	}
}

// GraphConfigured returns true if the Graph credentials, sender and at least
// one recipient are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != "" &&
		len(c.Graph.Recipients) > 0
}

// SESConfigured returns true if region, sender and at least one recipient
// are set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != "" && len(c.SES.Recipients) > 0
}

// S3Configured returns true if region and bucket are set.
func (c *Config) S3Configured() bool {
	return c.S3.Region != "" && c.S3.Bucket != ""
}

// AuthEnabled returns true if both SMTP username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	engine := extract.DefaultConfig()
	c.Extraction.ProjectThreshold = engine.ProjectThreshold
	c.Extraction.PriorityThreshold = engine.PriorityThreshold
	c.Extraction.BugTypeThreshold = engine.BugTypeThreshold

	c.Intake.Workers = 4
	c.Intake.Extensions = []string{".eml", ".txt", ".msg"}

	c.SMTP.Listen = ":2525"
	c.SMTP.Hostname = "localhost"
	c.SMTP.MaxMessageSize = defaultMaxMessageSize

	c.Publisher.Format = "json"
	c.S3.Prefix = "tickets/"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values; numbers
// that fail to parse are ignored.
func (c *Config) applyEnvVars() {
	setFloat("PROJECT_THRESHOLD", &c.Extraction.ProjectThreshold)
	setFloat("PRIORITY_THRESHOLD", &c.Extraction.PriorityThreshold)
	setFloat("BUGTYPE_THRESHOLD", &c.Extraction.BugTypeThreshold)
	if v := env("VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Extraction.Verbose = b
		}
	}
	setString("DICTIONARY", &c.Extraction.DictionaryFile)
	setString("CONTRIBUTORS", &c.Registry.File)

	if v := env("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Intake.Workers = n
		}
	}
	setList("ALLOWED_PROJECTS", &c.Intake.AllowedProjects)

	setString("SMTP_LISTEN", &c.SMTP.Listen)
	setString("SMTP_HOSTNAME", &c.SMTP.Hostname)
	setString("SMTP_USERNAME", &c.SMTP.Username)
	setString("SMTP_PASSWORD", &c.SMTP.Password)
	if v := env("SMTP_MAX_MESSAGE_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SMTP.MaxMessageSize = size
		}
	}

	setString("TLS_CERT_FILE", &c.TLS.CertFile)
	setString("TLS_KEY_FILE", &c.TLS.KeyFile)

	if v := env("PUBLISHER"); v != "" {
		c.Publisher.Name = strings.ToLower(v)
	}
	if v := env("OUTPUT_FORMAT"); v != "" {
		c.Publisher.Format = strings.ToLower(v)
	}

	setString("SES_REGION", &c.SES.Region)
	setString("SES_ACCESS_KEY_ID", &c.SES.AccessKeyID)
	setString("SES_SECRET_ACCESS_KEY", &c.SES.SecretAccessKey)
	setString("SES_SENDER", &c.SES.Sender)
	setList("SES_RECIPIENTS", &c.SES.Recipients)

	setString("GRAPH_TENANT_ID", &c.Graph.TenantID)
	setString("GRAPH_CLIENT_ID", &c.Graph.ClientID)
	setString("GRAPH_CLIENT_SECRET", &c.Graph.ClientSecret)
	setString("GRAPH_SENDER", &c.Graph.Sender)
	setList("GRAPH_RECIPIENTS", &c.Graph.Recipients)

	setString("S3_REGION", &c.S3.Region)
	setString("S3_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	setString("S3_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)
	setString("S3_BUCKET", &c.S3.Bucket)
	setString("S3_PREFIX", &c.S3.Prefix)

	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func setString(name string, dst *string) {
	if v := env(name); v != "" {
		*dst = v
	}
}

func setFloat(name string, dst *float64) {
	if v := env(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// setList splits a comma-separated value.
func setList(name string, dst *[]string) {
	v := env(name)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
