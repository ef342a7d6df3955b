package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	ActionLog ActionLogConfig `yaml:"action_log"`
	Auth      AuthConfig      `yaml:"auth"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`   // Default: :8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"` // Default: 120s, stage runs are synchronous
}

// DatabaseConfig contains SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // Default: outreach.db
}

// ActionLogConfig contains audit log settings
type ActionLogConfig struct {
	Path string `yaml:"path"` // Default: actions.db
}

// AuthConfig contains API authentication settings
type AuthConfig struct {
	// Bcrypt hash of the API key, generated with the apikey command
	APIKeyHash string `yaml:"api_key_hash"`
}

// ProvidersConfig selects and configures external providers
type ProvidersConfig struct {
	Search SearchConfig `yaml:"search"`
	Hunter HunterConfig `yaml:"hunter"`
	Gemini GeminiConfig `yaml:"gemini"`
	Mail   MailConfig   `yaml:"mail"`
}

// SearchConfig contains web search API settings
type SearchConfig struct {
	APIKey string `yaml:"api_key"`
}

// HunterConfig contains email-finder API settings
type HunterConfig struct {
	APIKey string `yaml:"api_key"`
}

// GeminiConfig contains generation model settings
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: gemini-2.0-flash
}

// MailConfig selects the mail provider: gmail or smtp
type MailConfig struct {
	Provider string      `yaml:"provider"` // Default: smtp
	From     string      `yaml:"from"`
	Gmail    GmailConfig `yaml:"gmail"`
	SMTP     SMTPConfig  `yaml:"smtp"`
}

// GmailConfig contains Gmail OAuth settings
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
}

// SMTPConfig contains relay and DKIM settings
type SMTPConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"` // Default: 587
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	Timeout    time.Duration `yaml:"timeout"`     // Default: 30s
	DraftStore string        `yaml:"draft_store"` // Default: drafts.db
	DKIM       DKIMConfig    `yaml:"dkim"`
}

// DKIMConfig contains message signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"` // Default: default
	KeyFile  string `yaml:"key_file"`
}

// PipelineConfig contains stage execution settings
type PipelineConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Default: 10s, per page fetch
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Default: /metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand ${VAR} references so secrets can live in the environment
	data = []byte(os.ExpandEnv(string(data)))

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "outreach.db"
	}
	if c.ActionLog.Path == "" {
		c.ActionLog.Path = "actions.db"
	}

	if c.Providers.Gemini.Model == "" {
		c.Providers.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Providers.Mail.Provider == "" {
		c.Providers.Mail.Provider = "smtp"
	}
	if c.Providers.Mail.SMTP.Port == 0 {
		c.Providers.Mail.SMTP.Port = 587
	}
	if c.Providers.Mail.SMTP.Timeout == 0 {
		c.Providers.Mail.SMTP.Timeout = 30 * time.Second
	}
	if c.Providers.Mail.SMTP.DraftStore == "" {
		c.Providers.Mail.SMTP.DraftStore = "drafts.db"
	}
	if c.Providers.Mail.SMTP.DKIM.Selector == "" {
		c.Providers.Mail.SMTP.DKIM.Selector = "default"
	}

	if c.Pipeline.FetchTimeout == 0 {
		c.Pipeline.FetchTimeout = 10 * time.Second
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Providers.Mail.Provider {
	case "smtp":
		if c.Providers.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail provider is smtp but smtp.host is not set")
		}
	case "gmail":
		if c.Providers.Mail.Gmail.ClientID == "" || c.Providers.Mail.Gmail.ClientSecret == "" {
			return fmt.Errorf("mail provider is gmail but OAuth credentials are not set")
		}
		if c.Providers.Mail.Gmail.TokenFile == "" {
			return fmt.Errorf("mail provider is gmail but gmail.token_file is not set")
		}
	default:
		return fmt.Errorf("unknown mail provider: %s", c.Providers.Mail.Provider)
	}

	if c.Providers.Mail.From == "" {
		return fmt.Errorf("mail.from is required")
	}

	dkim := c.Providers.Mail.SMTP.DKIM
	if dkim.Enabled {
		if dkim.Domain == "" {
			return fmt.Errorf("dkim is enabled but dkim.domain is not set")
		}
		if dkim.KeyFile == "" {
			return fmt.Errorf("dkim is enabled but dkim.key_file is not set")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s", c.Logging.Format)
	}

	return nil
}
