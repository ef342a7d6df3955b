package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9090"
  write_timeout: 180s

database:
  path: "/tmp/outreach-test.db"

providers:
  search:
    api_key: "search-key"
  hunter:
    api_key: "hunter-key"
  gemini:
    api_key: "gemini-key"
  mail:
    provider: smtp
    from: "outreach@test.com"
    smtp:
      host: "smtp.test.com"
      username: "relay"
      password: "secret"

logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("expected listen addr :9090, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.WriteTimeout != 180*time.Second {
		t.Errorf("expected write timeout 180s, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Path != "/tmp/outreach-test.db" {
		t.Errorf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Providers.Mail.SMTP.Host != "smtp.test.com" {
		t.Errorf("unexpected smtp host: %s", cfg.Providers.Mail.SMTP.Host)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  mail:
    provider: smtp
    from: "outreach@test.com"
    smtp:
      host: "smtp.test.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Path != "outreach.db" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.ActionLog.Path != "actions.db" {
		t.Errorf("expected default action log path, got %s", cfg.ActionLog.Path)
	}
	if cfg.Providers.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("expected default gemini model, got %s", cfg.Providers.Gemini.Model)
	}
	if cfg.Providers.Mail.SMTP.Port != 587 {
		t.Errorf("expected default smtp port, got %d", cfg.Providers.Mail.SMTP.Port)
	}
	if cfg.Providers.Mail.SMTP.Timeout != 30*time.Second {
		t.Errorf("expected default smtp timeout, got %v", cfg.Providers.Mail.SMTP.Timeout)
	}
	if cfg.Providers.Mail.SMTP.DKIM.Selector != "default" {
		t.Errorf("expected default dkim selector, got %s", cfg.Providers.Mail.SMTP.DKIM.Selector)
	}
	if cfg.Pipeline.FetchTimeout != 10*time.Second {
		t.Errorf("expected default fetch timeout, got %v", cfg.Pipeline.FetchTimeout)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected default metrics path, got %s", cfg.Metrics.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected default logging config: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"unknown mail provider",
			`
providers:
  mail:
    provider: sendgrid
    from: "outreach@test.com"
`,
		},
		{
			"smtp without host",
			`
providers:
  mail:
    provider: smtp
    from: "outreach@test.com"
`,
		},
		{
			"gmail without credentials",
			`
providers:
  mail:
    provider: gmail
    from: "outreach@test.com"
`,
		},
		{
			"missing from address",
			`
providers:
  mail:
    provider: smtp
    smtp:
      host: "smtp.test.com"
`,
		},
		{
			"dkim without key file",
			`
providers:
  mail:
    provider: smtp
    from: "outreach@test.com"
    smtp:
      host: "smtp.test.com"
      dkim:
        enabled: true
        domain: "test.com"
`,
		},
		{
			"bad log level",
			`
providers:
  mail:
    provider: smtp
    from: "outreach@test.com"
    smtp:
      host: "smtp.test.com"
logging:
  level: verbose
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
