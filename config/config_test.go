package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.UserID = "user"
	cfg.Password = "pass"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: "base URL"},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "/relative/only" }, wantErr: "host"},
		{name: "missing user", mutate: func(c *Config) { c.UserID = "" }, wantErr: "login user"},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantErr: "login password"},
		{name: "missing state path", mutate: func(c *Config) { c.StatePath = "" }, wantErr: "state path"},
		{name: "missing output file", mutate: func(c *Config) { c.OutputFile = "" }, wantErr: "output file"},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: "output format"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "negative settle delay", mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: "settle delay"},
		{name: "zero fetch retries", mutate: func(c *Config) { c.FetchRetries = 0 }, wantErr: "fetch retries"},
		{name: "zero login retries", mutate: func(c *Config) { c.LoginRetries = 0 }, wantErr: "login retries"},
		{name: "negative retry delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }, wantErr: "retry delay"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, wantErr: "user agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

const sampleFile = `{
	// credentials for the order-history account
	login: {
		user: "alice",
		pass: "s3cret",
	},
	base_dir: "/srv/mohist",
	data: {
		cache: {
			order: "data/cache/order.json",
			thumb: "data/cache/thumb",
		},
		debug: "data/debug",
	},
	output: {
		file: "output/history.csv",
		format: "DUAL",
	},
	crawl: {
		settle_delay_sec: 2,
		timeout_sec: 30,
	},
}`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	if err := os.WriteFile(path, []byte(sampleFile), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.UserID != "alice" || cfg.Password != "s3cret" {
		t.Fatalf("credentials = %q / %q", cfg.UserID, cfg.Password)
	}
	if cfg.StatePath != "/srv/mohist/data/cache/order.json" {
		t.Fatalf("state path = %q", cfg.StatePath)
	}
	if cfg.OutputFile != "/srv/mohist/output/history.csv" {
		t.Fatalf("output file = %q", cfg.OutputFile)
	}
	if cfg.OutputFormat != "dual" {
		t.Fatalf("output format = %q", cfg.OutputFormat)
	}
	if cfg.SettleDelay != 2*time.Second || cfg.Timeout != 30*time.Second {
		t.Fatalf("durations = %v / %v", cfg.SettleDelay, cfg.Timeout)
	}
}

func TestLoadFileLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	if err := os.WriteFile(path, []byte(sampleFile), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	local := `{
	login: { pass: "local-secret" },
	output: { format: "json" },
}`
	if err := os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(local), 0o644); err != nil {
		t.Fatalf("write local config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("load file: %v", err)
	}

	// the local file wins where it speaks, the base file fills the rest
	if cfg.Password != "local-secret" {
		t.Fatalf("password = %q, want local override", cfg.Password)
	}
	if cfg.UserID != "alice" {
		t.Fatalf("user = %q, want base value", cfg.UserID)
	}
	if cfg.OutputFormat != "json" {
		t.Fatalf("output format = %q, want local override", cfg.OutputFormat)
	}
	if cfg.StatePath != "/srv/mohist/data/cache/order.json" {
		t.Fatalf("state path = %q, want base value", cfg.StatePath)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFile(cfg, filepath.Join(t.TempDir(), "absent.json5")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"config.json5", "config.local.json5"},
		{"etc/app.json", "etc/app.local.json"},
		{"noext", "noext.local"},
	}
	for _, tt := range tests {
		if got := localName(tt.in); got != tt.want {
			t.Fatalf("localName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("MOHIST_TEST_INT", "42")
	v, ok, err := EnvInt("MOHIST_TEST_INT")
	if err != nil || !ok || v != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", v, ok, err)
	}

	t.Setenv("MOHIST_TEST_INT", "not-a-number")
	if _, _, err := EnvInt("MOHIST_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, _ := EnvInt("MOHIST_TEST_INT_ABSENT"); ok {
		t.Fatalf("absent variable reported present")
	}
}
