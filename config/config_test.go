package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("expected 0.0.0.0:8000, got %s", cfg.Addr())
	}
	if cfg.Version != DefaultVersion {
		t.Errorf("expected version %s, got %s", DefaultVersion, cfg.Version)
	}
	if cfg.Database.Enabled() {
		t.Error("history should be disabled by default")
	}
	if cfg.Spaces.Enabled() {
		t.Error("archive should be disabled by default")
	}
	if cfg.Analysis.DefaultListLimit != 20 || cfg.Analysis.MaxListLimit != 100 {
		t.Errorf("unexpected history limits: %+v", cfg.Analysis)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "20s")
	t.Setenv("DB_PATH", "/tmp/swings.db")
	t.Setenv("RATE_LIMIT_RPM", "120")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SPACES_BUCKET", "swings")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected 9090, got %s", cfg.Port)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Errorf("expected 20s, got %s", cfg.WriteTimeout)
	}
	if !cfg.Database.Enabled() || cfg.Database.Path != "/tmp/swings.db" {
		t.Errorf("expected /tmp/swings.db, got %s", cfg.Database.Path)
	}
	if cfg.RateLimit.RequestsPerMinute != 120 {
		t.Errorf("expected 120, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.CORS.AllowedOrigins)
	}
	if cfg.Spaces.Bucket != "swings" {
		t.Errorf("expected bucket swings, got %s", cfg.Spaces.Bucket)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
port: "7000"
read_timeout: 5s
log:
  level: debug
  format: text
database:
  path: /var/lib/swings.db
analysis:
  max_list_limit: 50
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "7100" {
		t.Errorf("env should override file, got port %s", cfg.Port)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("expected 5s from file, got %s", cfg.ReadTimeout)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Database.Path != "/var/lib/swings.db" {
		t.Errorf("unexpected database path %s", cfg.Database.Path)
	}
	if cfg.Analysis.MaxListLimit != 50 || cfg.Analysis.DefaultListLimit != 20 {
		t.Errorf("file should only override named keys, got %+v", cfg.Analysis)
	}
	if cfg.WriteTimeout != 15*time.Second {
		t.Errorf("expected default write timeout, got %s", cfg.WriteTimeout)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("SWING_TEST_HOST=127.0.0.1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("SWING_TEST_HOST", "")
	os.Unsetenv("SWING_TEST_HOST")

	if _, err := Load(""); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("SWING_TEST_HOST"); got != "127.0.0.1" {
		t.Errorf("expected env file to be loaded, got %q", got)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"non numeric port", func(c *Config) { c.Port = "http" }, true},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, true},
		{"default timeouts with timeout middleware", func(c *Config) { c.Middleware.EnableTimeout = true }, false},
		{"request timeout equals write timeout", func(c *Config) {
			c.Middleware.EnableTimeout = true
			c.RequestTimeout = c.WriteTimeout
		}, true},
		{"request timeout shorter than write timeout", func(c *Config) {
			c.Middleware.EnableTimeout = true
			c.RequestTimeout = c.WriteTimeout - time.Second
		}, false},
		{"request timeout ignored without timeout middleware", func(c *Config) {
			c.Middleware.EnableTimeout = false
			c.RequestTimeout = 2 * c.WriteTimeout
		}, false},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, true},
		{"rate limit without rpm", func(c *Config) {
			c.Middleware.EnableRateLimit = true
			c.RateLimit.RequestsPerMinute = 0
		}, true},
		{"default above max", func(c *Config) { c.Analysis.DefaultListLimit = 200 }, true},
		{"zero body size", func(c *Config) { c.Analysis.MaxBodyBytes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
