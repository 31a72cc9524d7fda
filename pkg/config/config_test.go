package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://quantlab@localhost/quantlab")

	cfg, err := LoadConfig(Options{})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("Expected driver postgres, got %s", cfg.DatabaseDriver)
	}
	if cfg.Provider != "yahoo" {
		t.Errorf("Expected provider yahoo, got %s", cfg.Provider)
	}
	if cfg.LookbackDays != 30 {
		t.Errorf("Expected 30 lookback days, got %d", cfg.LookbackDays)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("Expected 10s provider timeout, got %v", cfg.ProviderTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "DATABASE_URL=file:quantlab.db\nDATABASE_DRIVER=SQLite\nLOOKBACK_DAYS=5\nPROVIDER_TIMEOUT=3s\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set; make sure
	// these are unset and restored afterwards.
	for _, key := range []string{"DATABASE_URL", "DATABASE_DRIVER", "LOOKBACK_DAYS", "PROVIDER_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig(Options{EnvFile: envFile})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DatabaseURL != "file:quantlab.db" {
		t.Errorf("Expected DATABASE_URL from .env, got %q", cfg.DatabaseURL)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("Expected lower-cased driver sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.LookbackDays != 5 {
		t.Errorf("Expected 5 lookback days, got %d", cfg.LookbackDays)
	}
	if cfg.ProviderTimeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", cfg.ProviderTimeout)
	}
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	if _, err := LoadConfig(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err != nil {
		t.Fatalf("Expected missing .env to be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{DatabaseURL: "postgres://x", DatabaseDriver: "postgres", IngestConcurrency: 1}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.DatabaseURL = "" }, true},
		{"bad driver", func(c *Config) { c.DatabaseDriver = "mysql" }, true},
		{"zero concurrency", func(c *Config) { c.IngestConcurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !stderrors.Is(err, apperrors.ErrConfig) {
				t.Errorf("Expected config error, got %v", err)
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	if got := (Config{HTTPPort: "9090"}).ListenAddr(); got != ":9090" {
		t.Errorf("Expected :9090, got %s", got)
	}
	if got := (Config{HTTPPort: "127.0.0.1:9090"}).ListenAddr(); got != "127.0.0.1:9090" {
		t.Errorf("Expected 127.0.0.1:9090, got %s", got)
	}
}
