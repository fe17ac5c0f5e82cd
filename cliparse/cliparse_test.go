// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("ABRI_BASE_URL", "https://api.example.org/")
	t.Setenv("ABRI_STORE_TYPE", "memory")
	t.Setenv("ABRI_TIMEOUT", "5s")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BaseURL != "https://api.example.org" {
		t.Errorf("expected trimmed base URL, got %q", cfg.BaseURL)
	}
	if cfg.StoreType != StoreMemory {
		t.Errorf("expected memory store, got %q", cfg.StoreType)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Timeout)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("ABRI_BASE_URL", "https://env.example.org")

	cfg, err := ParseFlags([]string{"-u", "https://flag.example.org", "-s", "bolt", "--store-url", "x.bolt", "--timeout", "2s"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.BaseURL != "https://flag.example.org" {
		t.Errorf("CLI should override env: got %q", cfg.BaseURL)
	}
	if cfg.StoreURL != "x.bolt" {
		t.Errorf("expected store url x.bolt, got %q", cfg.StoreURL)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := ParseFlags([]string{"--store", "memory"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", cfg.Timeout)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("unexpected log defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad store", []string{"--store", "redis"}},
		{"bad url", []string{"-u", "not a url"}},
		{"postgres without dsn", []string{"--store", "postgres"}},
		{"bad log level", []string{"--store", "memory", "--log-level", "loud"}},
		{"bad log format", []string{"--store", "memory", "--log-format", "xml"}},
		{"missing env file", []string{"--store", "memory", "--env-file", "/nonexistent/.env"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abri.env")
	if err := os.WriteFile(path, []byte("ABRI_STORE_TYPE=memory\nABRI_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Already-set variables win over the file.
	t.Setenv("ABRI_LOG_LEVEL", "warn")
	t.Setenv("ABRI_STORE_TYPE", "")
	os.Unsetenv("ABRI_STORE_TYPE")

	cfg, err := ParseFlags([]string{"--env-file", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.StoreType != StoreMemory {
		t.Errorf("expected store type from env file, got %q", cfg.StoreType)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected process env to win, got %q", cfg.LogLevel)
	}
}
