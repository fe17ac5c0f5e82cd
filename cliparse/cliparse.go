package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Store types
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
	StoreMemory   = "memory"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseURL   string
	StoreType string
	StoreURL  string
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
	EnvFile   string
}

// BindFlags registers the configuration flags on fs, writing into cfg
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.BaseURL, "base-url", "u", "", "API base URL")
	fs.StringVarP(&cfg.StoreType, "store", "s", "", "Local store type (sqlite, postgres, bolt, memory)")
	fs.StringVar(&cfg.StoreURL, "store-url", "", "Local store path or DSN")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Per-request HTTP timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "Dotenv file to load (default: .env if present)")
}

// ParseFlags parses args and resolves the result against the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := pflag.NewFlagSet("abri", pflag.ContinueOnError)
	BindFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Resolve(cfg)
}

// Resolve fills unset fields from the environment (after loading the dotenv
// file) and defaults, then validates the result. Flags win over environment
// variables, which win over the dotenv file.
func Resolve(cfg Config) (Config, error) {
	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return Config{}, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("ABRI_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.StoreType == "" {
		cfg.StoreType = os.Getenv("ABRI_STORE_TYPE")
		if cfg.StoreType == "" {
			cfg.StoreType = StoreSQLite
		}
	}
	switch cfg.StoreType {
	case StoreSQLite, StorePostgres, StoreBolt, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown store type %q (use sqlite, postgres, bolt or memory)", cfg.StoreType)
	}

	if cfg.StoreURL == "" {
		cfg.StoreURL = os.Getenv("ABRI_STORE_URL")
	}
	if cfg.StoreURL == "" {
		switch cfg.StoreType {
		case StoreSQLite:
			cfg.StoreURL = filepath.Join(configDir(), "abri.db")
		case StoreBolt:
			cfg.StoreURL = filepath.Join(configDir(), "abri.bolt")
		case StorePostgres:
			return Config{}, errors.New("store URL required for postgres (use --store-url or ABRI_STORE_URL)")
		}
	}

	if cfg.Timeout == 0 {
		if s := os.Getenv("ABRI_TIMEOUT"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return Config{}, errors.New("invalid ABRI_TIMEOUT env variable")
			}
			cfg.Timeout = d
		} else {
			cfg.Timeout = DefaultTimeout
		}
	}
	if cfg.Timeout < 0 {
		return Config{}, errors.New("timeout must be positive")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("ABRI_LOG_LEVEL")
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = os.Getenv("ABRI_LOG_FORMAT")
		if cfg.LogFormat == "" {
			cfg.LogFormat = "text"
		}
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("invalid log format %q (use text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// loadEnvFile loads path, or .env when path is empty and the file exists.
// Variables already present in the environment are kept.
func loadEnvFile(path string) error {
	if path == "" {
		path = os.Getenv("ABRI_ENV_FILE")
	}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".abri"
	}
	return filepath.Join(dir, "abri")
}
