package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
)

// Log modes understood by the logging package.
const (
	LogModeDev  = "dev"
	LogModeProd = "prod"
	LogModeELK  = "elk"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL             string
	DatabaseDriver          string
	DatabaseMaxOpenConns    int
	DatabaseMaxIdleConns    int
	DatabaseConnMaxLifetime time.Duration
	DatabaseConnectTimeout  time.Duration

	Provider        string
	ProviderBaseURL string
	ProviderTimeout time.Duration
	ProviderAPIKey  string
	ProviderDataDir string

	LookbackDays      int
	IngestConcurrency int

	HTTPPort       string
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int

	LogMode string
	LogFile string
}

// Options control where configuration is read from.
type Options struct {
	// EnvFile is loaded into the process environment if it exists.
	EnvFile string
	// ConfigFile is an optional yaml/json/toml file read by viper.
	ConfigFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("DATABASE_CONNECT_TIMEOUT", 30*time.Second)
	v.SetDefault("PROVIDER", "yahoo")
	v.SetDefault("PROVIDER_DATA_DIR", "data")
	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)
	v.SetDefault("LOOKBACK_DAYS", 30)
	v.SetDefault("INGEST_CONCURRENCY", 4)
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("LOG_LEVEL", LogModeDev)
	v.SetDefault("LOG_FILE", "logs/quantlab.log")
}

// LoadConfig loads configuration from the environment, an optional .env file
// and an optional config file. Environment variables win over the file.
func LoadConfig(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, apperrors.ErrConfig.WithCause(fmt.Errorf("load %s: %w", opts.EnvFile, err))
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, apperrors.ErrConfig.WithCause(fmt.Errorf("read %s: %w", opts.ConfigFile, err))
		}
	}

	cfg := Config{
		DatabaseURL:             v.GetString("DATABASE_URL"),
		DatabaseDriver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseMaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
		DatabaseMaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
		DatabaseConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		DatabaseConnectTimeout:  v.GetDuration("DATABASE_CONNECT_TIMEOUT"),
		Provider:                strings.ToLower(v.GetString("PROVIDER")),
		ProviderBaseURL:         v.GetString("PROVIDER_BASE_URL"),
		ProviderTimeout:         v.GetDuration("PROVIDER_TIMEOUT"),
		ProviderAPIKey:          v.GetString("PROVIDER_API_KEY"),
		ProviderDataDir:         v.GetString("PROVIDER_DATA_DIR"),
		LookbackDays:            v.GetInt("LOOKBACK_DAYS"),
		IngestConcurrency:       v.GetInt("INGEST_CONCURRENCY"),
		HTTPPort:                v.GetString("HTTP_PORT"),
		APIKey:                  v.GetString("API_KEY"),
		RateLimitRPS:            v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:          v.GetInt("RATE_LIMIT_BURST"),
		LogMode:                 strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFile:                 v.GetString("LOG_FILE"),
	}

	return cfg, nil
}

// Validate reports the first setting that prevents the service from starting.
func (c Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return apperrors.ErrConfig.WithDetails("DATABASE_URL is required")
	case c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite":
		return apperrors.ErrConfig.WithDetails(fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	case c.IngestConcurrency < 1:
		return apperrors.ErrConfig.WithDetails("INGEST_CONCURRENCY must be at least 1")
	}
	return nil
}

// ListenAddr returns the HTTP listen address for the configured port.
func (c Config) ListenAddr() string {
	if strings.Contains(c.HTTPPort, ":") {
		return c.HTTPPort
	}
	return ":" + c.HTTPPort
}
