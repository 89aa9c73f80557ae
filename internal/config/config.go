package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// DefaultSourceURL is the live nflverse schedule file. Its column set grows
// over time; schedule.Layout accepts additions.
const DefaultSourceURL = "https://raw.githubusercontent.com/nflverse/nfldata/master/data/games.csv"

var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

// Config is everything a run needs. Only DatabaseURL is mandatory.
type Config struct {
	DatabaseURL string        `mapstructure:"database_url"`
	SourceURL   string        `mapstructure:"source_url"`
	TempDir     string        `mapstructure:"temp_dir"`     // empty means os.TempDir()
	HTTPTimeout time.Duration `mapstructure:"http_timeout"` // 0 disables the timeout
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"` // text or json
}

// Load reads .env (if present), then the optional nflsync.yaml, then the
// environment. DATABASE_URL is read as-is; every other key can be overridden
// with an NFLSYNC_ prefixed variable, e.g. NFLSYNC_SOURCE_URL.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetDefault("database_url", "")
	v.SetDefault("source_url", DefaultSourceURL)
	v.SetDefault("temp_dir", "")
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("NFLSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("binding DATABASE_URL: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("nflsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the config before any work is done.
func (c *Config) Validate() error {
	if c == nil || strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	u, err := url.Parse(c.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source_url %q: %w", c.SourceURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source_url must be http or https, got %q", c.SourceURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()

	level := c.LogLevel
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	logger.SetLevel(lvl)

	switch c.LogFormat {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	return logger, nil
}
