// Package config loads the application settings shared by the binaries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultPath is read when no path is given.
const DefaultPath = "config/app.yaml"

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Addr        string `yaml:"addr"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`
	// Report holds the defaults applied to requests that leave them unset.
	Report ReportConfig `yaml:"report"`
}

type ReportConfig struct {
	AgeStep int `yaml:"age_step"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Report:   ReportConfig{AgeStep: 5},
	}
}

// Load reads .env (if present), then the YAML file at path, then the
// DATABASE_URL, GA_ADDR and GA_LOG_LEVEL environment variables. A missing
// file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GA_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("GA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	if cfg.Report.AgeStep <= 0 {
		return Config{}, fmt.Errorf("%w: report.age_step must be positive", ErrInvalidConfig)
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}
