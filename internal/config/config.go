// Package config assembles the sqlai configuration once at startup.
// Non-secret settings live in a YAML file in the XDG config dir; secrets (DSN,
// API keys) come from the environment, a local .env file or the OS keychain and
// are never written back to disk by this package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sqlai/cli/internal/xdg"

	"gopkg.in/yaml.v3"
)

// LookupFunc reads a single configuration key, like os.LookupEnv.
type LookupFunc func(string) (string, bool)

// EnvironFunc lists every configuration key=value pair, like os.Environ.
type EnvironFunc func() []string

const (
	EmptyQuerySkip   = "skip"
	EmptyQuerySubmit = "submit"

	OutputTable = "table"
	OutputJSON  = "json"
)

// Config holds the settings for one run. It is passed by value into the components.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LogJSON    bool             `yaml:"log_json"`
	Database   DatabaseConfig   `yaml:"database"`
	Completion CompletionConfig `yaml:"completion"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	DSN              string        `yaml:"-"`
	DSNSource        string        `yaml:"-"`
	Schema           string        `yaml:"schema"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// CompletionConfig holds settings for the chat-completion service.
type CompletionConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// APIKeys is the ordered credential list tried by the rotator.
	APIKeys []string `yaml:"-"`
}

// ExecutionConfig controls what happens with the generated statement.
type ExecutionConfig struct {
	EmptyQuery  string `yaml:"empty_query"`
	FailOnError bool   `yaml:"fail_on_error"`
	Commit      bool   `yaml:"commit"`
	Output      string `yaml:"output"`
}

// MetricsTextfileAuto as the textfile path selects metrics.prom in the XDG state dir.
const MetricsTextfileAuto = "auto"

// MetricsConfig controls the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// ResolvedTextfilePath returns where metrics are written, or "" when disabled.
func (m MetricsConfig) ResolvedTextfilePath() (string, error) {
	path := strings.TrimSpace(m.TextfilePath)
	if path != MetricsTextfileAuto {
		return path, nil
	}
	dir, err := xdg.StateDir()
	if err != nil {
		return "", fmt.Errorf("locate state dir: %w", err)
	}
	return filepath.Join(dir, "metrics.prom"), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Schema:           "public",
			ConnectTimeout:   10 * time.Second,
			StatementTimeout: 60 * time.Second,
		},
		Completion: CompletionConfig{
			BaseURL:        "https://api.aimlapi.com/v1",
			Model:          "mistralai/Mistral-7B-Instruct-v0.2",
			Temperature:    0.7,
			MaxTokens:      256,
			AttemptTimeout: 30 * time.Second,
		},
		Execution: ExecutionConfig{
			EmptyQuery: EmptyQuerySkip,
			Commit:     true,
			Output:     OutputTable,
		},
	}
}

// Path returns the path to the YAML config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load builds a Config from defaults, the YAML file at path (a missing file is
// not an error) and the given environment.
func Load(path string, lookup LookupFunc, environ EnvironFunc) (Config, error) {
	return load(path, false, lookup, environ)
}

// LoadExplicit is Load for a path the user named; the file must exist.
func LoadExplicit(path string, lookup LookupFunc, environ EnvironFunc) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, fmt.Errorf("config path is empty")
	}
	return load(path, true, lookup, environ)
}

func load(path string, required bool, lookup LookupFunc, environ EnvironFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	cfg := Default()
	if path != "" {
		if err := readFile(path, required, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup, environ); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, required bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Save writes the non-secret part of cfg with 0600 permissions.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Validate checks enumerated and numeric settings.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Execution.EmptyQuery {
	case EmptyQuerySkip, EmptyQuerySubmit:
	default:
		return fmt.Errorf("invalid empty_query policy %q (want %s or %s)", c.Execution.EmptyQuery, EmptyQuerySkip, EmptyQuerySubmit)
	}
	switch c.Execution.Output {
	case OutputTable, OutputJSON:
	default:
		return fmt.Errorf("invalid output %q (want %s or %s)", c.Execution.Output, OutputTable, OutputJSON)
	}
	if strings.TrimSpace(c.Completion.BaseURL) == "" {
		return fmt.Errorf("completion base URL is required")
	}
	if strings.TrimSpace(c.Completion.Model) == "" {
		return fmt.Errorf("completion model is required")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.Completion.MaxTokens)
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Completion.Temperature)
	}
	if strings.TrimSpace(c.Database.Schema) == "" {
		return fmt.Errorf("database schema is required")
	}
	return nil
}
