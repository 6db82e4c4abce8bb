package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LegacyKeyPrefix marks variables that older deployments used for API keys.
const LegacyKeyPrefix = "API_KEY_"

// legacyDSNKey held the database URL in older deployments and is never a credential.
const legacyDSNKey = "API_KEY_NEON_DB"

// LoadDotEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc, environ EnvironFunc) error {
	if err := applyString(lookup, "SQLAI_LOG_LEVEL", &cfg.LogLevel); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLAI_LOG_JSON", &cfg.LogJSON); err != nil {
		return err
	}
	for _, key := range []string{"SQLAI_DSN", "DATABASE_URL", legacyDSNKey} {
		if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
			cfg.Database.DSN = strings.TrimSpace(raw)
			cfg.Database.DSNSource = key
			break
		}
	}
	if err := applyString(lookup, "SQLAI_DB_SCHEMA", &cfg.Database.Schema); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLAI_DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLAI_DB_STATEMENT_TIMEOUT", &cfg.Database.StatementTimeout); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLAI_BASE_URL", &cfg.Completion.BaseURL); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLAI_MODEL", &cfg.Completion.Model); err != nil {
		return err
	}
	if err := applyFloat32(lookup, "SQLAI_TEMPERATURE", &cfg.Completion.Temperature); err != nil {
		return err
	}
	if err := applyInt(lookup, "SQLAI_MAX_TOKENS", &cfg.Completion.MaxTokens); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLAI_ATTEMPT_TIMEOUT", &cfg.Completion.AttemptTimeout); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLAI_EMPTY_QUERY", &cfg.Execution.EmptyQuery); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLAI_FAIL_ON_ERROR", &cfg.Execution.FailOnError); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLAI_COMMIT", &cfg.Execution.Commit); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLAI_OUTPUT", &cfg.Execution.Output); err != nil {
		return err
	}
	if err := applyString(lookup, "SQLAI_METRICS_FILE", &cfg.Metrics.TextfilePath); err != nil {
		return err
	}

	cfg.Completion.APIKeys = Credentials(lookup, environ, nil)
	return nil
}

// Credentials returns the API keys in rotation order: SQLAI_API_KEYS as listed,
// then stored (keychain) keys, then legacy API_KEY_* variables.
func Credentials(lookup LookupFunc, environ EnvironFunc, stored []string) []string {
	var explicit []string
	if raw, ok := lookup("SQLAI_API_KEYS"); ok {
		explicit = splitList(raw)
	}
	return MergeCredentials(explicit, stored, LegacyCredentials(environ))
}

// LegacyCredentials returns the values of API_KEY_* variables ordered by variable name.
// The database URL variable that shares the prefix is excluded.
func LegacyCredentials(environ EnvironFunc) []string {
	if environ == nil {
		return nil
	}
	type pair struct{ key, value string }
	var found []pair
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, LegacyKeyPrefix) || key == legacyDSNKey {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			found = append(found, pair{key, value})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].key < found[j].key })
	out := make([]string, 0, len(found))
	for _, p := range found {
		out = append(out, p.value)
	}
	return out
}

// MergeCredentials concatenates credential lists, dropping blanks and
// duplicates. The first occurrence keeps its position.
func MergeCredentials(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, key := range list {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q", raw)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat32(lookup LookupFunc, key string, dst *float32) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = float32(value)
	return nil
}
