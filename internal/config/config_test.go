package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func environOf(pairs ...string) EnvironFunc {
	return func() []string { return pairs }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", mapLookup(nil), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.Model != "mistralai/Mistral-7B-Instruct-v0.2" {
		t.Fatalf("Model = %q", cfg.Completion.Model)
	}
	if cfg.Completion.Temperature != 0.7 {
		t.Fatalf("Temperature = %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxTokens != 256 {
		t.Fatalf("MaxTokens = %d", cfg.Completion.MaxTokens)
	}
	if cfg.Execution.EmptyQuery != EmptyQuerySkip {
		t.Fatalf("EmptyQuery = %q", cfg.Execution.EmptyQuery)
	}
	if cfg.Database.Schema != "public" {
		t.Fatalf("Schema = %q", cfg.Database.Schema)
	}
	if len(cfg.Completion.APIKeys) != 0 {
		t.Fatalf("APIKeys = %v", cfg.Completion.APIKeys)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load("", mapLookup(map[string]string{
		"SQLAI_LOG_LEVEL":       "debug",
		"SQLAI_MODEL":           " gpt-4o-mini ",
		"SQLAI_TEMPERATURE":     "0.2",
		"SQLAI_MAX_TOKENS":      "512",
		"SQLAI_ATTEMPT_TIMEOUT": "5s",
		"SQLAI_EMPTY_QUERY":     "submit",
		"SQLAI_FAIL_ON_ERROR":   "true",
		"SQLAI_OUTPUT":          "json",
		"SQLAI_DB_SCHEMA":       "sales",
		"DATABASE_URL":          "postgres://u:p@db/app",
		"SQLAI_API_KEYS":        "k1, k2,,k1",
		"SQLAI_METRICS_FILE":    "/tmp/sqlai.prom",
	}), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Completion.Model != "gpt-4o-mini" {
		t.Fatalf("Model = %q", cfg.Completion.Model)
	}
	if cfg.Completion.Temperature != float32(0.2) {
		t.Fatalf("Temperature = %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxTokens != 512 || cfg.Completion.AttemptTimeout != 5*time.Second {
		t.Fatalf("completion = %+v", cfg.Completion)
	}
	if cfg.Execution.EmptyQuery != EmptyQuerySubmit || !cfg.Execution.FailOnError || cfg.Execution.Output != OutputJSON {
		t.Fatalf("execution = %+v", cfg.Execution)
	}
	if cfg.Database.DSN != "postgres://u:p@db/app" || cfg.Database.DSNSource != "DATABASE_URL" {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if got := cfg.Completion.APIKeys; len(got) != 2 || got[0] != "k1" || got[1] != "k2" {
		t.Fatalf("APIKeys = %v", got)
	}
	if cfg.Metrics.TextfilePath != "/tmp/sqlai.prom" {
		t.Fatalf("TextfilePath = %q", cfg.Metrics.TextfilePath)
	}
}

func TestDSNPrecedence(t *testing.T) {
	cfg, err := Load("", mapLookup(map[string]string{
		"SQLAI_DSN":       "postgres://a:b@primary/db",
		"DATABASE_URL":    "postgres://a:b@secondary/db",
		"API_KEY_NEON_DB": "postgres://a:b@legacy/db",
	}), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSNSource != "SQLAI_DSN" {
		t.Fatalf("DSNSource = %q", cfg.Database.DSNSource)
	}

	cfg, err = Load("", mapLookup(map[string]string{
		"API_KEY_NEON_DB": "postgres://a:b@legacy/db",
	}), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://a:b@legacy/db" {
		t.Fatalf("DSN = %q", cfg.Database.DSN)
	}
}

func TestLegacyCredentialsSortedAndExcludeDSN(t *testing.T) {
	got := LegacyCredentials(environOf(
		"API_KEY_3=third",
		"PATH=/usr/bin",
		"API_KEY_NEON_DB=postgres://u:p@h/db",
		"API_KEY_1=first",
		"API_KEY_2=",
		"API_KEY_10=tenth",
	))
	want := []string{"first", "tenth", "third"}
	if len(got) != len(want) {
		t.Fatalf("LegacyCredentials() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LegacyCredentials()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExplicitKeysPrecedeLegacyKeys(t *testing.T) {
	cfg, err := Load("", mapLookup(map[string]string{"SQLAI_API_KEYS": "explicit"}), environOf("API_KEY_A=legacy", "API_KEY_B=explicit"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := cfg.Completion.APIKeys
	if len(got) != 2 || got[0] != "explicit" || got[1] != "legacy" {
		t.Fatalf("APIKeys = %v", got)
	}
}

func TestCredentialsPlaceStoredKeysBetween(t *testing.T) {
	got := Credentials(
		mapLookup(map[string]string{"SQLAI_API_KEYS": "first, second"}),
		environOf("API_KEY_Z=legacy", "API_KEY_NEON_DB=postgresql://x"),
		[]string{"stored", "second"},
	)
	want := []string{"first", "second", "stored", "legacy"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Credentials() = %v, want %v", got, want)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "bad duration", values: map[string]string{"SQLAI_ATTEMPT_TIMEOUT": "soon"}},
		{name: "bad bool", values: map[string]string{"SQLAI_FAIL_ON_ERROR": "maybe"}},
		{name: "bad policy", values: map[string]string{"SQLAI_EMPTY_QUERY": "ignore"}},
		{name: "bad output", values: map[string]string{"SQLAI_OUTPUT": "csv"}},
		{name: "bad log level", values: map[string]string{"SQLAI_LOG_LEVEL": "loud"}},
		{name: "zero max tokens", values: map[string]string{"SQLAI_MAX_TOKENS": "0"}},
		{name: "temperature out of range", values: map[string]string{"SQLAI_TEMPERATURE": "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load("", mapLookup(tt.values), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("log_level: warn\ncompletion:\n  model: file-model\n  attempt_timeout: 12s\nexecution:\n  output: json\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, mapLookup(map[string]string{"SQLAI_MODEL": "env-model"}), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Completion.Model != "env-model" {
		t.Fatalf("Model = %q", cfg.Completion.Model)
	}
	if cfg.Completion.AttemptTimeout != 12*time.Second {
		t.Fatalf("AttemptTimeout = %v", cfg.Completion.AttemptTimeout)
	}
	if cfg.Execution.Output != OutputJSON {
		t.Fatalf("Output = %q", cfg.Execution.Output)
	}
	if cfg.Completion.MaxTokens != 256 {
		t.Fatalf("MaxTokens = %d, defaults should survive a partial file", cfg.Completion.MaxTokens)
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "typo.yaml")

	if _, err := Load(missing, mapLookup(nil), nil); err != nil {
		t.Fatalf("Load() on a missing default file error = %v", err)
	}
	_, err := LoadExplicit(missing, mapLookup(nil), nil)
	if err == nil {
		t.Fatal("LoadExplicit() on a missing file should fail")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadExplicit() error = %v, want os.ErrNotExist", err)
	}
	if _, err := LoadExplicit("", mapLookup(nil), nil); err == nil {
		t.Fatal("LoadExplicit() with an empty path should fail")
	}
}

func TestLoadExplicitReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  schema: sales\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadExplicit(path, mapLookup(nil), nil)
	if err != nil {
		t.Fatalf("LoadExplicit() error = %v", err)
	}
	if cfg.Database.Schema != "sales" {
		t.Fatalf("Schema = %q", cfg.Database.Schema)
	}
}

func TestResolvedTextfilePath(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	auto := filepath.Join(state, "sqlai", "metrics.prom")
	tests := []struct{ in, want string }{
		{"", ""},
		{"/tmp/sqlai.prom", "/tmp/sqlai.prom"},
		{MetricsTextfileAuto, auto},
		{" auto ", auto},
	}
	for _, tt := range tests {
		got, err := MetricsConfig{TextfilePath: tt.in}.ResolvedTextfilePath()
		if err != nil {
			t.Fatalf("ResolvedTextfilePath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolvedTextfilePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := os.Stat(filepath.Join(state, "sqlai")); err != nil {
		t.Errorf("state dir not created: %v", err)
	}
}

func TestSaveRoundTripKeepsSecretsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Database.DSN = "postgres://u:secret@h/db"
	cfg.Completion.APIKeys = []string{"sk-secret"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	for _, secret := range []string{"secret@h", "sk-secret"} {
		if strings.Contains(string(data), secret) {
			t.Fatalf("saved config contains %q:\n%s", secret, data)
		}
	}
	loaded, err := Load(path, mapLookup(nil), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Completion.AttemptTimeout != cfg.Completion.AttemptTimeout {
		t.Fatalf("AttemptTimeout = %v", loaded.Completion.AttemptTimeout)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for raw, want := range tests {
		got, err := ParseLogLevel(raw)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q) error = %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SQLAI_TEST_DOTENV_A=from-file\nSQLAI_TEST_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SQLAI_TEST_DOTENV_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("SQLAI_TEST_DOTENV_B") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SQLAI_TEST_DOTENV_A"); got != "from-env" {
		t.Fatalf("SQLAI_TEST_DOTENV_A = %q", got)
	}
	if got := os.Getenv("SQLAI_TEST_DOTENV_B"); got != "from-file" {
		t.Fatalf("SQLAI_TEST_DOTENV_B = %q", got)
	}
}
