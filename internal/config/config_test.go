package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("querydesk-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.SchemaRefreshPeriod != 5*time.Minute {
		t.Fatalf("Database.SchemaRefreshPeriod = %s", cfg.Database.SchemaRefreshPeriod)
	}
	if cfg.Executor.Driver != "postgres" {
		t.Fatalf("Executor.Driver = %q", cfg.Executor.Driver)
	}
	if cfg.Executor.RowLimit != 500 {
		t.Fatalf("Executor.RowLimit = %d", cfg.Executor.RowLimit)
	}
	if cfg.Engine.MaxTurns != 20 {
		t.Fatalf("Engine.MaxTurns = %d", cfg.Engine.MaxTurns)
	}
	if cfg.Engine.HistoryTurns != 5 {
		t.Fatalf("Engine.HistoryTurns = %d", cfg.Engine.HistoryTurns)
	}
	if cfg.Engine.MaxSuggestions != 5 {
		t.Fatalf("Engine.MaxSuggestions = %d", cfg.Engine.MaxSuggestions)
	}
	if cfg.AI.Provider != "openai" {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Fatalf("AI.MaxAttempts = %d", cfg.AI.MaxAttempts)
	}
	if cfg.ObjectStore.Enabled {
		t.Fatal("ObjectStore.Enabled should default to false")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYDESK_PROFILE": "prod"})
	cfg, err := Load("querydesk-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"QUERYDESK_PROFILE":                   "test",
		"QUERYDESK_SERVICE_NAME":              "querydesk-custom",
		"QUERYDESK_HTTP_ADDR":                 ":9999",
		"QUERYDESK_HTTP_READ_TIMEOUT":         "2s",
		"QUERYDESK_LOG_LEVEL":                 "error",
		"QUERYDESK_AUTH_REQUIRED":             "true",
		"QUERYDESK_AUTH_STATIC_KEYS":          "k1:analyst:query_reader",
		"QUERYDESK_DB_DSN":                    "postgres://example",
		"QUERYDESK_DB_MAX_OPEN_CONNS":         "42",
		"QUERYDESK_DB_SCHEMA_REFRESH_PERIOD":  "90s",
		"QUERYDESK_EXECUTOR_DRIVER":           "duckdb",
		"QUERYDESK_EXECUTOR_DUCKDB_PATH":      "/tmp/demo.duckdb",
		"QUERYDESK_EXECUTOR_ROW_LIMIT":        "100",
		"QUERYDESK_ENGINE_MAX_TURNS":          "8",
		"QUERYDESK_ENGINE_TOKEN_BUDGET":       "1234",
		"QUERYDESK_ENGINE_HISTORY_TURNS":      "3",
		"QUERYDESK_ENGINE_SCHEMA_CHAR_BUDGET": "2000",
		"QUERYDESK_ENGINE_MAX_SUGGESTIONS":    "7",
		"QUERYDESK_AI_PROVIDER":               "anthropic",
		"QUERYDESK_AI_BASE_URL":               "https://api.example.com",
		"QUERYDESK_AI_API_KEY":                "secret-key",
		"QUERYDESK_AI_MODEL":                  "claude-sonnet-4-5",
		"QUERYDESK_AI_TEMPERATURE":            "0.3",
		"QUERYDESK_AI_TIMEOUT":                "21s",
		"QUERYDESK_AI_MAX_ATTEMPTS":           "5",
		"QUERYDESK_AI_RETRY_BASE_DELAY":       "250ms",
		"QUERYDESK_OBJECTSTORE_ENABLED":       "true",
		"QUERYDESK_OBJECTSTORE_ENDPOINT":      "s3.example.com",
		"QUERYDESK_OBJECTSTORE_BUCKET":        "querydesk-prod",
	})
	cfg, err := Load("querydesk-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "querydesk-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:analyst:query_reader" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.SchemaRefreshPeriod != 90*time.Second {
		t.Fatalf("Database.SchemaRefreshPeriod = %s", cfg.Database.SchemaRefreshPeriod)
	}
	if cfg.Executor.Driver != "duckdb" {
		t.Fatalf("Executor.Driver = %q", cfg.Executor.Driver)
	}
	if cfg.Executor.DuckDBPath != "/tmp/demo.duckdb" {
		t.Fatalf("Executor.DuckDBPath = %q", cfg.Executor.DuckDBPath)
	}
	if cfg.Executor.RowLimit != 100 {
		t.Fatalf("Executor.RowLimit = %d", cfg.Executor.RowLimit)
	}
	if cfg.Engine.MaxTurns != 8 {
		t.Fatalf("Engine.MaxTurns = %d", cfg.Engine.MaxTurns)
	}
	if cfg.Engine.TokenBudget != 1234 {
		t.Fatalf("Engine.TokenBudget = %d", cfg.Engine.TokenBudget)
	}
	if cfg.Engine.HistoryTurns != 3 {
		t.Fatalf("Engine.HistoryTurns = %d", cfg.Engine.HistoryTurns)
	}
	if cfg.Engine.SchemaCharBudget != 2000 {
		t.Fatalf("Engine.SchemaCharBudget = %d", cfg.Engine.SchemaCharBudget)
	}
	if cfg.Engine.MaxSuggestions != 7 {
		t.Fatalf("Engine.MaxSuggestions = %d", cfg.Engine.MaxSuggestions)
	}
	if cfg.AI.Provider != "anthropic" {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "claude-sonnet-4-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.MaxAttempts != 5 {
		t.Fatalf("AI.MaxAttempts = %d", cfg.AI.MaxAttempts)
	}
	if cfg.AI.RetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("AI.RetryBaseDelay = %s", cfg.AI.RetryBaseDelay)
	}
	if !cfg.ObjectStore.Enabled {
		t.Fatal("ObjectStore.Enabled = false, want true")
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "querydesk-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	cfg, err := Load("querydesk-api", mapLookup(map[string]string{"QUERYDESK_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"QUERYDESK_PROFILE": "oops"},
		{"QUERYDESK_HTTP_READ_TIMEOUT": "NaN"},
		{"QUERYDESK_DB_MAX_OPEN_CONNS": "oops"},
		{"QUERYDESK_EXECUTOR_DRIVER": "sqlite"},
		{"QUERYDESK_ENGINE_MAX_TURNS": "0"},
		{"QUERYDESK_ENGINE_HISTORY_TURNS": "-1"},
		{"QUERYDESK_AI_MAX_ATTEMPTS": "0"},
		{"QUERYDESK_AI_TEMPERATURE": "bad"},
		{"QUERYDESK_AUTH_REQUIRED": "not-bool"},
		{"QUERYDESK_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("querydesk-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
