package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8008",
			ShutdownTimeout: 10,
		},
		DB: DBConfig{
			URL: "postgres://localhost:5432/speaking9",
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "https://api.example.com/transcribe",
			APIKey:        "test-key",
			Model:         "whisper-1",
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 8,
		},
		Scoring: ScoringConfig{
			Endpoint:  "https://api.example.com/chat",
			APIKey:    "test-key",
			Model:     "gpt-4o",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Storage: StorageConfig{
			Endpoint:    "https://store.example.com/storage/v1",
			ServiceKey:  "service-key",
			Bucket:      "responses",
			Timeout:     30,
			MaxUploadMB: 25,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = "notaport" },
			expectError: true,
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.Server.Port = "70000" },
			expectError: true,
		},
		{
			name:        "missing db url",
			mutate:      func(c *Config) { c.DB.URL = "" },
			expectError: true,
		},
		{
			name:        "missing transcription endpoint",
			mutate:      func(c *Config) { c.Transcription.Endpoint = "" },
			expectError: true,
		},
		{
			name:        "missing transcription api key",
			mutate:      func(c *Config) { c.Transcription.APIKey = "" },
			expectError: true,
		},
		{
			name:        "negative transcription retries",
			mutate:      func(c *Config) { c.Transcription.MaxRetries = -1 },
			expectError: true,
		},
		{
			name:        "zero transcription concurrency",
			mutate:      func(c *Config) { c.Transcription.MaxConcurrent = 0 },
			expectError: true,
		},
		{
			name:        "scoring temperature too high",
			mutate:      func(c *Config) { c.Scoring.Temperature = 3.5 },
			expectError: true,
		},
		{
			name:        "missing storage bucket",
			mutate:      func(c *Config) { c.Storage.Bucket = "" },
			expectError: true,
		},
		{
			name:        "zero upload limit",
			mutate:      func(c *Config) { c.Storage.MaxUploadMB = 0 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9000"
db:
  url: postgres://file-value
transcription:
  endpoint: https://file.example.com/stt
  api_key: file-key
scoring:
  endpoint: https://file.example.com/chat
  api_key: file-key
storage:
  endpoint: https://file.example.com/storage
  service_key: file-key
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DB_URL", "postgres://env-value")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DB.URL != "postgres://env-value" {
		t.Errorf("expected env DB_URL to win, got %q", cfg.DB.URL)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("expected env PORT to win, got %q", cfg.Server.Port)
	}
	if cfg.Transcription.Endpoint != "https://file.example.com/stt" {
		t.Errorf("expected file value to survive, got %q", cfg.Transcription.Endpoint)
	}
	// defaults fill what neither file nor env set
	if cfg.Storage.MaxUploadMB != 25 {
		t.Errorf("expected default upload limit 25, got %d", cfg.Storage.MaxUploadMB)
	}
	if cfg.Scoring.Model != "gpt-4o" {
		t.Errorf("expected default scoring model, got %q", cfg.Scoring.Model)
	}
}

func TestLoadMissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("DB_URL", "postgres://env-only")
	t.Setenv("STT_ENDPOINT", "https://env.example.com/stt")
	t.Setenv("STT_API_KEY", "k")
	t.Setenv("SCORING_ENDPOINT", "https://env.example.com/chat")
	t.Setenv("SCORING_API_KEY", "k")
	t.Setenv("STORAGE_ENDPOINT", "https://env.example.com/storage")
	t.Setenv("STORAGE_SERVICE_KEY", "k")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.URL != "postgres://env-only" {
		t.Errorf("expected env DB_URL, got %q", cfg.DB.URL)
	}
	if cfg.Server.Port != "8008" {
		t.Errorf("expected default port, got %q", cfg.Server.Port)
	}
}
