package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the API needs to run. Values come from an
// optional YAML file, then environment variables override field by field,
// so deployments can ship a config.yaml and still inject secrets via env.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	DB            DBConfig            `yaml:"db"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Storage       StorageConfig       `yaml:"storage"`
	OAuth         OAuthConfig         `yaml:"oauth"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            string `yaml:"port"`
	PublicBaseURL   string `yaml:"public_base_url"`
	PrettyLog       bool   `yaml:"pretty_log"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// DBConfig contains the Postgres connection configuration.
type DBConfig struct {
	URL string `yaml:"url"`
}

// TranscriptionConfig configures the speech-to-text client.
type TranscriptionConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	Language      string  `yaml:"language"`
	Timeout       int     `yaml:"timeout"` // seconds
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	Temperature   float64 `yaml:"temperature"`
}

// ScoringConfig configures the chat-completion scoring client.
type ScoringConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Timeout     int     `yaml:"timeout"` // seconds
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// StorageConfig configures the hosted object-store client used for
// uploaded answer recordings.
type StorageConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceKey  string `yaml:"service_key"`
	Bucket      string `yaml:"bucket"`
	Timeout     int    `yaml:"timeout"` // seconds
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// OAuthConfig configures the Google sign-in flow.
type OAuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleCallbackURL  string `yaml:"google_callback_url"`
	FinalRedirectURL   string `yaml:"final_redirect_url"`
}

// Load reads the optional YAML file at path (skipped when path is empty or
// the file does not exist), applies env overrides, fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	setBool(&c.Server.PrettyLog, "PRETTY_LOG")

	setString(&c.DB.URL, "DB_URL")

	setString(&c.Transcription.Endpoint, "STT_ENDPOINT")
	setString(&c.Transcription.APIKey, "STT_API_KEY")
	setString(&c.Transcription.Model, "STT_MODEL")
	setString(&c.Transcription.Language, "STT_LANGUAGE")

	setString(&c.Scoring.Endpoint, "SCORING_ENDPOINT")
	setString(&c.Scoring.APIKey, "SCORING_API_KEY")
	setString(&c.Scoring.Model, "SCORING_MODEL")

	setString(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&c.Storage.ServiceKey, "STORAGE_SERVICE_KEY")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")

	setString(&c.OAuth.GoogleClientID, "OAUTH_GOOGLE_CLIENT_ID")
	setString(&c.OAuth.GoogleClientSecret, "OAUTH_GOOGLE_CLIENT_SECRET")
	setString(&c.OAuth.GoogleCallbackURL, "OAUTH_GOOGLE_CALLBACK_URL")
	setString(&c.OAuth.FinalRedirectURL, "OAUTH_FINAL_REDIRECT_URL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8008"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 60
	}
	if c.Transcription.MaxRetries == 0 {
		c.Transcription.MaxRetries = 3
	}
	if c.Transcription.MaxConcurrent == 0 {
		c.Transcription.MaxConcurrent = 8
	}
	if c.Scoring.Model == "" {
		c.Scoring.Model = "gpt-4o"
	}
	if c.Scoring.Timeout == 0 {
		c.Scoring.Timeout = 120
	}
	if c.Scoring.MaxRetries == 0 {
		c.Scoring.MaxRetries = 2
	}
	if c.Scoring.MaxTokens == 0 {
		c.Scoring.MaxTokens = 2000
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "responses"
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 60
	}
	if c.Storage.MaxUploadMB == 0 {
		c.Storage.MaxUploadMB = 25
	}
}

// Validate performs validation of the assembled configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if c.DB.URL == "" {
		return fmt.Errorf("db config: url (DB_URL) cannot be empty")
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", s.Port)
	}
	if s.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", s.ShutdownTimeout)
	}
	return nil
}

// Validate validates speech-to-text configuration.
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}
	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}
	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}
	return nil
}

// Validate validates scoring configuration.
func (s *ScoringConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", s.Temperature)
	}
	if s.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	return nil
}

// Validate validates object storage configuration.
func (s *StorageConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if s.ServiceKey == "" {
		return fmt.Errorf("service_key cannot be empty")
	}
	if s.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if s.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", s.MaxUploadMB)
	}
	return nil
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration.
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the scoring timeout as a time.Duration.
func (s *ScoringConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the storage timeout as a time.Duration.
func (s *StorageConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s *StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// GetShutdownTimeout returns the graceful shutdown window.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
