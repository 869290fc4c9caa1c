package common

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	LLM     LLMConfig
	Chat    ChatConfig
	Audit   AuditConfig
	Log     LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener
}

// BackendConfig holds the persistence collaborator configuration
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChatConfig holds orchestration limits
type ChatConfig struct {
	MaxSteps int
	Timezone string
}

// AuditConfig holds the tool invocation audit store configuration
type AuditConfig struct {
	Driver string // sqlite | postgres
	DSN    string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// NewViper returns a viper instance with defaults and environment binding.
// Keys use dots; the matching environment variable replaces dots with underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", "")
	v.SetDefault("app.url", "http://localhost:3000")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("chat.max_steps", 3)
	v.SetDefault("timezone", "Europe/Rome")
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.dsn", "file:fatture-audit.db?_pragma=busy_timeout(5000)")
	v.SetDefault("log.level", "info")

	// The web app historically exposed its own URL under this name.
	_ = v.BindEnv("app.url", "APP_URL", "NEXT_PUBLIC_APP_URL")
	return v
}

// LoadConfig loads configuration from the given viper instance
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = NewViper()
	}
	return &Config{
		Server: ServerConfig{
			HTTPAddr: v.GetString("http.addr"),
			GRPCAddr: v.GetString("grpc.addr"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("app.url"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		LLM: LLMConfig{
			APIKey:      v.GetString("openai.api_key"),
			BaseURL:     v.GetString("openai.base_url"),
			Model:       v.GetString("openai.model"),
			Temperature: float32(v.GetFloat64("openai.temperature")),
			MaxTokens:   v.GetInt("openai.max_tokens"),
			Timeout:     v.GetDuration("openai.timeout"),
		},
		Chat: ChatConfig{
			MaxSteps: v.GetInt("chat.max_steps"),
			Timezone: v.GetString("timezone"),
		},
		Audit: AuditConfig{
			Driver: strings.ToLower(v.GetString("audit.driver")),
			DSN:    v.GetString("audit.dsn"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c ChatConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Backend.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "APP_URL is required", ErrInvalidInput)
	}
	if c.Chat.MaxSteps < 1 {
		return NewAppError("CONFIG_ERROR", "CHAT_MAX_STEPS must be at least 1", ErrInvalidInput)
	}
	switch c.Audit.Driver {
	case "", "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", "AUDIT_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	return nil
}
