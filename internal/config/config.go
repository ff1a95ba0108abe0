// Package config assembles the process-wide configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is built by Load and treated as read-only afterwards.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Upload       UploadConfig       `koanf:"upload"`
	Cookie       CookieConfig       `koanf:"cookie"`
	DB           DBConfig           `koanf:"db"`
	Log          LogConfig          `koanf:"log"`
	Groq         ProviderConfig     `koanf:"groq"`
	Grok         ProviderConfig     `koanf:"grok"`
	HuggingFace  ProviderConfig     `koanf:"huggingface"`
	Gemini       GeminiConfig       `koanf:"gemini"`
	AI           ImageGenConfig     `koanf:"ai"`
	Pollinations PollinationsConfig `koanf:"pollinations"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

type UploadConfig struct {
	Dir string `koanf:"dir"`
	// MaxBytes caps a whole multipart request body.
	MaxBytes int64 `koanf:"max_bytes"`
}

type CookieConfig struct {
	Secret string `koanf:"secret"`
	Secure bool   `koanf:"secure"`
}

type DBConfig struct {
	Driver string `koanf:"driver"`
	Conn   string `koanf:"conn"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	AIFile string `koanf:"ai_file"`
}

// ProviderConfig describes an OpenAI-compatible or inference endpoint.
type ProviderConfig struct {
	APIKey  string `koanf:"api_key"`
	APIBase string `koanf:"api_base"`
}

// Configured reports whether a credential is present.
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

type GeminiConfig struct {
	APIKey        string `koanf:"api_key"`
	APIBase       string `koanf:"api_base"`
	Model         string `koanf:"model"`
	FallbackModel string `koanf:"fallback_model"`
}

// ImageGenConfig selects the illustration provider.
type ImageGenConfig struct {
	Provider string `koanf:"provider"`
	APIKey   string `koanf:"api_key"`
	APIBase  string `koanf:"api_base"`
}

type PollinationsConfig struct {
	APIBase string `koanf:"api_base"`
}

const (
	DefaultGroqBase         = "https://api.groq.com/openai/v1"
	DefaultHuggingFaceBase  = "https://api-inference.huggingface.co/models"
	DefaultPollinationsBase = "https://image.pollinations.ai"
	DefaultGeminiModel      = "gemini-pro-latest"
	DefaultGeminiFallback   = "gemini-flash-latest"
	DefaultUploadMaxBytes   = 50 << 20
	devCookieSecret         = "storyia-dev-secret-key-change-in-prod"
)

// Default returns a configuration suitable for local development and tests.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "uploads"
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = DefaultUploadMaxBytes
	}
	if cfg.Cookie.Secret == "" {
		cfg.Cookie.Secret = devCookieSecret
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite3"
	}
	if cfg.DB.Conn == "" {
		cfg.DB.Conn = "./storyia.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// GROK_* is the historical spelling of the Groq settings.
	if cfg.Groq.APIKey == "" {
		cfg.Groq.APIKey = cfg.Grok.APIKey
	}
	if cfg.Groq.APIBase == "" {
		cfg.Groq.APIBase = cfg.Grok.APIBase
	}
	if cfg.Groq.APIBase == "" {
		cfg.Groq.APIBase = DefaultGroqBase
	}
	cfg.Groq.APIBase = strings.TrimRight(cfg.Groq.APIBase, "/")

	if cfg.HuggingFace.APIBase == "" {
		cfg.HuggingFace.APIBase = DefaultHuggingFaceBase
	}
	cfg.HuggingFace.APIBase = strings.TrimRight(cfg.HuggingFace.APIBase, "/")

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = DefaultGeminiModel
	}
	if cfg.Gemini.FallbackModel == "" {
		cfg.Gemini.FallbackModel = DefaultGeminiFallback
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "local"
	}
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))

	if cfg.Pollinations.APIBase == "" {
		cfg.Pollinations.APIBase = DefaultPollinationsBase
	}
	cfg.Pollinations.APIBase = strings.TrimRight(cfg.Pollinations.APIBase, "/")
}

var validImageProviders = map[string]bool{
	"local": true, "openai": true, "groq": true, "grok": true,
	"pollinations": true, "huggingface": true, "stability": true, "auto": true,
}

// Validate checks the fields that would otherwise fail late at request time.
func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db.driver: unsupported driver %q", c.DB.Driver))
	}
	if !validImageProviders[c.AI.Provider] {
		errs = append(errs, fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
