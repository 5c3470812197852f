package config

// The API key is never required to start the app. It is resolved on every
// generation attempt in this order: environment variable (DEEPSEEK_API_KEY
// for the default backend), the key saved in the settings store, then the
// compiled-in/config-file default, which is normally empty.

import (
	"os"
	"strings"
	"time"
)

// Supported chat-completion backends. All of them speak the
// OpenAI-compatible /v1/chat/completions protocol.
const (
	BackendDeepSeek    = "deepseek"
	BackendOpenAI      = "openai"
	BackendOllama      = "ollama"
	BackendPlaceholder = "placeholder"
)

// AIConfig holds the remote generation settings.
type AIConfig struct {
	Backend     string
	BaseURL     string // without the /v1/chat/completions suffix; empty picks the backend default
	Model       string // empty picks the backend default
	Temperature float64
	ItemsPerDay int
	APIKey      string // compiled-in / config-file fallback, usually empty

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	FailoverToLocal bool
	Backoff         time.Duration

	// PromptTemplate overrides the built-in text/template prompt.
	PromptTemplate string
}

// DefaultAIConfig returns sensible defaults.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Backend:         BackendDeepSeek,
		Temperature:     1.2,
		ItemsPerDay:     30,
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     20 * time.Second,
		FailoverToLocal: true,
		Backoff:         60 * time.Second,
	}
}

// Endpoint returns BaseURL or the backend's well-known default.
func (c AIConfig) Endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	switch c.Backend {
	case BackendOpenAI:
		return "https://api.openai.com"
	case BackendOllama:
		return "http://localhost:11434"
	default:
		return "https://api.deepseek.com"
	}
}

// ModelName returns Model or the backend's default model.
func (c AIConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Backend {
	case BackendOpenAI:
		return "gpt-4o-mini"
	case BackendOllama:
		return "llama3.2"
	case BackendPlaceholder:
		return "placeholder"
	default:
		return "deepseek-chat"
	}
}

// APIKeyEnv returns the environment variable consulted first for backend.
func APIKeyEnv(backend string) string {
	switch backend {
	case BackendOpenAI:
		return "OPENAI_API_KEY"
	case BackendOllama, BackendPlaceholder:
		return ""
	default:
		return "DEEPSEEK_API_KEY"
	}
}

// KeySource reports where a resolved API key came from.
type KeySource string

const (
	KeySourceNone     KeySource = "none"
	KeySourceEnv      KeySource = "env"
	KeySourceSettings KeySource = "settings"
	KeySourceDefault  KeySource = "default"
)

// Credentials resolves the API key with env > settings > default precedence.
type Credentials struct {
	Env      string        // environment variable name; empty disables the env lookup
	Stored   func() string // key saved by the user, may be nil
	Fallback string        // compiled-in default

	lookupEnv func(string) string
}

// NewCredentials builds a resolver for cfg's backend.
func NewCredentials(cfg AIConfig, stored func() string) *Credentials {
	return &Credentials{
		Env:      APIKeyEnv(cfg.Backend),
		Stored:   stored,
		Fallback: cfg.APIKey,
	}
}

// Key returns the first non-empty key.
func (c *Credentials) Key() string {
	key, _ := c.Resolve()
	return key
}

// Resolve returns the key and the level it was found at. An empty key with
// KeySourceNone means AI is unavailable, which is not an error.
func (c *Credentials) Resolve() (string, KeySource) {
	getenv := c.lookupEnv
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.Env != "" {
		if v := strings.TrimSpace(getenv(c.Env)); v != "" {
			return v, KeySourceEnv
		}
	}
	if c.Stored != nil {
		if v := strings.TrimSpace(c.Stored()); v != "" {
			return v, KeySourceSettings
		}
	}
	if v := strings.TrimSpace(c.Fallback); v != "" {
		return v, KeySourceDefault
	}
	return "", KeySourceNone
}

// RequiresKey reports whether backend needs a credential at all.
func RequiresKey(backend string) bool {
	return backend != BackendOllama && backend != BackendPlaceholder
}
