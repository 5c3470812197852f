package ai

import (
	"fmt"

	"github.com/DachengChen/floatwords/config"
)

// SupportedBackends lists available backend names for display.
var SupportedBackends = []string{
	config.BackendDeepSeek,
	config.BackendOpenAI,
	config.BackendOllama,
	config.BackendPlaceholder,
}

// NewClient creates a backend client from the application config.
// Credentials are not checked here; they are resolved per request.
func NewClient(cfg config.AIConfig) (Client, error) {
	hc := NewHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)

	switch cfg.Backend {
	case config.BackendDeepSeek, "":
		return NewOpenAI("deepseek", cfg.Endpoint(), hc), nil

	case config.BackendOpenAI:
		return NewOpenAI("openai", cfg.Endpoint(), hc), nil

	case config.BackendOllama:
		return NewOllama(cfg.Endpoint(), hc), nil

	case config.BackendPlaceholder:
		return NewPlaceholder(), nil

	default:
		return nil, fmt.Errorf("unknown AI backend %q. Supported: %v", cfg.Backend, SupportedBackends)
	}
}
