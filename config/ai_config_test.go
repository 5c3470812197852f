package config

import "testing"

func TestCredentialsPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		stored   string
		fallback string
		wantKey  string
		wantSrc  KeySource
	}{
		{name: "env wins", env: "env-key", stored: "stored-key", fallback: "default-key", wantKey: "env-key", wantSrc: KeySourceEnv},
		{name: "stored over default", stored: "stored-key", fallback: "default-key", wantKey: "stored-key", wantSrc: KeySourceSettings},
		{name: "default last", fallback: "default-key", wantKey: "default-key", wantSrc: KeySourceDefault},
		{name: "whitespace is absent", env: "  ", stored: "\t", wantKey: "", wantSrc: KeySourceNone},
		{name: "nothing configured", wantKey: "", wantSrc: KeySourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.stored
			c := &Credentials{
				Env:       "DEEPSEEK_API_KEY",
				Stored:    func() string { return stored },
				Fallback:  tt.fallback,
				lookupEnv: func(string) string { return tt.env },
			}
			key, src := c.Resolve()
			if key != tt.wantKey || src != tt.wantSrc {
				t.Fatalf("Resolve() = (%q, %s), want (%q, %s)", key, src, tt.wantKey, tt.wantSrc)
			}
		})
	}
}

func TestCredentialsNilStored(t *testing.T) {
	c := &Credentials{Env: "DEEPSEEK_API_KEY", lookupEnv: func(string) string { return "" }}
	if key := c.Key(); key != "" {
		t.Fatalf("Key() = %q, want empty", key)
	}
}

func TestAPIKeyEnv(t *testing.T) {
	if got := APIKeyEnv(BackendDeepSeek); got != "DEEPSEEK_API_KEY" {
		t.Errorf("deepseek env = %q", got)
	}
	if got := APIKeyEnv(BackendOpenAI); got != "OPENAI_API_KEY" {
		t.Errorf("openai env = %q", got)
	}
	if got := APIKeyEnv(BackendOllama); got != "" {
		t.Errorf("ollama env = %q, want none", got)
	}
	if RequiresKey(BackendPlaceholder) {
		t.Error("placeholder backend should not require a key")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLOATWORDS_CONFIG_PATH", t.TempDir())
	t.Setenv("FLOATWORDS_AI_MODEL", "deepseek-reasoner")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.Model != "deepseek-reasoner" {
		t.Errorf("model = %q, want env override", cfg.AI.Model)
	}
	if cfg.AI.Backoff.Seconds() != 60 {
		t.Errorf("backoff = %v, want 60s", cfg.AI.Backoff)
	}
	if cfg.AI.ConnectTimeout >= cfg.AI.ReadTimeout {
		t.Errorf("connect timeout %v should be shorter than read timeout %v", cfg.AI.ConnectTimeout, cfg.AI.ReadTimeout)
	}
	if cfg.Paths.CacheDir == "" || cfg.Paths.CacheDir[0] == '~' {
		t.Errorf("cache dir not expanded: %q", cfg.Paths.CacheDir)
	}
}

func TestBackendDefaults(t *testing.T) {
	tests := []struct {
		backend, endpoint, model string
	}{
		{BackendDeepSeek, "https://api.deepseek.com", "deepseek-chat"},
		{BackendOpenAI, "https://api.openai.com", "gpt-4o-mini"},
		{BackendOllama, "http://localhost:11434", "llama3.2"},
		{BackendPlaceholder, "https://api.deepseek.com", "placeholder"},
	}
	for _, tt := range tests {
		c := AIConfig{Backend: tt.backend}
		if got := c.Endpoint(); got != tt.endpoint {
			t.Errorf("%s Endpoint() = %q, want %q", tt.backend, got, tt.endpoint)
		}
		if got := c.ModelName(); got != tt.model {
			t.Errorf("%s ModelName() = %q, want %q", tt.backend, got, tt.model)
		}
	}

	c := AIConfig{Backend: BackendOpenAI, BaseURL: "http://proxy:8080", Model: "custom"}
	if c.Endpoint() != "http://proxy:8080" || c.ModelName() != "custom" {
		t.Fatal("explicit values must win over backend defaults")
	}
}
