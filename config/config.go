// Package config defines the application configuration structures.
//
// Separated from cmd to allow other packages (ai, provider, tui) to
// depend on config without importing Cobra.
//
// Values come from, in increasing priority: compiled-in defaults,
// ~/.floatwords/config.yaml (or $FLOATWORDS_CONFIG_PATH/config.yaml) and
// FLOATWORDS_* environment variables (e.g. FLOATWORDS_AI_MODEL).
// Runtime preferences the user edits (AI on/off, city, idle gating) live
// in the settings store instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Debug bool

	AI      AIConfig
	Paths   PathsConfig
	Spawn   SpawnConfig
	Weather WeatherConfig
}

// PathsConfig locates everything the app keeps on disk.
type PathsConfig struct {
	Home        string // ~/.floatwords
	CacheDir    string // one <date>.json per day of generated text
	TextsFile   string // local text list, one entry per line
	SettingsDir string // diskv settings store
	ContextDB   string // SQLite cache for geocoding/weather lookups
	LogDir      string
}

// SpawnConfig controls the float scheduler and animation.
type SpawnConfig struct {
	Interval time.Duration // time between spawn requests
	Lifetime time.Duration // how long a float stays on screen
}

// WeatherConfig configures the Open-Meteo lookups.
type WeatherConfig struct {
	GeocodingURL string
	ForecastURL  string
	Timeout      time.Duration
}

// Load reads configuration. A missing config file is not an error.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(home, ".floatwords")

	v := viper.New()
	setDefaults(v, base)

	v.SetConfigName("config") // .yaml is implicit
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLOATWORDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("FLOATWORDS_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath(base)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper, base string) {
	v.SetDefault("debug", false)

	d := DefaultAIConfig()
	v.SetDefault("ai.backend", d.Backend)
	v.SetDefault("ai.base_url", d.BaseURL)
	v.SetDefault("ai.model", d.Model)
	v.SetDefault("ai.temperature", d.Temperature)
	v.SetDefault("ai.items_per_day", d.ItemsPerDay)
	v.SetDefault("ai.api_key", d.APIKey)
	v.SetDefault("ai.connect_timeout", d.ConnectTimeout)
	v.SetDefault("ai.read_timeout", d.ReadTimeout)
	v.SetDefault("ai.failover_to_local", d.FailoverToLocal)
	v.SetDefault("ai.backoff", d.Backoff)
	v.SetDefault("ai.prompt_template", "")

	v.SetDefault("paths.home", base)
	v.SetDefault("paths.cache_dir", filepath.Join(base, "ai_cache"))
	v.SetDefault("paths.texts_file", filepath.Join(base, "texts.txt"))
	v.SetDefault("paths.settings_dir", filepath.Join(base, "settings"))
	v.SetDefault("paths.context_db", filepath.Join(base, "context.db"))
	v.SetDefault("paths.log_dir", filepath.Join(base, "logs"))

	v.SetDefault("spawn.interval", 1800*time.Millisecond)
	v.SetDefault("spawn.lifetime", 7*time.Second)

	v.SetDefault("weather.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.timeout", 10*time.Second)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Debug: v.GetBool("debug"),
		AI: AIConfig{
			Backend:         strings.ToLower(v.GetString("ai.backend")),
			BaseURL:         v.GetString("ai.base_url"),
			Model:           v.GetString("ai.model"),
			Temperature:     v.GetFloat64("ai.temperature"),
			ItemsPerDay:     v.GetInt("ai.items_per_day"),
			APIKey:          strings.TrimSpace(v.GetString("ai.api_key")),
			ConnectTimeout:  v.GetDuration("ai.connect_timeout"),
			ReadTimeout:     v.GetDuration("ai.read_timeout"),
			FailoverToLocal: v.GetBool("ai.failover_to_local"),
			Backoff:         v.GetDuration("ai.backoff"),
			PromptTemplate:  v.GetString("ai.prompt_template"),
		},
		Spawn: SpawnConfig{
			Interval: v.GetDuration("spawn.interval"),
			Lifetime: v.GetDuration("spawn.lifetime"),
		},
		Weather: WeatherConfig{
			GeocodingURL: v.GetString("weather.geocoding_url"),
			ForecastURL:  v.GetString("weather.forecast_url"),
			Timeout:      v.GetDuration("weather.timeout"),
		},
	}

	paths := []struct {
		key string
		dst *string
	}{
		{"paths.home", &cfg.Paths.Home},
		{"paths.cache_dir", &cfg.Paths.CacheDir},
		{"paths.texts_file", &cfg.Paths.TextsFile},
		{"paths.settings_dir", &cfg.Paths.SettingsDir},
		{"paths.context_db", &cfg.Paths.ContextDB},
		{"paths.log_dir", &cfg.Paths.LogDir},
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(v.GetString(p.key))
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", p.key, err)
		}
		*p.dst = expanded
	}

	if cfg.Spawn.Interval <= 0 {
		cfg.Spawn.Interval = 1800 * time.Millisecond
	}
	if cfg.Spawn.Lifetime <= 0 {
		cfg.Spawn.Lifetime = 7 * time.Second
	}
	if cfg.AI.ItemsPerDay <= 0 {
		cfg.AI.ItemsPerDay = DefaultAIConfig().ItemsPerDay
	}
	return cfg, nil
}
