package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys of every persisted preference.
const (
	KeyAIEnabled        = "ai/enabled"
	KeyTextSource       = "ai/text_source" // auto/local/ai
	KeyDeepSeekAPIKey   = "ai/deepseek_api_key"
	KeyCity             = "context/city"
	KeyLocationMode     = "context/location_mode" // manual/ip
	KeyWeatherEnabled   = "context/weather_enabled"
	KeyIdleEnabled      = "idle/enabled"
	KeyIdleThresholdSec = "idle/threshold_seconds"
	KeyFloatDensity     = "ui/float_density" // lots/many/normal/few
	KeyFloatSpeed       = "ui/float_speed"   // fast/normal/slow
	KeySalutation       = "prompt/salutation"
	KeyUserHint         = "prompt/user_hint"
)

// AllKeys lists the keys accepted by the CLI.
var AllKeys = []string{
	KeyAIEnabled,
	KeyTextSource,
	KeyDeepSeekAPIKey,
	KeyCity,
	KeyLocationMode,
	KeyWeatherEnabled,
	KeyIdleEnabled,
	KeyIdleThresholdSec,
	KeyFloatDensity,
	KeyFloatSpeed,
	KeySalutation,
	KeyUserHint,
}

// IsKnown reports whether key is one of AllKeys.
func IsKnown(key string) bool {
	for _, k := range AllKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Defaults used when nothing is stored.
const (
	DefaultTextSource       = "auto"
	DefaultLocationMode     = "manual"
	DefaultIdleThresholdSec = 30
	DefaultFloatDensity     = "normal"
	DefaultFloatSpeed       = "normal"
)

var densityToMaxFloats = map[string]int{
	"lots":   30,
	"many":   15,
	"normal": 8,
	"few":    3,
}

var speedToMillis = map[string]int{
	"fast":   25,
	"normal": 40,
	"slow":   60,
}

// DensityLabels and SpeedLabels list the valid UI presets.
var (
	DensityLabels = []string{"lots", "many", "normal", "few"}
	SpeedLabels   = []string{"fast", "normal", "slow"}
)

// AIEnabled reports whether AI-generated text is enabled.
func (s *Store) AIEnabled() bool { return s.Bool(KeyAIEnabled, true) }

func (s *Store) SetAIEnabled(v bool) error { return s.Set(KeyAIEnabled, v) }

// TextSource returns auto, local or ai; anything else falls back to auto.
func (s *Store) TextSource() string {
	v := strings.ToLower(strings.TrimSpace(s.String(KeyTextSource, DefaultTextSource)))
	switch v {
	case "auto", "local", "ai":
		return v
	}
	return DefaultTextSource
}

func (s *Store) SetTextSource(v string) error {
	return s.Set(KeyTextSource, strings.ToLower(strings.TrimSpace(v)))
}

// DeepSeekAPIKey returns the stored key only; environment precedence is
// handled by config.Credentials.
func (s *Store) DeepSeekAPIKey() string {
	return strings.TrimSpace(s.String(KeyDeepSeekAPIKey, ""))
}

func (s *Store) SetDeepSeekAPIKey(v string) error {
	return s.Set(KeyDeepSeekAPIKey, strings.TrimSpace(v))
}

func (s *Store) City() string { return strings.TrimSpace(s.String(KeyCity, "")) }

func (s *Store) SetCity(v string) error { return s.Set(KeyCity, strings.TrimSpace(v)) }

// LocationMode returns manual or ip.
func (s *Store) LocationMode() string {
	v := strings.ToLower(strings.TrimSpace(s.String(KeyLocationMode, DefaultLocationMode)))
	if v == "ip" {
		return v
	}
	return DefaultLocationMode
}

func (s *Store) WeatherEnabled() bool { return s.Bool(KeyWeatherEnabled, false) }

func (s *Store) IdleOnly() bool { return s.Bool(KeyIdleEnabled, true) }

// IdleThresholdSeconds is never negative.
func (s *Store) IdleThresholdSeconds() int {
	v := s.Int(KeyIdleThresholdSec, DefaultIdleThresholdSec)
	if v < 0 {
		return 0
	}
	return v
}

// FloatDensity returns the density preset label.
func (s *Store) FloatDensity() string {
	v := strings.ToLower(strings.TrimSpace(s.String(KeyFloatDensity, DefaultFloatDensity)))
	if _, ok := densityToMaxFloats[v]; ok {
		return v
	}
	return DefaultFloatDensity
}

// MaxFloats maps the density preset to a concurrent float cap.
func (s *Store) MaxFloats() int {
	return densityToMaxFloats[s.FloatDensity()]
}

// FloatSpeed returns the speed preset label.
func (s *Store) FloatSpeed() string {
	v := strings.ToLower(strings.TrimSpace(s.String(KeyFloatSpeed, DefaultFloatSpeed)))
	if _, ok := speedToMillis[v]; ok {
		return v
	}
	return DefaultFloatSpeed
}

// FloatSpeedMillis maps the speed preset to an animation step in ms.
func (s *Store) FloatSpeedMillis() int {
	return speedToMillis[s.FloatSpeed()]
}

func (s *Store) Salutation() string { return strings.TrimSpace(s.String(KeySalutation, "")) }

func (s *Store) UserHint() string { return strings.TrimSpace(s.String(KeyUserHint, "")) }

// Validate checks value before the CLI stores it under key. Free-text keys
// accept anything.
func Validate(key, value string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	oneOf := func(allowed ...string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of %s", key, strings.Join(allowed, ", "))
	}

	switch key {
	case KeyAIEnabled, KeyWeatherEnabled, KeyIdleEnabled:
		return oneOf("true", "false", "1", "0", "yes", "no", "y", "n", "on", "off")
	case KeyTextSource:
		return oneOf("auto", "local", "ai")
	case KeyLocationMode:
		return oneOf("manual", "ip")
	case KeyFloatDensity:
		return oneOf(DensityLabels...)
	case KeyFloatSpeed:
		return oneOf(SpeedLabels...)
	case KeyIdleThresholdSec:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a whole number of seconds", key)
		}
		return nil
	case KeyDeepSeekAPIKey, KeyCity, KeySalutation, KeyUserHint:
		return nil
	}
	return fmt.Errorf("unknown setting %q", key)
}
