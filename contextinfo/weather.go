package contextinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DachengChen/floatwords/applog"
)

// WeatherConfig wires a Weather resolver.
type WeatherConfig struct {
	Enabled      func() bool // checked on every call
	GeocodingURL string
	ForecastURL  string
	HTTP         *http.Client
	Cache        *Cache // optional
	Now          func() time.Time
}

// Weather turns a city name into a one-line summary via Open-Meteo, e.g.
// "12°C, overcast, wind 1.0m/s (NE)".
type Weather struct {
	cfg WeatherConfig
}

var errCityNotFound = errors.New("city not found")

// NewWeather creates a resolver.
func NewWeather(cfg WeatherConfig) *Weather {
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &Weather{cfg: cfg}
}

// Summary returns "" with a nil error when weather is disabled or city is
// empty. Lookup failures return "" and the error.
func (w *Weather) Summary(ctx context.Context, city string) (string, error) {
	if w.cfg.Enabled != nil && !w.cfg.Enabled() {
		return "", nil
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return "", nil
	}
	now := w.cfg.Now()

	place, err := w.resolve(ctx, city, now)
	if err != nil {
		return "", fmt.Errorf("geocode %q: %w", city, err)
	}

	placeKey := fmt.Sprintf("%.3f,%.3f", place.Latitude, place.Longitude)
	if w.cfg.Cache != nil {
		if s, ok, err := w.cfg.Cache.Conditions(placeKey, ConditionsTTL, now); err == nil && ok {
			return s, nil
		} else if err != nil {
			applog.Warn("weather cache read failed", "err", err)
		}
	}

	summary, err := w.current(ctx, place)
	if err != nil {
		return "", fmt.Errorf("current weather for %q: %w", city, err)
	}
	if w.cfg.Cache != nil {
		if err := w.cfg.Cache.PutConditions(placeKey, summary, now); err != nil {
			applog.Warn("weather cache write failed", "err", err)
		}
	}
	return summary, nil
}

func (w *Weather) resolve(ctx context.Context, city string, now time.Time) (Place, error) {
	if w.cfg.Cache != nil {
		if p, ok, err := w.cfg.Cache.Geocode(city, GeocodeTTL, now); err == nil && ok {
			return p, nil
		} else if err != nil {
			applog.Warn("geocode cache read failed", "err", err)
		}
	}

	var candidates []geoResult
	var lastErr error
	for _, q := range cityQueries(city) {
		for _, lang := range []string{"en", "zh"} {
			res, err := w.geocode(ctx, q, lang)
			if err != nil {
				lastErr = err
				continue
			}
			if len(res) > 0 {
				candidates = append(candidates, res...)
				break
			}
		}
	}

	best, ok := bestResult(candidates)
	if !ok {
		if lastErr != nil {
			return Place{}, lastErr
		}
		return Place{}, errCityNotFound
	}

	p := Place{
		Name:        best.Name,
		Latitude:    best.Latitude,
		Longitude:   best.Longitude,
		Country:     best.Country,
		CountryCode: best.CountryCode,
	}
	if w.cfg.Cache != nil {
		if err := w.cfg.Cache.PutGeocode(city, p, now); err != nil {
			applog.Warn("geocode cache write failed", "err", err)
		}
	}
	return p, nil
}

type geoResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Population  float64 `json:"population"`
}

func (w *Weather) geocode(ctx context.Context, query, lang string) ([]geoResult, error) {
	params := url.Values{}
	params.Set("name", query)
	params.Set("count", "10")
	params.Set("language", lang)
	params.Set("format", "json")

	var out struct {
		Results []geoResult `json:"results"`
	}
	if err := w.getJSON(ctx, w.cfg.GeocodingURL+"?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (w *Weather) current(ctx context.Context, p Place) (string, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(p.Latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(p.Longitude, 'f', 4, 64))
	params.Set("current", "temperature_2m,weather_code,wind_speed_10m,wind_direction_10m")
	params.Set("wind_speed_unit", "ms")
	params.Set("timezone", "auto")

	var out struct {
		Current *struct {
			Temperature   float64  `json:"temperature_2m"`
			WeatherCode   int      `json:"weather_code"`
			WindSpeed     float64  `json:"wind_speed_10m"`
			WindDirection *float64 `json:"wind_direction_10m"`
		} `json:"current"`
	}
	if err := w.getJSON(ctx, w.cfg.ForecastURL+"?"+params.Encode(), &out); err != nil {
		return "", err
	}
	if out.Current == nil {
		return "", errors.New("response has no current conditions")
	}
	c := out.Current
	return FormatSummary(c.Temperature, c.WeatherCode, c.WindSpeed, c.WindDirection), nil
}

func (w *Weather) getJSON(ctx context.Context, u string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.cfg.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("open-meteo error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}

// cityQueries returns lookup variants, most specific first: the name as
// typed, its last word, apostrophes dropped or spaced, and a trailing
// administrative suffix removed.
func cityQueries(city string) []string {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}
	queries := []string{city}
	if parts := strings.Fields(city); len(parts) > 1 {
		queries = append(queries, parts[len(parts)-1])
	}
	if strings.Contains(city, "'") {
		queries = append(queries, strings.ReplaceAll(city, "'", ""), strings.ReplaceAll(city, "'", " "))
	}
	for _, suffix := range []string{"市", "县", "区", "省", " City"} {
		if strings.HasSuffix(city, suffix) {
			queries = append(queries, strings.TrimSpace(strings.TrimSuffix(city, suffix)))
			break
		}
	}

	seen := make(map[string]bool, len(queries))
	out := queries[:0]
	for _, q := range queries {
		if q != "" && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// bestResult prefers the most populous candidate.
func bestResult(results []geoResult) (geoResult, bool) {
	if len(results) == 0 {
		return geoResult{}, false
	}
	sorted := append([]geoResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Population > sorted[j].Population })
	return sorted[0], true
}

var weatherCodes = map[int]string{
	0:  "clear",
	1:  "mostly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "fog",
	51: "drizzle",
	53: "drizzle",
	55: "drizzle",
	56: "freezing drizzle",
	57: "freezing drizzle",
	61: "light rain",
	63: "rain",
	65: "heavy rain",
	66: "freezing rain",
	67: "freezing rain",
	71: "light snow",
	73: "snow",
	75: "heavy snow",
	77: "snow grains",
	80: "showers",
	81: "showers",
	82: "heavy showers",
	85: "snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with hail",
	99: "severe thunderstorm with hail",
}

// WindDirection maps degrees to one of eight compass points.
func WindDirection(deg float64) string {
	points := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	d := mathMod(deg, 360)
	return points[int((d+22.5)/45)%8]
}

func mathMod(a, b float64) float64 {
	m := a - b*float64(int(a/b))
	if m < 0 {
		m += b
	}
	return m
}

// FormatSummary renders current conditions, e.g. "12°C, overcast, wind 1.0m/s (NE)".
func FormatSummary(tempC float64, code int, windMS float64, windDeg *float64) string {
	desc, ok := weatherCodes[code]
	if !ok {
		desc = "unknown conditions"
	}
	s := fmt.Sprintf("%.0f°C, %s, wind %.1fm/s", tempC, desc, windMS)
	if windDeg != nil {
		s += " (" + WindDirection(*windDeg) + ")"
	}
	return s
}
