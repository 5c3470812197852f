package contextinfo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/DachengChen/floatwords/applog"
)

// CitySettings is the part of the settings store the city resolver reads.
type CitySettings interface {
	City() string
	LocationMode() string
}

// CityResolver returns the user's city. In manual mode that is the stored
// city; ip mode is reserved and yields "". The answer is cached for the
// rest of the day unless the stored city or mode changes.
type CityResolver struct {
	settings CitySettings
	now      func() time.Time

	mu    sync.Mutex
	key   string
	value string
}

// NewCityResolver creates a resolver. A nil now uses time.Now.
func NewCityResolver(s CitySettings, now func() time.Time) *CityResolver {
	if now == nil {
		now = time.Now
	}
	return &CityResolver{settings: s, now: now}
}

func (r *CityResolver) City(ctx context.Context) (string, error) {
	mode := strings.ToLower(r.settings.LocationMode())
	configured := strings.TrimSpace(r.settings.City())
	key := r.now().Format("2006-01-02") + "|" + mode + "|" + configured

	r.mu.Lock()
	defer r.mu.Unlock()
	if key == r.key {
		return r.value, nil
	}

	var city string
	switch mode {
	case "ip":
		applog.Debug("location mode ip is not implemented, city left empty")
	default:
		city = configured
	}
	r.key, r.value = key, city
	return city, nil
}
