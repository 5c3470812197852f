package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DachengChen/floatwords/ai"
	"github.com/DachengChen/floatwords/applog"
)

// CityResolver returns the user's city, or "" when unknown.
type CityResolver interface {
	City(ctx context.Context) (string, error)
}

// WeatherResolver returns a short weather summary for city, or "".
type WeatherResolver interface {
	Summary(ctx context.Context, city string) (string, error)
}

// Preferences are free-text additions to the prompt.
type Preferences struct {
	Salutation string
	UserHint   string
}

// RemoteConfig wires a Remote provider.
type RemoteConfig struct {
	CacheDir    string
	Client      ai.Client
	Model       string
	Temperature float64
	ItemsPerDay int

	// APIKey resolves the credential on every attempt. KeyRequired false
	// (local or offline backends) skips the "no key, no call" check.
	APIKey      func() string
	KeyRequired bool

	City        CityResolver       // optional
	Weather     WeatherResolver    // optional
	Preferences func() Preferences // optional

	PromptTemplate string        // empty uses ai.DefaultPromptTemplate
	Timeout        time.Duration // upper bound for one Prepare, default 60s
	Now            func() time.Time
}

var errNoItems = errors.New("generation returned no usable items")

// Remote generates one batch of texts per local calendar day and caches it.
type Remote struct {
	cfg RemoteConfig

	mu          sync.Mutex
	preparing   bool
	snapshot    ContextSnapshot
	lastFailure time.Time

	ready atomic.Bool
	pool  pool
}

var _ Provider = (*Remote)(nil)

// NewRemote creates a provider that is not ready until Prepare succeeds.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ItemsPerDay <= 0 {
		cfg.ItemsPerDay = 30
	}
	return &Remote{cfg: cfg}
}

// Prepare loads today's cache file or generates and persists a new batch.
// Overlapping calls are no-ops while one is in flight.
func (r *Remote) Prepare() {
	r.mu.Lock()
	if r.preparing {
		r.mu.Unlock()
		applog.Debug("remote prepare already in flight, skipping")
		return
	}
	r.preparing = true
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(fmt.Errorf("panic: %v", rec))
		}
		r.mu.Lock()
		r.preparing = false
		r.mu.Unlock()
	}()

	if err := r.prepare(); err != nil {
		r.fail(err)
	}
}

func (r *Remote) prepare() error {
	if err := os.MkdirAll(r.cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("ensure cache dir: %w", err)
	}

	now := r.cfg.Now()
	path := CachePath(r.cfg.CacheDir, now)

	if _, err := os.Stat(path); err == nil {
		b, err := LoadBatch(path)
		if err == nil {
			r.mu.Lock()
			r.snapshot = b.Context
			r.mu.Unlock()
			r.pool.store(b.Texts())
			r.ready.Store(true)
			applog.Event("ai", "loaded today's cache", "path", path, "items", len(b.Items))
			return nil
		}
		applog.Warn("today's cache unusable, regenerating", "path", path, "err", err)
	}
	r.pool.clear()
	r.ready.Store(false)

	key := ""
	if r.cfg.APIKey != nil {
		key = r.cfg.APIKey()
	}
	if r.cfg.KeyRequired && key == "" {
		applog.Info("no API key configured, skipping generation (set DEEPSEEK_API_KEY or save a key in settings)")
		return nil
	}
	if r.cfg.Client == nil {
		return errors.New("no AI client configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	b, err := r.generate(ctx, key, now)
	if err != nil {
		return err
	}
	if err := WriteBatch(path, b); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}

	r.pool.store(b.Texts())
	r.ready.Store(true)
	applog.Event("ai", "generated today's batch", "path", path, "items", len(b.Items))
	return nil
}

func (r *Remote) generate(ctx context.Context, key string, now time.Time) (DailyBatch, error) {
	snap := r.resolveContext(ctx, now)
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()

	var prefs Preferences
	if r.cfg.Preferences != nil {
		prefs = r.cfg.Preferences()
	}

	prompt, err := renderPrompt(r.cfg.PromptTemplate, promptData{
		N:          r.cfg.ItemsPerDay,
		Date:       snap.Date,
		Weekday:    snap.Weekday,
		TimeOfDay:  snap.TimeOfDay,
		City:       snap.City,
		Weather:    snap.Weather,
		Salutation: prefs.Salutation,
		UserHint:   prefs.UserHint,
	})
	if err != nil {
		return DailyBatch{}, err
	}

	ai.LogAIRequest("DailyBatch", r.cfg.Client.Name(), map[string]string{
		"Model":  r.cfg.Model,
		"Prompt": prompt,
	})
	content, err := r.cfg.Client.Complete(ctx, ai.Request{
		APIKey:      key,
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		Prompt:      prompt,
	})
	ai.LogAIResponse("DailyBatch", content, err)
	if err != nil {
		return DailyBatch{}, err
	}

	var out looseBatch
	if err := ai.DecodeJSON(content, &out); err != nil {
		return DailyBatch{}, err
	}
	items := out.items()
	if len(items) == 0 {
		return DailyBatch{}, errNoItems
	}

	date := out.date()
	if date == "" {
		date = snap.Date
	}
	return DailyBatch{Date: date, Context: snap, Items: items}, nil
}

// resolveContext asks the collaborators for city and weather. Each lookup
// is isolated: an error or panic leaves that field empty.
func (r *Remote) resolveContext(ctx context.Context, now time.Time) ContextSnapshot {
	snap := snapshotAt(now)
	if r.cfg.City != nil {
		snap.City = guarded("city", func() (string, error) { return r.cfg.City.City(ctx) })
	}
	if r.cfg.Weather != nil && snap.City != "" {
		snap.Weather = guarded("weather", func() (string, error) { return r.cfg.Weather.Summary(ctx, snap.City) })
	}
	return snap
}

func guarded(name string, fn func() (string, error)) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			applog.Warn("context lookup panicked", "lookup", name, "panic", rec)
			out = ""
		}
	}()
	v, err := fn()
	if err != nil {
		applog.Warn("context lookup failed", "lookup", name, "err", err)
		return ""
	}
	return v
}

func (r *Remote) fail(err error) {
	r.ready.Store(false)
	r.mu.Lock()
	r.lastFailure = r.cfg.Now()
	r.mu.Unlock()
	applog.Warn("remote prepare failed", "err", err)
}

// InvalidateToday removes today's cache file and empties the pool. Other
// days are never touched and errors are only logged.
func (r *Remote) InvalidateToday() {
	path := CachePath(r.cfg.CacheDir, r.cfg.Now())
	if err := os.Remove(path); err == nil {
		applog.Event("ai", "removed today's cache", "path", path)
	} else if !os.IsNotExist(err) {
		applog.Warn("remove today's cache", "path", path, "err", err)
	}
	r.pool.clear()
	r.ready.Store(false)
}

func (r *Remote) IsReady() bool {
	return r.ready.Load()
}

func (r *Remote) NextText() string {
	return r.pool.draw()
}

// Preparing reports whether a Prepare call is in flight.
func (r *Remote) Preparing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preparing
}

// LastFailure returns when Prepare last failed; zero if never.
func (r *Remote) LastFailure() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFailure
}

// Context returns the context the current batch was built from.
func (r *Remote) Context() ContextSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Items returns a copy of the current pool.
func (r *Remote) Items() []string {
	return append([]string(nil), r.pool.load()...)
}

// TodayPath returns the cache file for the current day.
func (r *Remote) TodayPath() string {
	return CachePath(r.cfg.CacheDir, r.cfg.Now())
}
