package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DachengChen/floatwords/ai"
	"github.com/DachengChen/floatwords/applog"
	"github.com/DachengChen/floatwords/config"
	"github.com/DachengChen/floatwords/contextinfo"
	"github.com/DachengChen/floatwords/controller"
	"github.com/DachengChen/floatwords/idle"
	"github.com/DachengChen/floatwords/provider"
	"github.com/DachengChen/floatwords/settings"
	"github.com/DachengChen/floatwords/spawner"
)

// app bundles everything a command needs.
type app struct {
	cfg      *config.Config
	store    *settings.Store
	creds    *config.Credentials
	local    *provider.Local
	ctl      *controller.Controller
	ctxCache *contextinfo.Cache // nil when the database could not be opened
}

// loadBase reads config, opens logs and the settings store. Commands that
// only inspect state stop here.
func loadBase() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applog.Init(cfg.Paths.LogDir, cfg.Debug || flagDebug); err != nil {
		return nil, err
	}
	ai.SetLogDir(cfg.Paths.LogDir)

	store, err := settings.Open(cfg.Paths.SettingsDir)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:   cfg,
		store: store,
		creds: config.NewCredentials(cfg.AI, store.DeepSeekAPIKey),
	}, nil
}

// newApp wires providers and the controller on top of loadBase.
func newApp() (*app, error) {
	a, err := loadBase()
	if err != nil {
		return nil, err
	}
	cfg, store := a.cfg, a.store

	client, err := ai.NewClient(cfg.AI)
	if err != nil {
		return nil, err
	}

	a.ctxCache, err = contextinfo.OpenCache(cfg.Paths.ContextDB)
	if err != nil {
		applog.Warn("context cache unavailable, lookups will not be cached", "err", err)
		a.ctxCache = nil
	}
	weather := contextinfo.NewWeather(contextinfo.WeatherConfig{
		Enabled:      store.WeatherEnabled,
		GeocodingURL: cfg.Weather.GeocodingURL,
		ForecastURL:  cfg.Weather.ForecastURL,
		HTTP:         &http.Client{Timeout: cfg.Weather.Timeout},
		Cache:        a.ctxCache,
	})
	city := contextinfo.NewCityResolver(store, nil)

	a.local = provider.NewLocal(cfg.Paths.TextsFile)

	newRemote := func() controller.RemoteProvider {
		return provider.NewRemote(provider.RemoteConfig{
			CacheDir:    cfg.Paths.CacheDir,
			Client:      client,
			Model:       cfg.AI.ModelName(),
			Temperature: cfg.AI.Temperature,
			ItemsPerDay: cfg.AI.ItemsPerDay,
			APIKey:      a.creds.Key,
			KeyRequired: config.RequiresKey(cfg.AI.Backend),
			City:        city,
			Weather:     weather,
			Preferences: func() provider.Preferences {
				return provider.Preferences{Salutation: store.Salutation(), UserHint: store.UserHint()}
			},
			PromptTemplate: cfg.AI.PromptTemplate,
		})
	}

	a.ctl = controller.New(controller.Options{
		Local:           a.local,
		NewRemote:       newRemote,
		Settings:        store,
		AIEnabled:       store.AIEnabled(),
		Source:          controller.TextSource(store.TextSource()),
		Backoff:         cfg.AI.Backoff,
		FailoverToLocal: cfg.AI.FailoverToLocal,
	})

	_, keySource := a.creds.Resolve()
	applog.Event("app", "started",
		"backend", cfg.AI.Backend,
		"model", cfg.AI.ModelName(),
		"key_source", string(keySource),
		"ai_enabled", store.AIEnabled(),
		"source", store.TextSource(),
	)
	return a, nil
}

func (a *app) scheduler(mon idle.Monitor) *spawner.Scheduler {
	return spawner.New(a.ctl, mon, spawner.Config{
		Interval:      a.cfg.Spawn.Interval,
		IdleOnly:      a.store.IdleOnly(),
		IdleThreshold: time.Duration(a.store.IdleThresholdSeconds()) * time.Second,
		MaxFloats:     a.store.MaxFloats(),
	})
}

// remote returns the concrete remote provider once the controller made one.
func (a *app) remote() (*provider.Remote, bool) {
	if a.ctl == nil {
		return nil, false
	}
	r, ok := a.ctl.Remote().(*provider.Remote)
	return r, ok
}

// close leaves in-flight preparations running. Commands that need the
// result call ctl.Wait first.
func (a *app) close() {
	if a.ctl != nil {
		a.ctl.Exit()
	}
	if a.ctxCache != nil {
		if err := a.ctxCache.Close(); err != nil {
			applog.Warn("close context cache", "err", err)
		}
	}
	applog.Close()
}

func describeKey(src config.KeySource) string {
	switch src {
	case config.KeySourceEnv:
		return "environment"
	case config.KeySourceSettings:
		return "settings"
	case config.KeySourceDefault:
		return "config file"
	default:
		return "not set"
	}
}

func mask(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s…%s", key[:3], key[len(key)-4:])
}
