// Package spawner decides when a new float appears.
//
// A Scheduler ticks at a fixed interval. Each tick is accepted only while
// the controller is running, the user has been idle long enough (when idle
// gating is on) and fewer than MaxFloats floats are alive. An accepted tick
// draws a text and hands it to a Sink.
package spawner

import (
	"context"
	"sync"
	"time"

	"github.com/DachengChen/floatwords/applog"
	"github.com/DachengChen/floatwords/idle"
	"github.com/DachengChen/floatwords/settings"
)

// Source is the controller as seen by the scheduler.
type Source interface {
	Running() bool
	NextText() string
}

// Sink displays floats.
type Sink interface {
	Live() int
	Spawn(text string)
}

// Config holds the tunables that settings may change at runtime.
type Config struct {
	Interval      time.Duration
	IdleOnly      bool
	IdleThreshold time.Duration
	MaxFloats     int
}

// DefaultConfig matches the stored-setting defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      1800 * time.Millisecond,
		IdleOnly:      true,
		IdleThreshold: settings.DefaultIdleThresholdSec * time.Second,
		MaxFloats:     8,
	}
}

// SettingsReader is the part of the settings store the scheduler re-reads.
type SettingsReader interface {
	IdleOnly() bool
	IdleThresholdSeconds() int
	MaxFloats() int
}

// Scheduler gates spawn requests.
type Scheduler struct {
	src  Source
	idle idle.Monitor

	mu  sync.Mutex
	cfg Config
}

// New creates a Scheduler. A nil monitor never blocks spawning.
func New(src Source, mon idle.Monitor, cfg Config) *Scheduler {
	if mon == nil {
		mon = idle.Fallback{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Scheduler{src: src, idle: mon, cfg: cfg}
}

// Config returns the current configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Next runs the gates for one tick given the number of live floats. It
// returns the text to show and true, or "" and false when the tick is
// skipped.
func (s *Scheduler) Next(live int) (string, bool) {
	cfg := s.Config()

	if !s.src.Running() {
		return "", false
	}
	if cfg.IdleOnly {
		idleFor, ok := s.idleSeconds()
		if ok && idleFor < cfg.IdleThreshold.Seconds() {
			applog.Debug("user active, skip spawn", "idle", idleFor, "threshold", cfg.IdleThreshold.Seconds())
			return "", false
		}
	}
	if live >= cfg.MaxFloats {
		applog.Debug("float cap reached, skip spawn", "live", live, "max", cfg.MaxFloats)
		return "", false
	}
	return s.src.NextText(), true
}

// idleSeconds reports false when the monitor fails, which allows spawning.
func (s *Scheduler) idleSeconds() (secs float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			applog.Warn("idle monitor failed, allowing spawn", "panic", r)
			secs, ok = 0, false
		}
	}()
	return s.idle.IdleSeconds(), true
}

// Run ticks until ctx is done, spawning into sink.
func (s *Scheduler) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(s.Config().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if text, ok := s.Next(sink.Live()); ok {
				sink.Spawn(text)
			}
		}
	}
}

// ApplySettings re-reads idle gating and density after a settings change.
func (s *Scheduler) ApplySettings(changed []string, st SettingsReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range changed {
		switch k {
		case settings.KeyIdleEnabled:
			s.cfg.IdleOnly = st.IdleOnly()
			applog.Info("idle gating updated", "enabled", s.cfg.IdleOnly)
		case settings.KeyIdleThresholdSec:
			s.cfg.IdleThreshold = time.Duration(st.IdleThresholdSeconds()) * time.Second
			applog.Info("idle threshold updated", "threshold", s.cfg.IdleThreshold)
		case settings.KeyFloatDensity:
			s.cfg.MaxFloats = st.MaxFloats()
			applog.Info("float cap updated", "max", s.cfg.MaxFloats)
		}
	}
}
