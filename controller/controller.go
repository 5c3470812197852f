// Package controller decides which text provider is authoritative.
//
// The Controller owns one Local provider and at most one Remote provider.
// Remote preparation runs in a background goroutine guarded by a
// single-flight flag and a rate limiter that enforces the backoff between
// attempts. Draws never fail: an empty or panicking provider falls back to
// Local and finally to a fixed string.
package controller

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/DachengChen/floatwords/applog"
	"github.com/DachengChen/floatwords/provider"
	"github.com/DachengChen/floatwords/settings"
)

// DefaultText is drawn when no provider has anything to offer.
const DefaultText = "Stay relaxed, take it slow."

// DefaultBackoff is the minimum time between automatic remote attempts.
const DefaultBackoff = 60 * time.Second

// RemoteProvider is the remote variant as seen by the controller.
type RemoteProvider interface {
	provider.Provider
	InvalidateToday()
}

// SettingsReader is the part of the settings store the controller re-reads
// in ApplySettings.
type SettingsReader interface {
	AIEnabled() bool
	TextSource() string
}

// Options configures a Controller.
type Options struct {
	Local     provider.Provider
	NewRemote func() RemoteProvider // called lazily, at most once
	Settings  SettingsReader        // optional, used by ApplySettings

	AIEnabled bool
	Source    TextSource

	Backoff         time.Duration // zero means DefaultBackoff, negative disables
	FailoverToLocal bool
	DefaultText     string
	Now             func() time.Time
}

// Controller orchestrates providers and the run state.
type Controller struct {
	local       provider.Provider
	newRemote   func() RemoteProvider
	settings    SettingsReader
	failover    bool
	defaultText string
	backoff     time.Duration
	now         func() time.Time

	mu          sync.Mutex
	remote      RemoteProvider
	current     Kind
	aiEnabled   bool
	source      TextSource
	preparing   bool
	lastAttempt time.Time
	limiter     *rate.Limiter
	state       State
	done        chan struct{}

	events chan Event
	wg     sync.WaitGroup
}

// New creates a Controller with Local active. Call Startup to prepare.
func New(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultText == "" {
		opts.DefaultText = DefaultText
	}
	if _, ok := ParseTextSource(string(opts.Source)); !ok {
		opts.Source = SourceAuto
	}

	backoff := opts.Backoff
	if backoff == 0 {
		backoff = DefaultBackoff
	}
	limit := rate.Inf
	if backoff > 0 {
		limit = rate.Every(backoff)
	}

	return &Controller{
		local:       opts.Local,
		newRemote:   opts.NewRemote,
		settings:    opts.Settings,
		failover:    opts.FailoverToLocal,
		defaultText: opts.DefaultText,
		backoff:     backoff,
		now:         opts.Now,
		current:     KindLocal,
		aiEnabled:   opts.AIEnabled,
		source:      opts.Source,
		limiter:     rate.NewLimiter(limit, 1),
		state:       StateStopped,
		done:        make(chan struct{}),
		events:      make(chan Event, 64),
	}
}

// Startup prepares Local synchronously, then requests remote preparation
// in the background if the configuration calls for AI.
func (c *Controller) Startup() {
	func() {
		defer func() {
			if r := recover(); r != nil {
				applog.Error("local prepare panicked", "panic", r)
			}
		}()
		c.local.Prepare()
	}()
	applog.Info("local provider prepared", "ready", safeReady(c.local))

	c.mu.Lock()
	want := c.aiEnabled && c.source.wantsAI()
	c.mu.Unlock()
	if want {
		c.prepareAIAsync()
	}
}

// prepareAIAsync starts one background Prepare unless one is in flight or
// the last attempt is within the backoff window. It reports whether an
// attempt was started.
func (c *Controller) prepareAIAsync() bool {
	c.mu.Lock()
	if c.preparing {
		c.mu.Unlock()
		applog.Debug("AI preparation already in flight, skipping")
		return false
	}
	// A missing remote must not consume the backoff token.
	remote := c.ensureRemoteLocked()
	if remote == nil {
		c.mu.Unlock()
		applog.Warn("no remote provider configured")
		return false
	}
	now := c.now()
	if !c.limiter.AllowN(now, 1) {
		wait := c.backoffRemainingLocked(now)
		c.mu.Unlock()
		applog.Info("AI backoff active, skipping attempt (use refresh to force)", "retry_in", wait.Round(time.Second))
		return false
	}
	c.preparing = true
	c.lastAttempt = now
	c.mu.Unlock()

	c.emit(Event{Type: EventAIPreparingChanged, Preparing: true})
	c.wg.Add(1)
	go c.runPrepare(remote, false, false)
	return true
}

// runPrepare runs in its own goroutine. invalidate drops today's cache
// first. refresh marks a user-initiated refresh, which switches to AI on
// success without consulting the text source.
func (c *Controller) runPrepare(remote RemoteProvider, invalidate, refresh bool) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			applog.Error("AI preparation panicked", "panic", r)
		}
		c.mu.Lock()
		c.preparing = false
		c.mu.Unlock()
		c.emit(Event{Type: EventAIPreparingChanged, Preparing: false})
	}()

	if invalidate {
		remote.InvalidateToday()
	}
	remote.Prepare()

	if !remote.IsReady() {
		applog.Info("AI provider not ready, keeping local texts", "refresh", refresh)
		return
	}

	c.mu.Lock()
	switchToAI := c.aiEnabled && (refresh || c.source.wantsAI())
	if switchToAI {
		c.current = KindAI
	}
	c.mu.Unlock()

	if switchToAI {
		applog.Event("provider", "switched to AI provider", "refresh", refresh)
		c.emit(Event{Type: EventProviderChanged, Provider: KindAI})
	}
}

func (c *Controller) ensureRemoteLocked() RemoteProvider {
	if c.remote == nil && c.newRemote != nil {
		c.remote = c.newRemote()
	}
	return c.remote
}

func (c *Controller) backoffRemainingLocked(now time.Time) time.Duration {
	if c.backoff <= 0 {
		return 0
	}
	missing := 1 - c.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(c.backoff))
}

// SetAIEnabled switches to Local when disabling. When enabling it switches
// to a ready remote provider or starts preparing one.
func (c *Controller) SetAIEnabled(enabled bool) {
	c.mu.Lock()
	c.aiEnabled = enabled
	if !enabled {
		c.current = KindLocal
		c.mu.Unlock()
		applog.Event("provider", "switched to local provider", "reason", "AI disabled")
		c.emit(Event{Type: EventProviderChanged, Provider: KindLocal})
		return
	}
	if c.remote != nil && safeReady(c.remote) {
		c.current = KindAI
		c.mu.Unlock()
		applog.Event("provider", "switched to AI provider", "reason", "AI enabled")
		c.emit(Event{Type: EventProviderChanged, Provider: KindAI})
		return
	}
	c.mu.Unlock()
	applog.Info("AI provider not ready, preparing in background")
	c.prepareAIAsync()
}

// SetTextSource applies auto, local or ai. Anything else is ignored and
// reported as false.
func (c *Controller) SetTextSource(source string) bool {
	src, ok := ParseTextSource(source)
	if !ok {
		applog.Warn("ignoring unknown text source", "source", source)
		return false
	}

	c.mu.Lock()
	c.source = src
	if src == SourceLocal {
		c.current = KindLocal
		c.mu.Unlock()
		c.emit(Event{Type: EventProviderChanged, Provider: KindLocal})
		return true
	}
	if c.aiEnabled && c.remote != nil && safeReady(c.remote) {
		c.current = KindAI
		c.mu.Unlock()
		c.emit(Event{Type: EventProviderChanged, Provider: KindAI})
		return true
	}
	enabled := c.aiEnabled
	c.mu.Unlock()

	if enabled {
		c.prepareAIAsync()
	}
	return true
}

// RefreshTodayAI invalidates today's batch and regenerates it in the
// background, bypassing the backoff. It is a no-op while AI is disabled or
// a preparation is in flight, and reports whether a refresh was started.
func (c *Controller) RefreshTodayAI() bool {
	c.mu.Lock()
	if !c.aiEnabled {
		c.mu.Unlock()
		applog.Info("AI disabled, ignoring refresh")
		return false
	}
	if c.preparing {
		c.mu.Unlock()
		applog.Info("AI preparation in flight, ignoring refresh")
		return false
	}
	remote := c.ensureRemoteLocked()
	if remote == nil {
		c.mu.Unlock()
		applog.Warn("no remote provider configured")
		return false
	}
	c.preparing = true
	c.lastAttempt = c.now()
	c.mu.Unlock()

	c.emit(Event{Type: EventAIPreparingChanged, Preparing: true})
	c.wg.Add(1)
	go c.runPrepare(remote, true, true)
	return true
}

// ApplySettings re-reads the changed keys and dispatches to the setters.
// Keys that only shape the prompt are logged and wait for the next
// explicit refresh.
func (c *Controller) ApplySettings(changed []string) {
	if c.settings == nil {
		return
	}
	keys := make(map[string]bool, len(changed))
	for _, k := range changed {
		keys[k] = true
	}

	if keys[settings.KeyAIEnabled] {
		c.SetAIEnabled(c.settings.AIEnabled())
	}
	if keys[settings.KeyTextSource] {
		c.SetTextSource(c.settings.TextSource())
	}
	if keys[settings.KeyDeepSeekAPIKey] {
		c.mu.Lock()
		want := c.aiEnabled && c.source.wantsAI()
		c.mu.Unlock()
		if want {
			c.prepareAIAsync()
		}
	}
	for _, k := range []string{settings.KeyCity, settings.KeyLocationMode, settings.KeyWeatherEnabled, settings.KeySalutation, settings.KeyUserHint} {
		if keys[k] {
			applog.Info("setting saved; refresh today's AI texts to apply it", "key", k)
		}
	}
}

// NextText draws one text. It never blocks on I/O and never returns "".
func (c *Controller) NextText() string {
	c.mu.Lock()
	active, isLocal := c.activeLocked()
	c.mu.Unlock()

	text := safeDraw(active)
	if text == "" && c.failover && !isLocal && safeReady(c.local) {
		text = safeDraw(c.local)
		if text != "" {
			applog.Debug("fell back to local text")
		}
	}
	if text == "" {
		text = c.defaultText
	}
	return text
}

func (c *Controller) activeLocked() (provider.Provider, bool) {
	if c.current == KindAI && c.remote != nil {
		return c.remote, false
	}
	return c.local, true
}

func safeReady(p provider.Provider) (ok bool) {
	if p == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			applog.Error("provider readiness check panicked", "panic", r)
			ok = false
		}
	}()
	return p.IsReady()
}

func safeDraw(p provider.Provider) (text string) {
	if !safeReady(p) {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			applog.Error("provider draw panicked", "panic", r)
			text = ""
		}
	}()
	return p.NextText()
}

// Start begins spawning. It is ignored once exiting.
func (c *Controller) Start() {
	if c.setState(StateRunning) {
		c.emit(Event{Type: EventRunningChanged, Running: true})
	}
}

// Pause stops spawning but leaves existing floats alone.
func (c *Controller) Pause() {
	if c.setState(StatePaused) {
		c.emit(Event{Type: EventRunningChanged, Running: false})
	}
}

// Stop stops spawning; the UI clears existing floats.
func (c *Controller) Stop() {
	if c.setState(StateStopped) {
		c.emit(Event{Type: EventRunningChanged, Running: false})
	}
}

// Exit moves to the terminal state and closes Done. Repeated calls are
// no-ops.
func (c *Controller) Exit() {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return
	}
	c.state = StateExiting
	close(c.done)
	c.mu.Unlock()
	applog.Event("app", "exiting")
	c.emit(Event{Type: EventRunningChanged, Running: false})
}

// Toggle flips between running and paused.
func (c *Controller) Toggle() {
	if c.State() == StateRunning {
		c.Pause()
		return
	}
	c.Start()
}

func (c *Controller) setState(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateExiting {
		return false
	}
	c.state = s
	applog.Event("app", fmt.Sprintf("state %s", s))
	return true
}

// State returns the current run state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether spawning is active.
func (c *Controller) Running() bool {
	return c.State() == StateRunning
}

// Current returns the active provider kind.
func (c *Controller) Current() Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Status returns a snapshot of the orchestrator state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	now := c.now()
	st := Status{
		State:            c.state,
		Provider:         c.current,
		AIEnabled:        c.aiEnabled,
		Source:           c.source,
		Preparing:        c.preparing,
		LastAttempt:      c.lastAttempt,
		BackoffRemaining: c.backoffRemainingLocked(now),
	}
	remote := c.remote
	c.mu.Unlock()

	st.LocalReady = safeReady(c.local)
	if remote != nil {
		st.RemoteReady = safeReady(remote)
		if f, ok := remote.(interface{ LastFailure() time.Time }); ok {
			st.LastFailure = f.LastFailure()
		}
	}
	return st
}

// Remote returns the remote provider, or nil if none was created yet.
func (c *Controller) Remote() RemoteProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// Events delivers state notifications. Events are dropped when the buffer
// is full rather than blocking the sender.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Done is closed by Exit.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until background preparations have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		applog.Debug("event dropped, consumer not keeping up", "type", ev.Type)
	}
}
