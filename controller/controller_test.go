package controller

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DachengChen/floatwords/settings"
)

// fakeProvider is a scriptable provider. Prepare sets ready to readyAfter
// and counts calls; NextText draws from texts or panics.
type fakeProvider struct {
	mu          sync.Mutex
	texts       []string
	ready       bool
	readyAfter  bool
	panicOnDraw bool
	prepares    atomic.Int32
	invalidates atomic.Int32
	block       chan struct{}
}

func (f *fakeProvider) Prepare() {
	f.prepares.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.ready = f.readyAfter
	f.mu.Unlock()
}

func (f *fakeProvider) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeProvider) NextText() string {
	if f.panicOnDraw {
		panic("draw failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeProvider) InvalidateToday() {
	f.invalidates.Add(1)
	f.mu.Lock()
	f.ready = false
	f.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func newTestController(local, remote *fakeProvider, clk *clock, mutate func(*Options)) *Controller {
	opts := Options{
		Local:           local,
		NewRemote:       func() RemoteProvider { return remote },
		AIEnabled:       true,
		Source:          SourceAuto,
		Backoff:         60 * time.Second,
		FailoverToLocal: true,
		Now:             clk.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func TestStartupPreparesLocalThenRemote(t *testing.T) {
	local := &fakeProvider{readyAfter: true, texts: []string{"L"}}
	remote := &fakeProvider{readyAfter: true, texts: []string{"R"}}
	c := newTestController(local, remote, newClock(), nil)

	c.Startup()
	c.Wait()

	if local.prepares.Load() != 1 || remote.prepares.Load() != 1 {
		t.Fatalf("prepares local=%d remote=%d", local.prepares.Load(), remote.prepares.Load())
	}
	if c.Current() != KindAI {
		t.Fatalf("Current() = %s, want ai", c.Current())
	}
	if got := c.NextText(); got != "R" {
		t.Fatalf("NextText() = %q", got)
	}
	if c.Status().Preparing {
		t.Fatal("preparing left set")
	}
}

func TestStartupSkipsRemoteForLocalSource(t *testing.T) {
	local := &fakeProvider{readyAfter: true}
	remote := &fakeProvider{readyAfter: true}
	c := newTestController(local, remote, newClock(), func(o *Options) { o.Source = SourceLocal })

	c.Startup()
	c.Wait()

	if remote.prepares.Load() != 0 {
		t.Fatal("remote prepared although source is local")
	}
	if c.Remote() != nil {
		t.Fatal("remote should not be created")
	}
}

func TestBackoffAllowsOneAttemptPerWindow(t *testing.T) {
	clk := newClock()
	remote := &fakeProvider{readyAfter: false}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, clk, nil)

	if !c.prepareAIAsync() {
		t.Fatal("first attempt should start")
	}
	c.Wait()
	clk.Advance(10 * time.Second)
	if c.prepareAIAsync() {
		t.Fatal("second attempt inside backoff should be skipped")
	}
	c.Wait()

	if n := remote.prepares.Load(); n != 1 {
		t.Fatalf("network attempts = %d, want 1", n)
	}
	if rem := c.Status().BackoffRemaining; rem < 49*time.Second || rem > 50*time.Second {
		t.Errorf("BackoffRemaining = %v, want ~50s", rem)
	}

	clk.Advance(51 * time.Second)
	if !c.prepareAIAsync() {
		t.Fatal("attempt after backoff should start")
	}
	c.Wait()
	if n := remote.prepares.Load(); n != 2 {
		t.Fatalf("network attempts = %d, want 2", n)
	}
}

func TestPrepareAIAsyncIsSingleFlight(t *testing.T) {
	remote := &fakeProvider{readyAfter: true, block: make(chan struct{})}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), func(o *Options) { o.Backoff = -1 })

	if !c.prepareAIAsync() {
		t.Fatal("first attempt should start")
	}
	if c.prepareAIAsync() {
		t.Fatal("concurrent attempt should be rejected")
	}
	if c.RefreshTodayAI() {
		t.Fatal("refresh should be rejected while preparing")
	}
	close(remote.block)
	c.Wait()

	if n := remote.prepares.Load(); n != 1 {
		t.Fatalf("prepares = %d", n)
	}
}

func TestFailoverToLocalWhenRemotePanics(t *testing.T) {
	local := &fakeProvider{readyAfter: true}
	remote := &fakeProvider{readyAfter: true, panicOnDraw: true}
	c := newTestController(local, remote, newClock(), nil)
	c.Startup()
	c.Wait()
	if c.Current() != KindAI {
		t.Fatal("expected ai active")
	}

	want := map[string]bool{"A": true, "B": true}
	for _, texts := range [][]string{{"A"}, {"A", "B"}} {
		local.mu.Lock()
		local.texts = texts
		local.mu.Unlock()
		if got := c.NextText(); !want[got] {
			t.Fatalf("NextText() = %q, want A or B", got)
		}
	}
}

func TestNoFailoverWhenDisabled(t *testing.T) {
	local := &fakeProvider{readyAfter: true, texts: []string{"A"}}
	remote := &fakeProvider{readyAfter: true}
	c := newTestController(local, remote, newClock(), func(o *Options) { o.FailoverToLocal = false })
	c.Startup()
	c.Wait()

	if got := c.NextText(); got != DefaultText {
		t.Fatalf("NextText() = %q, want default", got)
	}
}

func TestDefaultTextWhenEverythingIsEmpty(t *testing.T) {
	local := &fakeProvider{readyAfter: false}
	c := newTestController(local, &fakeProvider{}, newClock(), func(o *Options) { o.AIEnabled = false })
	c.Startup()
	c.Wait()

	if got := c.NextText(); got != DefaultText {
		t.Fatalf("NextText() = %q", got)
	}

	c2 := newTestController(local, &fakeProvider{}, newClock(), func(o *Options) {
		o.AIEnabled = false
		o.DefaultText = "breathe"
	})
	if got := c2.NextText(); got != "breathe" {
		t.Fatalf("NextText() = %q", got)
	}
}

func TestSetAIEnabled(t *testing.T) {
	local := &fakeProvider{readyAfter: true, texts: []string{"L"}}
	remote := &fakeProvider{readyAfter: true, texts: []string{"R"}}
	c := newTestController(local, remote, newClock(), nil)
	c.Startup()
	c.Wait()

	c.SetAIEnabled(false)
	if c.Current() != KindLocal || c.NextText() != "L" {
		t.Fatal("disabling should switch to local immediately")
	}

	c.SetAIEnabled(true)
	if c.Current() != KindAI {
		t.Fatal("enabling with a ready remote should switch immediately")
	}
	if n := remote.prepares.Load(); n != 1 {
		t.Fatalf("ready remote should not be re-prepared, prepares = %d", n)
	}
}

func TestSetAIEnabledPreparesWhenNotReady(t *testing.T) {
	remote := &fakeProvider{readyAfter: true}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), func(o *Options) { o.AIEnabled = false })
	c.Startup()
	c.Wait()
	if remote.prepares.Load() != 0 {
		t.Fatal("disabled AI must not prepare")
	}

	c.SetAIEnabled(true)
	c.Wait()
	if remote.prepares.Load() != 1 || c.Current() != KindAI {
		t.Fatalf("prepares=%d current=%s", remote.prepares.Load(), c.Current())
	}
}

func TestSetTextSource(t *testing.T) {
	remote := &fakeProvider{readyAfter: true}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), nil)
	c.Startup()
	c.Wait()

	if c.SetTextSource("cloud") {
		t.Fatal("invalid source accepted")
	}
	if c.Current() != KindAI || c.Status().Source != SourceAuto {
		t.Fatal("invalid source must be a no-op")
	}

	c.SetTextSource("LOCAL")
	if c.Current() != KindLocal {
		t.Fatal("local source should force local")
	}

	c.SetTextSource("ai")
	if c.Current() != KindAI {
		t.Fatal("ai source with a ready remote should switch")
	}
}

func TestBackgroundCompletionRespectsSource(t *testing.T) {
	remote := &fakeProvider{readyAfter: true, block: make(chan struct{})}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), nil)
	c.Startup()

	// The user picks local while the batch is still generating.
	c.SetTextSource("local")
	close(remote.block)
	c.Wait()

	if c.Current() != KindLocal {
		t.Fatal("completion must not override an explicit local source")
	}
}

func TestRefreshTodayAI(t *testing.T) {
	remote := &fakeProvider{readyAfter: true}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), nil)

	// Creating the remote still invalidates today's batch.
	if !c.RefreshTodayAI() {
		t.Fatal("refresh should start")
	}
	c.Wait()
	if remote.invalidates.Load() != 1 || c.Current() != KindAI {
		t.Fatalf("invalidates=%d current=%s", remote.invalidates.Load(), c.Current())
	}

	// Refreshes ignore the backoff.
	if !c.RefreshTodayAI() {
		t.Fatal("refresh should start again")
	}
	c.Wait()
	if remote.invalidates.Load() != 2 || remote.prepares.Load() != 2 {
		t.Fatalf("invalidates=%d prepares=%d", remote.invalidates.Load(), remote.prepares.Load())
	}

	c.SetAIEnabled(false)
	if c.RefreshTodayAI() {
		t.Fatal("refresh with AI disabled should be a no-op")
	}
}

func TestRefreshFailureKeepsCurrentProvider(t *testing.T) {
	remote := &fakeProvider{readyAfter: false}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), nil)
	c.RefreshTodayAI()
	c.Wait()
	if c.Current() != KindLocal {
		t.Fatal("failed refresh must keep local")
	}
	if c.Status().Preparing {
		t.Fatal("preparing left set")
	}
}

type stubSettings struct {
	ai     bool
	source string
}

func (s stubSettings) AIEnabled() bool    { return s.ai }
func (s stubSettings) TextSource() string { return s.source }

func TestApplySettings(t *testing.T) {
	remote := &fakeProvider{readyAfter: true}
	st := &stubSettings{ai: true, source: "auto"}
	c := newTestController(&fakeProvider{readyAfter: true}, remote, newClock(), func(o *Options) {
		o.Settings = st
		o.Backoff = -1
	})
	c.Startup()
	c.Wait()

	// Prompt-shaping keys never regenerate.
	c.ApplySettings([]string{settings.KeyCity, settings.KeyWeatherEnabled, settings.KeySalutation, settings.KeyUserHint})
	c.Wait()
	if remote.prepares.Load() != 1 {
		t.Fatalf("context keys triggered preparation: %d", remote.prepares.Load())
	}

	st.ai = false
	c.ApplySettings([]string{settings.KeyAIEnabled})
	if c.Current() != KindLocal {
		t.Fatal("ai/enabled=false should switch to local")
	}

	st.ai = true
	st.source = "local"
	c.ApplySettings([]string{settings.KeyAIEnabled, settings.KeyTextSource})
	c.Wait()
	if c.Current() != KindLocal {
		t.Fatalf("source local should win, current=%s", c.Current())
	}

	st.source = "auto"
	c.ApplySettings([]string{settings.KeyTextSource})
	c.Wait()
	if c.Current() != KindAI {
		t.Fatal("source auto with ready remote should switch to ai")
	}

	c.ApplySettings([]string{settings.KeyDeepSeekAPIKey})
	c.Wait()
	if remote.prepares.Load() != 2 {
		t.Fatalf("new key should trigger a preparation, prepares=%d", remote.prepares.Load())
	}
}

func TestRunStateAndEvents(t *testing.T) {
	c := newTestController(&fakeProvider{readyAfter: true}, &fakeProvider{}, newClock(), func(o *Options) { o.AIEnabled = false })

	c.Start()
	if !c.Running() {
		t.Fatal("expected running")
	}
	c.Toggle()
	if c.State() != StatePaused {
		t.Fatalf("state = %s", c.State())
	}
	c.Stop()
	c.Exit()
	c.Exit()
	c.Start()
	if c.State() != StateExiting {
		t.Fatalf("exit must be terminal, state = %s", c.State())
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}

	var running []bool
	for len(c.Events()) > 0 {
		ev := <-c.Events()
		if ev.Type == EventRunningChanged {
			running = append(running, ev.Running)
		}
	}
	want := []bool{true, false, false, false}
	if len(running) != len(want) {
		t.Fatalf("running events = %v, want %v", running, want)
	}
	for i := range want {
		if running[i] != want[i] {
			t.Fatalf("running events = %v, want %v", running, want)
		}
	}
}

func TestPreparingEvents(t *testing.T) {
	c := newTestController(&fakeProvider{readyAfter: true}, &fakeProvider{readyAfter: true}, newClock(), nil)
	c.Startup()
	c.Wait()

	var got []Event
	for len(c.Events()) > 0 {
		got = append(got, <-c.Events())
	}
	want := []Event{
		{Type: EventAIPreparingChanged, Preparing: true},
		{Type: EventProviderChanged, Provider: KindAI},
		{Type: EventAIPreparingChanged, Preparing: false},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseTextSource(t *testing.T) {
	for in, want := range map[string]TextSource{"auto": SourceAuto, " Local ": SourceLocal, "AI": SourceAI} {
		if got, ok := ParseTextSource(in); !ok || got != want {
			t.Errorf("ParseTextSource(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseTextSource("remote"); ok {
		t.Error("remote should be rejected")
	}
}
