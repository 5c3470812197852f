package provider

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DachengChen/floatwords/ai"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "floatwords-ai-log")
	if err == nil {
		ai.SetLogDir(dir)
	}
	code := m.Run()
	ai.SetLogDir("")
	os.RemoveAll(dir)
	os.Exit(code)
}

// fakeClient records calls and answers with a canned response.
type fakeClient struct {
	calls   atomic.Int32
	content string
	err     error
	block   chan struct{} // when set, Complete waits for it to close
	entered chan struct{}
	prompts []string
	mu      sync.Mutex
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(ctx context.Context, r ai.Request) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, r.Prompt)
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.content, f.err
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

func newTestRemote(t *testing.T, dir string, c ai.Client, key string) *Remote {
	t.Helper()
	return NewRemote(RemoteConfig{
		CacheDir:    dir,
		Client:      c,
		Model:       "deepseek-chat",
		Temperature: 1.2,
		ItemsPerDay: 5,
		APIKey:      func() string { return key },
		KeyRequired: true,
		Now:         func() time.Time { return fixedNow },
	})
}

func writeCache(t *testing.T, dir string, day time.Time, body string) string {
	t.Helper()
	path := CachePath(dir, day)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	return path
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{6, Morning},
		{14, Afternoon},
		{20, Evening},
		{2, LateNight},
		{5, Morning},
		{12, Afternoon},
		{18, Evening},
		{23, LateNight},
		{0, LateNight},
	}
	for _, tt := range tests {
		if got := TimeOfDay(tt.hour); got != tt.want {
			t.Errorf("TimeOfDay(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestCacheHitServesOnlyLoadedTexts(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, fixedNow, `{"date":"2026-03-14","items":[{"text":" one "},{"text":"two"},{"text":""},{"text":"   "}]}`)

	c := &fakeClient{}
	r := newTestRemote(t, dir, c, "sk")
	r.Prepare()

	if !r.IsReady() {
		t.Fatal("expected ready after cache hit")
	}
	if n := c.calls.Load(); n != 0 {
		t.Fatalf("cache hit made %d remote calls", n)
	}
	for i := 0; i < 100; i++ {
		got := r.NextText()
		if got != "one" && got != "two" {
			t.Fatalf("NextText() = %q, not from cache", got)
		}
	}
}

func TestCacheWithoutUsableItemsIsMiss(t *testing.T) {
	bodies := map[string]string{
		"empty list": `{"date":"2026-03-14","items":[]}`,
		"all blank":  `{"date":"2026-03-14","items":[{"text":""},{"text":"  "}]}`,
		"corrupt":    `{"date":`,
		"wrong type": `{"items":[{"text":42}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeCache(t, dir, fixedNow, body)

			r := newTestRemote(t, dir, &fakeClient{}, "")
			r.Prepare()
			if r.IsReady() {
				t.Fatal("unusable cache must not make the provider ready")
			}
			if got := r.NextText(); got != "" {
				t.Fatalf("NextText() = %q, want empty", got)
			}
		})
	}
}

func TestCorruptCacheRegenerates(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, fixedNow, `not json`)

	c := &fakeClient{content: `{"items":[{"text":"fresh"}]}`}
	r := newTestRemote(t, dir, c, "sk")
	r.Prepare()

	if !r.IsReady() || r.NextText() != "fresh" {
		t.Fatalf("expected regenerated batch, ready=%v", r.IsReady())
	}
	if c.calls.Load() != 1 {
		t.Fatalf("calls = %d", c.calls.Load())
	}
}

func TestNoKeyMakesNoCalls(t *testing.T) {
	dir := t.TempDir()
	c := &fakeClient{content: `{"items":[{"text":"x"}]}`}
	r := newTestRemote(t, dir, c, "")

	r.Prepare()

	if r.IsReady() {
		t.Fatal("provider should not be ready without a key")
	}
	if n := c.calls.Load(); n != 0 {
		t.Fatalf("made %d calls without a key", n)
	}
	if !r.LastFailure().IsZero() {
		t.Error("missing key is not a failure")
	}
	if r.Preparing() {
		t.Error("preparing flag left set")
	}
}

func TestGenerateWritesCacheAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := &fakeClient{content: "Here you go:\n```json\n" +
		`{"date":"2026-03-14","items":[{"text":"a","tags":["x"],"weight":0.3},{"text":"b"},{"text":"c <3 & more"}]}` +
		"\n```"}
	r := newTestRemote(t, dir, c, "sk")
	r.Prepare()
	if !r.IsReady() {
		t.Fatal("expected ready after generation")
	}

	raw, err := os.ReadFile(CachePath(dir, fixedNow))
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if strings.Contains(string(raw), `\u003c`) {
		t.Error("cache should not HTML-escape text")
	}
	var onDisk DailyBatch
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("cache is not valid JSON: %v", err)
	}
	if onDisk.Date != "2026-03-14" || onDisk.Context.TimeOfDay != Morning || onDisk.Context.Weekday != "Saturday" {
		t.Errorf("unexpected header: %+v", onDisk)
	}

	// A new instance simulates a restart and must not call the backend.
	c2 := &fakeClient{}
	r2 := newTestRemote(t, dir, c2, "sk")
	r2.Prepare()
	if c2.calls.Load() != 0 {
		t.Fatal("restart should hit the cache")
	}
	if got, want := setOf(r2.Items()), setOf([]string{"a", "b", "c <3 & more"}); !equalSets(got, want) {
		t.Fatalf("reloaded items = %v, want %v", got, want)
	}
	if r2.Context() != onDisk.Context {
		t.Errorf("context not reloaded: %+v", r2.Context())
	}
}

func TestGenerationFailuresLeaveNotReady(t *testing.T) {
	tests := map[string]*fakeClient{
		"backend error": {err: &ai.StatusError{Backend: "fake", Code: 500}},
		"not json":      {content: "sorry, I can't"},
		"no items":      {content: `{"items":[]}`},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			r := newTestRemote(t, dir, c, "sk")
			r.Prepare()

			if r.IsReady() {
				t.Fatal("failure must leave provider not ready")
			}
			if r.LastFailure().IsZero() {
				t.Fatal("failure timestamp not recorded")
			}
			if _, err := os.Stat(CachePath(dir, fixedNow)); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("no cache file expected, stat err = %v", err)
			}
			if r.Preparing() {
				t.Fatal("preparing flag left set")
			}
		})
	}
}

type panicClient struct{}

func (panicClient) Name() string { return "panic" }
func (panicClient) Complete(context.Context, ai.Request) (string, error) {
	panic("boom")
}

func TestPanicIsAbsorbed(t *testing.T) {
	r := newTestRemote(t, t.TempDir(), panicClient{}, "sk")
	r.Prepare()
	if r.IsReady() || r.Preparing() || r.LastFailure().IsZero() {
		t.Fatalf("ready=%v preparing=%v failure=%v", r.IsReady(), r.Preparing(), r.LastFailure())
	}
}

func TestPrepareIsSingleFlight(t *testing.T) {
	c := &fakeClient{
		content: `{"items":[{"text":"x"}]}`,
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	r := newTestRemote(t, t.TempDir(), c, "sk")

	done := make(chan struct{})
	go func() {
		r.Prepare()
		close(done)
	}()
	<-c.entered

	if !r.Preparing() {
		t.Fatal("expected Preparing() while the first call is in flight")
	}
	r.Prepare() // must return immediately

	close(c.block)
	<-done

	if n := c.calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
	if !r.IsReady() {
		t.Fatal("first call should have succeeded")
	}
}

func TestInvalidateTodayKeepsOtherDays(t *testing.T) {
	dir := t.TempDir()
	yesterday := fixedNow.AddDate(0, 0, -1)
	yPath := writeCache(t, dir, yesterday, `{"date":"2026-03-13","items":[{"text":"old"}]}`)
	tPath := writeCache(t, dir, fixedNow, `{"date":"2026-03-14","items":[{"text":"new"}]}`)

	r := newTestRemote(t, dir, &fakeClient{}, "")
	r.Prepare()
	if !r.IsReady() {
		t.Fatal("expected cache hit")
	}

	r.InvalidateToday()

	if r.IsReady() || r.NextText() != "" {
		t.Fatal("invalidate should clear the pool")
	}
	if _, err := os.Stat(tPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("today's file still present: %v", err)
	}
	b, err := LoadBatch(yPath)
	if err != nil || b.Texts()[0] != "old" {
		t.Fatalf("yesterday's file damaged: %v", err)
	}

	// Still safe when there is nothing to delete.
	r.InvalidateToday()

	// Yesterday remains loadable on its own date.
	ry := NewRemote(RemoteConfig{CacheDir: dir, Now: func() time.Time { return yesterday }, KeyRequired: true})
	ry.Prepare()
	if !ry.IsReady() || ry.NextText() != "old" {
		t.Fatal("yesterday's cache should load on yesterday's date")
	}
}

type stubCity struct {
	city string
	err  error
}

func (s stubCity) City(context.Context) (string, error) { return s.city, s.err }

type stubWeather struct{ panics bool }

func (s stubWeather) Summary(_ context.Context, city string) (string, error) {
	if s.panics {
		panic("weather exploded")
	}
	return "12°C, overcast in " + city, nil
}

func TestPromptCarriesContext(t *testing.T) {
	c := &fakeClient{content: `{"items":[{"text":"x"}]}`}
	r := NewRemote(RemoteConfig{
		CacheDir:    t.TempDir(),
		Client:      c,
		ItemsPerDay: 7,
		City:        stubCity{city: "Hangzhou"},
		Weather:     stubWeather{},
		Preferences: func() Preferences { return Preferences{Salutation: "friend", UserHint: "more about tea"} },
		Now:         func() time.Time { return fixedNow },
	})
	r.Prepare()

	if len(c.prompts) != 1 {
		t.Fatalf("prompts = %d", len(c.prompts))
	}
	p := c.prompts[0]
	for _, want := range []string{"2026-03-14", "Saturday", "morning", "Hangzhou", "12°C, overcast in Hangzhou", "friend", "more about tea", "Write 7"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if got := r.Context(); got.City != "Hangzhou" || got.Weather == "" {
		t.Errorf("context = %+v", got)
	}
}

func TestContextLookupFailuresAreIsolated(t *testing.T) {
	c := &fakeClient{content: `{"items":[{"text":"x"}]}`}
	r := NewRemote(RemoteConfig{
		CacheDir: t.TempDir(),
		Client:   c,
		City:     stubCity{city: "Paris"},
		Weather:  stubWeather{panics: true},
		Now:      func() time.Time { return fixedNow },
	})
	r.Prepare()
	if !r.IsReady() {
		t.Fatal("weather panic must not abort generation")
	}
	if got := r.Context(); got.City != "Paris" || got.Weather != "" {
		t.Errorf("context = %+v", got)
	}

	c2 := &fakeClient{content: `{"items":[{"text":"x"}]}`}
	r2 := NewRemote(RemoteConfig{
		CacheDir: t.TempDir(),
		Client:   c2,
		City:     stubCity{err: errors.New("offline")},
		Weather:  stubWeather{},
		Now:      func() time.Time { return fixedNow },
	})
	r2.Prepare()
	if !r2.IsReady() || r2.Context().City != "" || r2.Context().Weather != "" {
		t.Fatalf("city failure should leave both fields empty: %+v", r2.Context())
	}
}

func TestLocalProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texts.txt")
	body := "\"quoted line\",\n  plain line  \n\n\"only quotes\"\n   \n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLocal(path)
	l.Prepare()
	if !l.IsReady() || l.Len() != 3 {
		t.Fatalf("ready=%v len=%d", l.IsReady(), l.Len())
	}
	want := setOf([]string{"quoted line", "plain line", "only quotes"})
	for i := 0; i < 50; i++ {
		if _, ok := want[l.NextText()]; !ok {
			t.Fatal("NextText returned a text not in the file")
		}
	}
}

func TestLocalFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("\n \n"), 0o644)

	for name, path := range map[string]string{
		"missing": filepath.Join(dir, "nope.txt"),
		"empty":   empty,
		"unset":   "",
	} {
		t.Run(name, func(t *testing.T) {
			l := NewLocal(path)
			l.Prepare()
			if !l.IsReady() || l.Len() != len(DefaultTexts) {
				t.Fatalf("ready=%v len=%d", l.IsReady(), l.Len())
			}
		})
	}
}

func TestWatchFileSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texts.txt")
	os.WriteFile(path, []byte("first\n"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := WatchFile(ctx, path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signalled")
	}

	cancel()
	for range changes {
	}
}

func TestListCache(t *testing.T) {
	dir := t.TempDir()
	writeCache(t, dir, fixedNow, `{"items":[{"text":"a"},{"text":"b"}]}`)
	writeCache(t, dir, fixedNow.AddDate(0, 0, -1), `{"items":[]}`)
	os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644)

	entries, err := ListCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Date != "2026-03-14" || entries[0].Items != 2 || entries[1].Items != 0 {
		t.Fatalf("entries = %+v", entries)
	}

	if got, err := ListCache(filepath.Join(dir, "missing")); err != nil || got != nil {
		t.Fatalf("missing dir = %v, %v", got, err)
	}
}

func setOf(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
