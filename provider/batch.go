package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DateLayout names cache files and the date field of a batch.
const DateLayout = "2006-01-02"

// TextItem is a single candidate message. Text is trimmed and non-empty.
type TextItem struct {
	Text string `json:"text"`
}

// ContextSnapshot is what the prompt was built from. It is frozen into the
// cache file for debugging and never re-validated on load.
type ContextSnapshot struct {
	Date      string `json:"date,omitempty"`
	Weekday   string `json:"weekday,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
	City      string `json:"city"`
	Weather   string `json:"weather"`
}

// DailyBatch is the on-disk shape of <cache dir>/<date>.json.
type DailyBatch struct {
	Date    string          `json:"date"`
	Context ContextSnapshot `json:"context"`
	Items   []TextItem      `json:"items"`
}

// Texts returns the item texts.
func (b DailyBatch) Texts() []string {
	out := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		out = append(out, it.Text)
	}
	return out
}

// looseBatch accepts anything shaped roughly like a batch: the model's
// response and older cache files alike. Fields are decoded one by one so a
// bad context or a single bad item does not sink the rest.
type looseBatch struct {
	Date    json.RawMessage   `json:"date"`
	Context json.RawMessage   `json:"context"`
	Items   []json.RawMessage `json:"items"`
}

func (l looseBatch) date() string {
	var s string
	if err := json.Unmarshal(l.Date, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (l looseBatch) context() (ContextSnapshot, bool) {
	var c ContextSnapshot
	if len(l.Context) == 0 || json.Unmarshal(l.Context, &c) != nil {
		return ContextSnapshot{}, false
	}
	return c, true
}

// items keeps entries whose text is a non-empty string after trimming.
// Extra fields such as tags and weight are ignored.
func (l looseBatch) items() []TextItem {
	out := make([]TextItem, 0, len(l.Items))
	for _, raw := range l.Items {
		var it struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(raw, &it) != nil {
			continue
		}
		if t := strings.TrimSpace(it.Text); t != "" {
			out = append(out, TextItem{Text: t})
		}
	}
	return out
}

// CachePath returns the cache file for day.
func CachePath(dir string, day time.Time) string {
	return filepath.Join(dir, day.Format(DateLayout)+".json")
}

// LoadBatch reads a cache file. A file with no usable items is an error.
func LoadBatch(path string) (DailyBatch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DailyBatch{}, err
	}
	var l looseBatch
	if err := json.Unmarshal(raw, &l); err != nil {
		return DailyBatch{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	b := DailyBatch{Date: l.date(), Items: l.items()}
	b.Context, _ = l.context()
	if len(b.Items) == 0 {
		return DailyBatch{}, fmt.Errorf("%s has no usable items", filepath.Base(path))
	}
	return b, nil
}

// WriteBatch persists b to path via a temporary file and rename, so readers
// see either the old file or the complete new one.
func WriteBatch(path string, b DailyBatch) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write batch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close batch: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename batch: %w", err)
	}
	return nil
}

// CacheEntry describes one cached day for status displays.
type CacheEntry struct {
	Date    string
	Path    string
	Items   int // 0 when the file is unusable
	ModTime time.Time
}

// ListCache returns the cached days in dir, newest first. A missing
// directory yields no entries.
func ListCache(dir string) ([]CacheEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []CacheEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(DateLayout, date); err != nil {
			continue
		}
		ce := CacheEntry{Date: date, Path: filepath.Join(dir, name)}
		if info, err := e.Info(); err == nil {
			ce.ModTime = info.ModTime()
		}
		if b, err := LoadBatch(ce.Path); err == nil {
			ce.Items = len(b.Items)
		}
		out = append(out, ce)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}
