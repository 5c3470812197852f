// Package settings persists the user's runtime preferences.
//
// Settings are stored as one small file per key under
// ~/.floatwords/settings/ (so "ai/enabled" lives in settings/ai/enabled).
// Getters are typed and never fail: an absent or unparsable value yields the
// caller's default, mirroring how the rest of the app treats configuration
// absence as "use the default" rather than an error.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// Store is a typed key/value store backed by diskv.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

// Open creates (if needed) and opens the store rooted at dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("settings: directory required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("settings: ensure directory: %w", err)
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          dir,
			AdvancedTransform: keyToPath,
			InverseTransform:  pathToKey,
			CacheSizeMax:      0, // keys may be rewritten by another process
		}),
		basePath: dir,
	}, nil
}

// Path returns the directory backing the store.
func (s *Store) Path() string {
	return s.basePath
}

// Has reports whether key has a stored value.
func (s *Store) Has(key string) bool {
	return s.d.Has(key)
}

func (s *Store) raw(key string) (string, bool) {
	if !s.d.Has(key) {
		return "", false
	}
	b, err := s.d.Read(key)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Bool reads key as a boolean. "1", "true", "yes", "y" and "on" are true.
func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	return parseBool(v)
}

// Int reads key as an integer.
func (s *Store) Int(key string, def int) int {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// String reads key as a string. A stored empty string is returned as-is.
func (s *Store) String(key string, def string) string {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	return v
}

// Set stores value under key. Booleans, integers and strings are supported.
func (s *Store) Set(key string, value interface{}) error {
	var text string
	switch v := value.(type) {
	case bool:
		text = strconv.FormatBool(v)
	case int:
		text = strconv.Itoa(v)
	case string:
		text = v
	default:
		return fmt.Errorf("settings: unsupported value type %T for %s", value, key)
	}
	if err := s.d.WriteString(key, text); err != nil {
		return fmt.Errorf("settings: write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	return s.d.Erase(key)
}

// Keys lists every stored key in sorted order.
func (s *Store) Keys() []string {
	var keys []string
	for k := range s.d.Keys(nil) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// keyToPath maps "ai/enabled" to directory "ai", file "enabled".
func keyToPath(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKey(pk *diskv.PathKey) string {
	if len(pk.Path) == 0 {
		return pk.FileName
	}
	return strings.Join(pk.Path, "/") + "/" + pk.FileName
}
