// Package contextinfo resolves the city and weather mentioned in prompts.
//
// Lookups are cached in a small SQLite database: geocodes for 30 days,
// current conditions for 15 minutes. Every failure degrades to an empty
// string at the call site; nothing here is allowed to block generation.
package contextinfo

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// TTLs for cached lookups.
const (
	GeocodeTTL    = 30 * 24 * time.Hour
	ConditionsTTL = 15 * time.Minute
)

// Place is a geocoded city.
type Place struct {
	Name        string
	Latitude    float64
	Longitude   float64
	Country     string
	CountryCode string
}

// Cache stores lookups in SQLite.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS geocodes (
		query TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		country TEXT,
		country_code TEXT,
		fetched_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conditions (
		place TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Geocode returns a cached place fetched within maxAge of now.
func (c *Cache) Geocode(query string, maxAge time.Duration, now time.Time) (Place, bool, error) {
	var p Place
	var fetched int64
	err := c.db.QueryRow(`
		SELECT name, latitude, longitude, COALESCE(country, ''), COALESCE(country_code, ''), fetched_at
		FROM geocodes WHERE query = ?`, query,
	).Scan(&p.Name, &p.Latitude, &p.Longitude, &p.Country, &p.CountryCode, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Place{}, false, nil
	}
	if err != nil {
		return Place{}, false, err
	}
	if now.Sub(time.Unix(fetched, 0)) >= maxAge {
		return Place{}, false, nil
	}
	return p, true, nil
}

// PutGeocode stores p for query.
func (c *Cache) PutGeocode(query string, p Place, now time.Time) error {
	_, err := c.db.Exec(`
		INSERT INTO geocodes (query, name, latitude, longitude, country, country_code, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			country = excluded.country,
			country_code = excluded.country_code,
			fetched_at = excluded.fetched_at
	`, query, p.Name, p.Latitude, p.Longitude, p.Country, p.CountryCode, now.Unix())
	return err
}

// Conditions returns a cached weather summary fetched within maxAge of now.
func (c *Cache) Conditions(place string, maxAge time.Duration, now time.Time) (string, bool, error) {
	var summary string
	var fetched int64
	err := c.db.QueryRow(`SELECT summary, fetched_at FROM conditions WHERE place = ?`, place).Scan(&summary, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if now.Sub(time.Unix(fetched, 0)) >= maxAge {
		return "", false, nil
	}
	return summary, true, nil
}

// PutConditions stores a weather summary for place.
func (c *Cache) PutConditions(place, summary string, now time.Time) error {
	_, err := c.db.Exec(`
		INSERT INTO conditions (place, summary, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(place) DO UPDATE SET summary = excluded.summary, fetched_at = excluded.fetched_at
	`, place, summary, now.Unix())
	return err
}

// Stats reports row counts for status output.
func (c *Cache) Stats() (geocodes, conditions int, err error) {
	if err = c.db.QueryRow(`SELECT COUNT(*) FROM geocodes`).Scan(&geocodes); err != nil {
		return 0, 0, err
	}
	if err = c.db.QueryRow(`SELECT COUNT(*) FROM conditions`).Scan(&conditions); err != nil {
		return 0, 0, err
	}
	return geocodes, conditions, nil
}
