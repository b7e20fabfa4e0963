// Package geocache persists geocoding results between runs so that repeated
// batches, which mostly contain the same communities day after day, do not
// burn API quota re-resolving names they already resolved. Negative results
// are cached too; a name the service could not place yesterday will not be
// placed today either.
package geocache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bozhu/estatemap/internal/fuse"
	"github.com/bozhu/estatemap/internal/model"
)

// Entry is one cached resolution. Coordinates are GCJ-02, exactly as the
// service returned them; datum conversion stays downstream of the cache so
// offset tuning does not invalidate cached rows.
type Entry struct {
	Name   string
	Lng    float64
	Lat    float64
	Status model.ResolutionStatus
	Source string
}

// Cache is a SQLite-backed geocode cache keyed by normalized community name.
type Cache struct {
	db *sql.DB
}

// Open opens the cache database at the given path and configures WAL mode.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "geocache: exec %s", pragma)
		}
	}
	return &Cache{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	key         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	lng         REAL NOT NULL DEFAULT 0,
	lat         REAL NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	resolved_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_status ON geocode_cache(status);
`

// Migrate creates the cache schema if it does not exist yet.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "geocache: migrate")
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up a cached resolution for the given community name. A nil Entry
// with nil error means the name was never resolved before.
func (c *Cache) Get(ctx context.Context, name string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, lng, lat, status, source FROM geocode_cache WHERE key = ?`,
		cacheKey(name),
	)

	var e Entry
	var status string
	err := row.Scan(&e.Name, &e.Lng, &e.Lat, &status, &e.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geocache: get %q", name)
	}
	e.Status = model.ResolutionStatus(status)
	return &e, nil
}

// Put stores a resolution, replacing any previous row for the same
// normalized name.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (key, name, lng, lat, status, source, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   name = excluded.name,
		   lng = excluded.lng,
		   lat = excluded.lat,
		   status = excluded.status,
		   source = excluded.source,
		   resolved_at = excluded.resolved_at`,
		cacheKey(e.Name), e.Name, e.Lng, e.Lat, string(e.Status), e.Source, time.Now().UTC(),
	)
	return eris.Wrapf(err, "geocache: put %q", e.Name)
}

// PurgeUnresolved deletes negative entries so a later run retries them,
// useful after the boundary of the service's POI index moves.
func (c *Cache) PurgeUnresolved(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE status = ?`, string(model.StatusNone),
	)
	if err != nil {
		return 0, eris.Wrap(err, "geocache: purge unresolved")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "geocache: rows affected")
}

// cacheKey hashes the normalized name so near-duplicate spellings of the
// same community share one cache row.
func cacheKey(name string) string {
	sum := sha256.Sum256([]byte(fuse.Key(name)))
	return hex.EncodeToString(sum[:])
}
