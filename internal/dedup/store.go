// Package dedup provides the persistent, retention-bounded store of item
// identities used to separate new items from already-processed ones.
package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/postveille/curator/internal/models"
)

// ErrStore marks persistence failures. Dedup correctness is load-bearing for
// the whole pipeline, so callers treat these as fatal.
var ErrStore = errors.New("dedup store")

// SeenRecord is one row of the seen_articles table. Owned exclusively by the
// store; first sighting creates it, later sightings only touch LastSeenAt.
type SeenRecord struct {
	ID          string
	URL         string
	Title       string
	SourceName  string
	SourceType  string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// Stats aggregates the store contents.
type Stats struct {
	Total        int            `json:"total"`
	BySourceType map[string]int `json:"by_source_type"`
}

// Store manages seen-item persistence backed by SQLite. Single writer,
// single process per run.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the dedup database.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure directory: %v", ErrStore, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStore, dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %v", ErrStore, pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seen_articles (
            id TEXT PRIMARY KEY,
            url TEXT NOT NULL,
            title TEXT,
            source_name TEXT,
            source_type TEXT,
            first_seen_at TEXT NOT NULL,
            last_seen_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_seen_at ON seen_articles(first_seen_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrStore, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsSeen reports whether the id has been recorded within the retention window.
func (s *Store) IsSeen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_articles WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: is seen: %v", ErrStore, err)
	}
	return true, nil
}

// MarkSeen upserts a record for the item. A repeat sighting updates only
// last_seen_at; the id uniqueness constraint guarantees no duplicate rows.
func (s *Store) MarkSeen(ctx context.Context, item models.Item) error {
	now := time.Now().UTC().Format(time.RFC3339)

	title := item.Title
	if len(title) > 200 {
		title = title[:200]
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO seen_articles (id, url, title, source_name, source_type, first_seen_at, last_seen_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		item.ID,
		item.URL,
		title,
		item.SourceName,
		item.SourceType,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("%w: mark seen %s: %v", ErrStore, item.ID, err)
	}
	return nil
}

// Cleanup deletes records whose first sighting precedes the retention window
// and returns how many were removed. Run it before any membership check of a
// batch so stale entries never produce false "seen" results.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `DELETE FROM seen_articles WHERE first_seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup: %v", ErrStore, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup rows affected: %v", ErrStore, err)
	}
	if removed > 0 {
		logrus.Infof("Dedup cleanup removed %d entries older than %d days", removed, retentionDays)
	}
	return removed, nil
}

// FilterNew returns the items not yet seen, in input order, marking each kept
// item immediately so a duplicate later in the same batch is rejected.
func (s *Store) FilterNew(ctx context.Context, items []models.Item) ([]models.Item, error) {
	var fresh []models.Item
	for _, item := range items {
		seen, err := s.IsSeen(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if seen {
			logrus.Debugf("Already seen: %s", item.Title)
			continue
		}
		if err := s.MarkSeen(ctx, item); err != nil {
			return nil, err
		}
		fresh = append(fresh, item)
	}

	logrus.Infof("Deduplication: %d new / %d total", len(fresh), len(items))
	return fresh, nil
}

// Get returns the stored record for an id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*SeenRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, url, title, source_name, source_type, first_seen_at, last_seen_at
         FROM seen_articles WHERE id = ?`,
		id,
	)

	var rec SeenRecord
	var firstSeen, lastSeen string
	err := row.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.SourceName, &rec.SourceType, &firstSeen, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStore, id, err)
	}

	if t, err := time.Parse(time.RFC3339, firstSeen); err == nil {
		rec.FirstSeenAt = t
	}
	if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
		rec.LastSeenAt = t
	}
	return &rec, nil
}

// Stats returns aggregate counts, read-only.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySourceType: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_articles`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("%w: stats total: %v", ErrStore, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_type, COUNT(*) FROM seen_articles GROUP BY source_type`)
	if err != nil {
		return stats, fmt.Errorf("%w: stats by source: %v", ErrStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceType string
		var count int
		if err := rows.Scan(&sourceType, &count); err != nil {
			return stats, fmt.Errorf("%w: stats scan: %v", ErrStore, err)
		}
		stats.BySourceType[sourceType] = count
	}
	return stats, rows.Err()
}
