// Package leaderboard persists the single-player top-5 high scores in a
// local SQLite file. The leaderboard is a convenience feature: every
// operation fails soft, logging and returning an empty or unchanged result
// instead of surfacing an error.
package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// MaxEntries is the number of records retained after every save.
const MaxEntries = 5

// Entry is one persisted high-score record.
type Entry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"date"`
}

// Store owns the SQLite handle. A single process owns the file at a time.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS high_scores (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT    NOT NULL,
    score      INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);`

// Open opens (creating if needed) the high-score database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create leaderboard dir: %w", err)
		}
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping leaderboard db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure high_scores table: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "leaderboard").Logger(),
	}, nil
}

// Close releases the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TopScores returns up to MaxEntries records sorted by score descending,
// ties broken by earlier save. Read failures yield an empty slice.
func (s *Store) TopScores(ctx context.Context) []Entry {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, score, created_at FROM high_scores
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT ?`, MaxEntries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load high scores")
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdMillis int64
		if err := rows.Scan(&e.Name, &e.Score, &createdMillis); err != nil {
			s.logger.Warn().Err(err).Msg("failed to scan high score row")
			return nil
		}
		e.CreatedAt = time.UnixMilli(createdMillis).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to iterate high scores")
		return nil
	}
	return entries
}

// SaveScore appends a record, prunes everything below the retained top
// MaxEntries, and returns the updated ranking. Write failures are logged
// and the previous ranking is returned unchanged.
func (s *Store) SaveScore(ctx context.Context, name string, score int) []Entry {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_scores (name, score, created_at) VALUES (?, ?, ?)`,
		name, score, now.UnixMilli())
	if err != nil {
		s.logger.Warn().Err(err).Str("name", name).Int("score", score).
			Msg("failed to save high score")
		return s.TopScores(ctx)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM high_scores WHERE id NOT IN (
			SELECT id FROM high_scores
			ORDER BY score DESC, created_at ASC, id ASC
			LIMIT ?
		)`, MaxEntries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune high scores")
	}

	return s.TopScores(ctx)
}

// IsNewHighScore reports whether score qualifies for the board. Always true
// while fewer than MaxEntries exist; otherwise true iff score ties or beats
// the lowest retained score. A tying score qualifies but is not guaranteed
// to survive the cutoff after insertion.
func (s *Store) IsNewHighScore(ctx context.Context, score int) bool {
	entries := s.TopScores(ctx)
	if len(entries) < MaxEntries {
		return true
	}
	return score >= entries[len(entries)-1].Score
}
