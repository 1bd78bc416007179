// Package store persists episodes and the append-only query log in
// PostgreSQL, with a Redis cache in front of the transcript lookup.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Episode is one transcribed episode. At most one record exists per source
// URL; the URL is the lookup key that lets later sessions skip
// re-transcription.
type Episode struct {
	ID         string
	URL        string
	Title      string
	Transcript string
	CreatedAt  time.Time
}

// FindEpisodeByURL fetches the cached episode for a source URL. The second
// return reports whether a record exists.
func (s *Store) FindEpisodeByURL(ctx context.Context, url string) (Episode, bool, error) {
	var ep Episode
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, url, title, transcript, created_at FROM episodes WHERE url=$1`,
		url,
	).Scan(&ep.ID, &ep.URL, &ep.Title, &ep.Transcript, &ep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, false, nil
	}
	if err != nil {
		return Episode{}, false, fmt.Errorf("select episode: %w", err)
	}
	return ep, true, nil
}

// SaveEpisode inserts the episode for a URL, updating the title and
// transcript when a record for that URL already exists, and returns the
// episode id. An empty title never overwrites a stored one; requests that
// carry only the URL keep whatever title the first transcription recorded.
func (s *Store) SaveEpisode(ctx context.Context, url, title, transcript string) (string, error) {
	id := uuid.NewString()
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO episodes (id, url, title, transcript)
VALUES ($1,$2,$3,$4)
ON CONFLICT (url) DO UPDATE SET
  title = COALESCE(NULLIF(EXCLUDED.title, ''), episodes.title),
  transcript = EXCLUDED.transcript
RETURNING id`,
		id, url, title, transcript,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert episode: %w", err)
	}
	return id, nil
}

// SaveQuery appends one query/response pair to the write-only query log.
func (s *Store) SaveQuery(ctx context.Context, userID, episodeID, query, response string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO queries (id, user_id, episode_id, query, response)
VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), userID, episodeID, query, response,
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}
