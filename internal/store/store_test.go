package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestFindEpisodeByURL(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "url", "title", "transcript", "created_at"}).
		AddRow("ep-1", "http://example.com/ep.mp3", "Episode One", "transcript text", now)
	mock.ExpectQuery(`SELECT id, url, title, transcript, created_at FROM episodes`).
		WithArgs("http://example.com/ep.mp3").
		WillReturnRows(rows)

	ep, found, err := s.FindEpisodeByURL(context.Background(), "http://example.com/ep.mp3")
	if err != nil {
		t.Fatalf("FindEpisodeByURL: %v", err)
	}
	if !found {
		t.Fatal("expected a record")
	}
	if ep.ID != "ep-1" || ep.Transcript != "transcript text" {
		t.Fatalf("unexpected episode %+v", ep)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindEpisodeByURLMissing(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, url, title, transcript, created_at FROM episodes`).
		WithArgs("http://example.com/none.mp3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "title", "transcript", "created_at"}))

	_, found, err := s.FindEpisodeByURL(context.Background(), "http://example.com/none.mp3")
	if err != nil {
		t.Fatalf("FindEpisodeByURL: %v", err)
	}
	if found {
		t.Fatal("expected no record")
	}
}

func TestSaveEpisodeUpserts(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(sqlmock.AnyArg(), "http://example.com/ep.mp3", "Episode One", "transcript text").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	id, err := s.SaveEpisode(context.Background(), "http://example.com/ep.mp3", "Episode One", "transcript text")
	if err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	// ON CONFLICT returns the pre-existing row id
	if id != "existing-id" {
		t.Fatalf("id = %q, want existing-id", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// Re-saving an episode without a title (the cache fast path never carries
// one) must not blank out the title stored by the first transcription.
func TestSaveEpisodeKeepsStoredTitleOnEmptyUpdate(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	mock.ExpectQuery(`title = COALESCE\(NULLIF\(EXCLUDED\.title, ''\), episodes\.title\)`).
		WithArgs(sqlmock.AnyArg(), "http://example.com/ep.mp3", "", "transcript text").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	id, err := s.SaveEpisode(context.Background(), "http://example.com/ep.mp3", "", "transcript text")
	if err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	if id != "existing-id" {
		t.Fatalf("id = %q, want existing-id", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveQuery(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO queries`).
		WithArgs(sqlmock.AnyArg(), "alice", "ep-1", "what is this about?", "whales").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveQuery(context.Background(), "alice", "ep-1", "what is this about?", "whales"); err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
