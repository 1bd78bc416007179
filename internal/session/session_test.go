package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRegistryEnsureAndGet(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if _, err := r.Get("alice"); err == nil {
		t.Fatal("expected NotFoundError for unknown user")
	} else {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) || notFound.UserID != "alice" {
			t.Fatalf("unexpected error %v", err)
		}
	}

	sess := r.Ensure("alice")
	if sess.UserID() != "alice" {
		t.Fatalf("unexpected user id %q", sess.UserID())
	}
	if again := r.Ensure("alice"); again != sess {
		t.Fatal("Ensure created a second session for the same user")
	}

	got, err := r.Get("alice")
	if err != nil || got != sess {
		t.Fatalf("Get returned %v, %v", got, err)
	}
}

func TestSessionStartsNotReady(t *testing.T) {
	t.Parallel()
	sess := NewRegistry().Ensure("bob")
	status, lastErr := sess.Status()
	if status != StatusNotReady || lastErr != nil {
		t.Fatalf("new session status %q err %v", status, lastErr)
	}
}

func TestBeginRejectsConcurrentRun(t *testing.T) {
	t.Parallel()
	sess := NewRegistry().Ensure("bob")

	ctx, err := sess.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if status, _ := sess.Status(); status != StatusInitializing {
		t.Fatalf("status after Begin = %q", status)
	}

	if _, err := sess.Begin(context.Background()); err == nil {
		t.Fatal("expected second Begin to fail while run in flight")
	}

	sess.Finish()
	if ctx.Err() == nil {
		t.Fatal("Finish should cancel the run context")
	}
	if _, err := sess.Begin(context.Background()); err != nil {
		t.Fatalf("Begin after Finish: %v", err)
	}
}

func TestFailKeepsStageLabel(t *testing.T) {
	t.Parallel()
	sess := NewRegistry().Ensure("bob")
	if _, err := sess.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	sess.SetStatus(StatusDownloading)
	sess.Fail(fmt.Errorf("connection refused"))

	status, lastErr := sess.Status()
	if status != StatusDownloading {
		t.Fatalf("status moved to %q, want frozen at %q", status, StatusDownloading)
	}
	if lastErr == nil {
		t.Fatal("expected recorded error")
	}
}

func TestResetClearsEverything(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	sess := r.Ensure("bob")
	ctx, err := sess.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	sess.SetStatus(StatusReady)
	sess.SetTranscript("text")
	sess.SetEpisodeID("ep-1")
	sess.SetPendingQuiz("q?")

	r.Reset("bob")

	if ctx.Err() == nil {
		t.Fatal("Reset should cancel the in-flight run")
	}
	status, lastErr := sess.Status()
	if status != StatusNotReady || lastErr != nil {
		t.Fatalf("status after reset %q err %v", status, lastErr)
	}
	if sess.Transcript() != "" || sess.EpisodeID() != "" || sess.PendingQuiz() != "" || sess.Engine() != nil {
		t.Fatal("reset left state behind")
	}

	// resetting an unknown user just creates an empty session
	if sess := r.Reset("carol"); sess == nil {
		t.Fatal("Reset returned nil for unknown user")
	}
}

func TestTakePendingQuiz(t *testing.T) {
	t.Parallel()
	sess := NewRegistry().Ensure("bob")
	sess.SetPendingQuiz("what is the capital?")
	if got := sess.TakePendingQuiz(); got != "what is the capital?" {
		t.Fatalf("TakePendingQuiz = %q", got)
	}
	if got := sess.TakePendingQuiz(); got != "" {
		t.Fatalf("second TakePendingQuiz = %q, want empty", got)
	}
}

func TestChunkProgressLabel(t *testing.T) {
	t.Parallel()
	if got := ChunkProgress(2, 5); got != "transcribed chunk 2 of 5" {
		t.Fatalf("ChunkProgress = %q", got)
	}
}
