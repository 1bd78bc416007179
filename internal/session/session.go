// Package session tracks per-user pipeline state: lifecycle status, the
// accumulated transcript, and the bound knowledge engine.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/heaversm/podquest/internal/engine"
)

// Lifecycle status labels. They form a linear pipeline; "ready" is the only
// terminal state that unlocks querying.
const (
	StatusNotReady           = "not ready"
	StatusInitializing       = "initializing"
	StatusDownloading        = "downloading audio"
	StatusGettingFileSize    = "getting file size"
	StatusSplitting          = "splitting audio"
	StatusTranscribingChunks = "transcribing chunks"
	StatusReassembling       = "reassembling audio"
	StatusAudioTranscribed   = "audio transcribed"
	StatusTranscribing       = "transcribing audio"
	StatusEstablishingLLM    = "establishing llm"
	StatusReady              = "ready"
)

// ChunkProgress renders the per-chunk status label.
func ChunkProgress(i, n int) string {
	return fmt.Sprintf("transcribed chunk %d of %d", i, n)
}

// NotFoundError reports a query for a user with no registered session.
type NotFoundError struct {
	UserID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no session for user %q", e.UserID)
}

// NotReadyError reports a query issued before the engine is bound.
type NotReadyError struct {
	Status string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("session not ready (status %q)", e.Status)
}

// Session is the per-user state container. It is owned by the Registry and
// mutated by pipeline stages acting on behalf of that user. All accessors
// are safe for concurrent use.
type Session struct {
	userID string

	mu          sync.RWMutex
	status      string
	lastErr     error
	transcript  string
	episodeID   string
	engine      *engine.Engine
	pendingQuiz string
	building    bool
	cancel      context.CancelFunc
}

func newSession(userID string) *Session {
	return &Session{userID: userID, status: StatusNotReady}
}

func (s *Session) UserID() string { return s.userID }

// Status returns the current lifecycle label and the error recorded by a
// failed stage, if any. The label stays frozen at the failing stage; the
// error lets callers distinguish stuck from still running.
func (s *Session) Status() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.lastErr
}

func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Fail records a stage error without moving the status label.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.building = false
	s.cancel = nil
}

func (s *Session) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript
}

func (s *Session) SetTranscript(transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = transcript
}

func (s *Session) EpisodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.episodeID
}

func (s *Session) SetEpisodeID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodeID = id
}

func (s *Session) Engine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Session) BindEngine(e *engine.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = e
}

// PendingQuiz returns the quiz question awaiting an answer, if any.
func (s *Session) PendingQuiz() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingQuiz
}

func (s *Session) SetPendingQuiz(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingQuiz = question
}

// TakePendingQuiz returns and clears the pending quiz question.
func (s *Session) TakePendingQuiz() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.pendingQuiz
	s.pendingQuiz = ""
	return q
}

// Begin marks the start of a pipeline run for this session and derives a
// cancellable context from parent. It fails when a run is already in
// flight, serializing racing transcription requests for the same user.
func (s *Session) Begin(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.building {
		return nil, fmt.Errorf("transcription already in progress for user %q", s.userID)
	}
	ctx, cancel := context.WithCancel(parent)
	s.building = true
	s.cancel = cancel
	s.lastErr = nil
	s.status = StatusInitializing
	return ctx, nil
}

// Finish marks the end of a pipeline run, successful or not.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.building = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Reset force-clears the session back to not ready, cancelling any run in
// flight, so the same user id can move on to a different episode.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.building = false
	s.status = StatusNotReady
	s.lastErr = nil
	s.transcript = ""
	s.episodeID = ""
	s.engine = nil
	s.pendingQuiz = ""
}
