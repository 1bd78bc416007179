package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/heaversm/podquest/internal/engine"
	"github.com/heaversm/podquest/internal/session"
)

// fakeProvider returns scripted completions in order.
type fakeProvider struct {
	completions []string
}

func (f *fakeProvider) Transcribe(ctx context.Context, filePath string, format string) (string, error) {
	return "", nil
}

func (f *fakeProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0}
	}
	return vecs, nil
}

func (f *fakeProvider) Completion(ctx context.Context, prompt string) (string, error) {
	if len(f.completions) == 0 {
		return "", errors.New("no scripted completion left")
	}
	next := f.completions[0]
	f.completions = f.completions[1:]
	return next, nil
}

type fakeStore struct {
	saved []string
}

func (f *fakeStore) SaveQuery(ctx context.Context, userID, episodeID, query, response string) error {
	f.saved = append(f.saved, query)
	return nil
}

func readySession(t *testing.T, reg *session.Registry, userID string, fake *fakeProvider) *session.Session {
	t.Helper()
	sess := reg.Ensure(userID)
	eng, err := engine.Build(context.Background(), "the hosts discuss deep sea creatures for an hour", fake, 256, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sess.BindEngine(eng)
	sess.SetStatus(session.StatusReady)
	return sess
}

func TestDispatchUnknownUser(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(session.NewRegistry(), nil, nil)
	_, err := d.Dispatch(context.Background(), "ghost", ModeQA, "hello?")
	var notFound *session.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDispatchNotReady(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	sess := reg.Ensure("alice")
	sess.SetStatus(session.StatusDownloading)

	d := NewDispatcher(reg, nil, nil)
	_, err := d.Dispatch(context.Background(), "alice", ModeQA, "too early")
	var notReady *session.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if notReady.Status != session.StatusDownloading {
		t.Fatalf("error carries status %q", notReady.Status)
	}
}

func TestDispatchQA(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{"They discuss anglerfish."}}
	readySession(t, reg, "alice", fake)
	st := &fakeStore{}

	d := NewDispatcher(reg, st, nil)
	res, err := d.Dispatch(context.Background(), "alice", ModeQA, "what do they discuss?")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "They discuss anglerfish." {
		t.Fatalf("unexpected answer %q", res.Text)
	}
	if res.IsCorrect != nil {
		t.Fatal("qa answers must not carry a grade")
	}
	if len(st.saved) != 1 {
		t.Fatalf("expected 1 logged query, got %d", len(st.saved))
	}
}

func TestQuizAsksThenGrades(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{
		"What creatures do the hosts discuss?",
		"Yes, that is the right answer.",
	}}
	sess := readySession(t, reg, "alice", fake)

	d := NewDispatcher(reg, nil, nil)

	first, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "quiz me")
	if err != nil {
		t.Fatalf("first quiz dispatch: %v", err)
	}
	if first.Text != "What creatures do the hosts discuss?" {
		t.Fatalf("unexpected question %q", first.Text)
	}
	if first.IsCorrect != nil {
		t.Fatal("question turn must not carry a grade")
	}
	if sess.PendingQuiz() == "" {
		t.Fatal("question was not parked on the session")
	}

	second, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "deep sea creatures")
	if err != nil {
		t.Fatalf("second quiz dispatch: %v", err)
	}
	if second.IsCorrect == nil || !*second.IsCorrect {
		t.Fatalf("expected correct grade, got %+v", second)
	}
	if sess.PendingQuiz() != "" {
		t.Fatal("pending question should be consumed after grading")
	}
}

func TestQuizGradesWrongAnswer(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{
		"What creatures do the hosts discuss?",
		"No, the episode is about deep sea creatures.",
	}}
	readySession(t, reg, "alice", fake)

	d := NewDispatcher(reg, nil, nil)
	if _, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "quiz me"); err != nil {
		t.Fatalf("first quiz dispatch: %v", err)
	}
	res, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "birds")
	if err != nil {
		t.Fatalf("second quiz dispatch: %v", err)
	}
	if res.IsCorrect == nil || *res.IsCorrect {
		t.Fatalf("expected incorrect grade, got %+v", res)
	}
}

// A grading failure must not lose the parked question; the user's next quiz
// message is still graded against it rather than generating a fresh one.
func TestQuizKeepsQuestionWhenGradingFails(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{
		"What creatures do the hosts discuss?",
	}}
	sess := readySession(t, reg, "alice", fake)

	d := NewDispatcher(reg, nil, nil)
	if _, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "quiz me"); err != nil {
		t.Fatalf("first quiz dispatch: %v", err)
	}

	// the scripted completions are exhausted, so grading errors out
	if _, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "deep sea creatures"); err == nil {
		t.Fatal("expected grading to fail")
	}
	if sess.PendingQuiz() != "What creatures do the hosts discuss?" {
		t.Fatalf("pending question lost, got %q", sess.PendingQuiz())
	}

	fake.completions = []string{"Yes, that is the right answer."}
	res, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "deep sea creatures")
	if err != nil {
		t.Fatalf("retry quiz dispatch: %v", err)
	}
	if res.IsCorrect == nil || !*res.IsCorrect {
		t.Fatalf("expected the retry to grade, got %+v", res)
	}
}

// When the verdict dodges a plain yes/no, grading falls back to reading its
// sentiment.
func TestQuizSentimentFallback(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{
		"What creatures do the hosts discuss?",
		"That answer matches the episode perfectly.",
		"positive",
	}}
	readySession(t, reg, "alice", fake)

	d := NewDispatcher(reg, nil, nil)
	if _, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "quiz me"); err != nil {
		t.Fatalf("first quiz dispatch: %v", err)
	}
	res, err := d.Dispatch(context.Background(), "alice", ModeQuiz, "deep sea creatures")
	if err != nil {
		t.Fatalf("second quiz dispatch: %v", err)
	}
	if res.IsCorrect == nil || !*res.IsCorrect {
		t.Fatalf("expected correct grade from sentiment fallback, got %+v", res)
	}
}

func TestDispatchAudioModeInstruction(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry()
	fake := &fakeProvider{completions: []string{"00:12:34"}}
	readySession(t, reg, "alice", fake)

	d := NewDispatcher(reg, nil, nil)
	res, err := d.Dispatch(context.Background(), "alice", ModeAudio, "when do they mention anglerfish?")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "00:12:34" {
		t.Fatalf("unexpected answer %q", res.Text)
	}
}

func TestGradeVerdict(t *testing.T) {
	t.Parallel()
	cases := []struct {
		verdict string
		correct bool
		decided bool
	}{
		{"Yes, that is right.", true, true},
		{"yes", true, true},
		{"No.", false, true},
		{"no way", false, true},
		{"Absolutely spot on!", false, false},
		{"I do not think so.", false, true}, // "not" contains "no"
		{"", false, false},
	}
	for _, tc := range cases {
		correct, decided := gradeVerdict(tc.verdict)
		if correct != tc.correct || decided != tc.decided {
			t.Fatalf("gradeVerdict(%q) = %v,%v want %v,%v", tc.verdict, correct, decided, tc.correct, tc.decided)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	t.Parallel()
	if got := normalizeAnswer("  Yes, It IS!  "); got != "yes it is" {
		t.Fatalf("normalizeAnswer = %q", got)
	}
	if got := normalizeAnswer("N-o?"); !strings.Contains(got, "no") {
		t.Fatalf("normalizeAnswer = %q", got)
	}
}
