// Package query routes user questions to a ready session's knowledge engine.
// Three modes exist: plain question answering, timestamp lookup against an
// SRT transcript, and a two-turn quiz where the service asks a question and
// grades the user's next message as the answer.
package query

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/heaversm/podquest/internal/session"
)

// Mode labels accepted by transcribe and query requests.
const (
	ModeQA    = "qa"
	ModeAudio = "audio"
	ModeQuiz  = "quiz"
)

const answerNotFound = "Answer not found"

// Result is the outcome of one dispatched query. IsCorrect is set only for
// quiz answers.
type Result struct {
	Text      string
	IsCorrect *bool
}

// Store is the slice of the data layer the dispatcher needs for the
// append-only query log.
type Store interface {
	SaveQuery(ctx context.Context, userID, episodeID, query, response string) error
}

// Dispatcher resolves a user's session and runs the mode-specific chain.
type Dispatcher struct {
	registry *session.Registry
	store    Store
	logger   *log.Logger
}

func NewDispatcher(registry *session.Registry, store Store, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{registry: registry, store: store, logger: logger}
}

// Dispatch answers one query for userID in the given mode. The session must
// be ready; callers map NotFoundError and NotReadyError to their own error
// surface.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, mode, q string) (Result, error) {
	sess, err := d.registry.Get(userID)
	if err != nil {
		return Result{}, err
	}
	status, _ := sess.Status()
	if status != session.StatusReady || sess.Engine() == nil {
		return Result{}, &session.NotReadyError{Status: status}
	}

	var res Result
	switch mode {
	case ModeAudio:
		res, err = d.audio(ctx, sess, q)
	case ModeQuiz:
		res, err = d.quiz(ctx, sess, q)
	default:
		res, err = d.qa(ctx, sess, q)
	}
	if err != nil {
		return Result{}, err
	}
	queriesTotal.WithLabelValues(normalizeMode(mode)).Inc()
	d.logQuery(ctx, userID, sess.EpisodeID(), q, res.Text)
	return res, nil
}

func normalizeMode(mode string) string {
	switch mode {
	case ModeAudio, ModeQuiz:
		return mode
	default:
		return ModeQA
	}
}

func (d *Dispatcher) qa(ctx context.Context, sess *session.Session, q string) (Result, error) {
	instruction := fmt.Sprintf("Answer this question about the episode: %s", q)
	text, err := sess.Engine().Answer(ctx, q, instruction)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}

// audio answers with a playback position. The indexed passages carry SRT
// timestamps, so the model is told to quote one rather than paraphrase.
func (d *Dispatcher) audio(ctx context.Context, sess *session.Session, q string) (Result, error) {
	instruction := fmt.Sprintf(
		"The passages are SRT subtitle entries with hh:mm:ss,mmm timestamps. "+
			"Reply with the hh:mm:ss timestamp at which the following is discussed, and nothing else. "+
			"If it is not discussed, reply %q.\n\nQuestion: %s", answerNotFound, q)
	text, err := sess.Engine().Answer(ctx, q, instruction)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}

// quiz alternates between asking and grading. With no question pending, the
// engine produces one and it is parked on the session; the user's next quiz
// query is treated as the answer to it.
func (d *Dispatcher) quiz(ctx context.Context, sess *session.Session, q string) (Result, error) {
	pending := sess.TakePendingQuiz()
	if pending == "" {
		question, err := sess.Engine().Answer(ctx, q,
			"Ask one short trivia question that can be answered from the passages above. Reply with only the question.")
		if err != nil {
			return Result{}, err
		}
		sess.SetPendingQuiz(question)
		return Result{Text: question}, nil
	}

	verdictPrompt := fmt.Sprintf(
		"Question: %s\nAnswer given: %s\n\nBased on the passages, is the answer correct? Reply yes or no, then explain briefly.",
		pending, q)
	verdict, err := sess.Engine().Answer(ctx, pending, verdictPrompt)
	if err != nil {
		// re-park the question so the user's next message is still graded
		// against it instead of triggering a fresh one
		sess.SetPendingQuiz(pending)
		return Result{}, err
	}

	correct, decided := gradeVerdict(verdict)
	if !decided {
		correct, err = d.gradeBySentiment(ctx, sess, verdict)
		if err != nil {
			sess.SetPendingQuiz(pending)
			return Result{}, err
		}
	}
	return Result{Text: verdict, IsCorrect: &correct}, nil
}

// gradeVerdict extracts a yes/no judgement from the model's reply by
// substring search over the normalized text, "yes" winning over "no". The
// second return is false when neither appears.
func gradeVerdict(verdict string) (correct, decided bool) {
	normalized := normalizeAnswer(verdict)
	if strings.Contains(normalized, "yes") {
		return true, true
	}
	if strings.Contains(normalized, "no") {
		return false, true
	}
	return false, false
}

// gradeBySentiment is the fallback when the verdict avoids a plain yes/no:
// a positive reading of the verdict counts as correct.
func (d *Dispatcher) gradeBySentiment(ctx context.Context, sess *session.Session, verdict string) (bool, error) {
	reply, err := sess.Engine().Complete(ctx, fmt.Sprintf(
		"Does the following grading remark judge the answer favorably? Reply with one word, positive or negative.\n\n%s", verdict))
	if err != nil {
		return false, err
	}
	return strings.Contains(normalizeAnswer(reply), "positive"), nil
}

// normalizeAnswer lowercases and strips everything but letters and spaces so
// punctuation around "Yes," or "No." does not defeat matching.
func normalizeAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (d *Dispatcher) logQuery(ctx context.Context, userID, episodeID, q, response string) {
	if d.store == nil {
		return
	}
	if err := d.store.SaveQuery(ctx, userID, episodeID, q, response); err != nil {
		d.logger.Printf("save query for user=%s failed: %v", userID, err)
	}
}
