// Package pipeline orchestrates one episode's journey from audio URL to a
// queryable session: download, size check, optional chunked transcription,
// reassembly, and knowledge engine construction. Each stage reports progress
// through the user's session so clients can poll for it.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/heaversm/podquest/config"
	"github.com/heaversm/podquest/internal/audio"
	"github.com/heaversm/podquest/internal/engine"
	"github.com/heaversm/podquest/internal/query"
	"github.com/heaversm/podquest/internal/session"
	"github.com/heaversm/podquest/internal/srt"
	"github.com/heaversm/podquest/internal/store"
	"github.com/heaversm/podquest/provider"
)

// EpisodeStore is the slice of the store the pipeline needs.
type EpisodeStore interface {
	FindEpisodeByURL(ctx context.Context, url string) (store.Episode, bool, error)
	SaveEpisode(ctx context.Context, url, title, transcript string) (string, error)
}

// Request identifies one transcription job.
type Request struct {
	UserID string
	URL    string
	Title  string
	Mode   string
}

// Pipeline runs transcription jobs. Collaborators are injected so tests can
// substitute fakes for the network, ffmpeg, and the model provider.
type Pipeline struct {
	cfg      config.TranscriptionConfig
	provider provider.Provider
	store    EpisodeStore
	cache    *store.TranscriptCache
	registry *session.Registry
	fetcher  audio.Fetcher
	prober   audio.Prober
	splitter audio.Splitter
	logger   *log.Logger
}

func New(cfg config.TranscriptionConfig, p provider.Provider, st EpisodeStore, cache *store.TranscriptCache, reg *session.Registry, workDir string, logger *log.Logger) *Pipeline {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		provider: p,
		store:    st,
		cache:    cache,
		registry: reg,
		fetcher:  audio.NewHTTPFetcher(workDir),
		prober:   audio.NewFFProbe(cfg.FFprobeBinary),
		splitter: audio.NewFFmpegSplitter(cfg.FFmpegBinary, cfg.ChunkSeconds, cfg.MaxChunks),
		logger:   logger,
	}
}

// WithFetcher overrides audio acquisition (for testing).
func (p *Pipeline) WithFetcher(f audio.Fetcher) { p.fetcher = f }

// WithProber overrides duration probing (for testing).
func (p *Pipeline) WithProber(pr audio.Prober) { p.prober = pr }

// WithSplitter overrides chunk splitting (for testing).
func (p *Pipeline) WithSplitter(s audio.Splitter) { p.splitter = s }

// Begin starts a transcription run for req.UserID in the background. It
// fails fast when a run for that user is already in flight; otherwise the
// caller gets an immediate return and polls the session for progress.
func (p *Pipeline) Begin(req Request) error {
	sess := p.registry.Ensure(req.UserID)
	ctx, err := sess.Begin(context.Background())
	if err != nil {
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.PipelineTimeout)
		defer cancel()
		defer sess.Finish()
		started := time.Now()
		if err := p.run(ctx, sess, req); err != nil {
			p.logger.Printf("user=%s url=%s failed: %v", req.UserID, req.URL, err)
			sess.Fail(err)
			runsTotal.WithLabelValues("error").Inc()
			return
		}
		runsTotal.WithLabelValues("ok").Inc()
		runSeconds.Observe(time.Since(started).Seconds())
	}()
	return nil
}

// Run executes the pipeline synchronously (for testing and tooling); normal
// callers go through Begin.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	sess := p.registry.Ensure(req.UserID)
	ctx, err := sess.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Finish()
	if err := p.run(ctx, sess, req); err != nil {
		sess.Fail(err)
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, sess *session.Session, req Request) error {
	// A previously transcribed episode skips straight to engine construction.
	if ep, ok := p.lookupTranscript(ctx, req.URL); ok {
		p.logger.Printf("user=%s url=%s transcript cache hit", req.UserID, req.URL)
		return p.establish(ctx, sess, req, ep.Transcript, ep.ID)
	}

	sess.SetStatus(session.StatusDownloading)
	path, err := p.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return err
	}
	defer p.removeFile(path)

	sess.SetStatus(session.StatusGettingFileSize)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat audio: %w", err)
	}
	sizeMB := audio.FileSizeMB(info.Size())
	p.logger.Printf("user=%s downloaded %.1fMB", req.UserID, sizeMB)

	var transcript string
	if sizeMB > float64(p.cfg.MaxFileSizeMB) {
		transcript, err = p.transcribeChunked(ctx, sess, req, path)
	} else {
		sess.SetStatus(session.StatusTranscribing)
		transcript, err = p.transcribeFile(ctx, path, req.Mode)
	}
	if err != nil {
		return err
	}
	return p.establish(ctx, sess, req, transcript, "")
}

// transcribeChunked handles files above the size threshold: split into
// bounded chunks, transcribe each in order, then rebase the per-chunk SRT
// timelines into one contiguous transcript.
func (p *Pipeline) transcribeChunked(ctx context.Context, sess *session.Session, req Request, path string) (string, error) {
	duration, err := p.prober.Duration(ctx, path)
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}

	sess.SetStatus(session.StatusSplitting)
	chunks, err := p.splitter.Split(ctx, path, duration)
	if err != nil {
		return "", err
	}
	defer func() {
		for _, c := range chunks {
			p.removeFile(c.Path)
		}
	}()

	sess.SetStatus(session.StatusTranscribingChunks)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// chunks always transcribe to SRT so reassembly has timestamps
		text, err := p.provider.Transcribe(ctx, chunk.Path, provider.FormatSRT)
		if err != nil {
			return "", &TranscriptionError{Path: chunk.Path, Err: err}
		}
		parts = append(parts, text)
		chunksTranscribed.Inc()
		sess.SetStatus(session.ChunkProgress(i+1, len(chunks)))
	}

	sess.SetStatus(session.StatusReassembling)
	merged, err := srt.Reassemble(parts)
	if err != nil {
		return "", fmt.Errorf("reassemble transcript: %w", err)
	}
	sess.SetStatus(session.StatusAudioTranscribed)
	// audio mode keeps the timestamps so answers can point into playback
	if req.Mode != query.ModeAudio {
		return srt.PlainText(merged), nil
	}
	return merged, nil
}

func (p *Pipeline) transcribeFile(ctx context.Context, path, mode string) (string, error) {
	format := provider.FormatText
	if mode == query.ModeAudio {
		format = provider.FormatSRT
	}
	text, err := p.provider.Transcribe(ctx, path, format)
	if err != nil {
		return "", &TranscriptionError{Path: path, Err: err}
	}
	return text, nil
}

// establish builds the knowledge engine over the transcript, persists the
// episode, and flips the session to ready. episodeID is non-empty when the
// episode record already exists.
func (p *Pipeline) establish(ctx context.Context, sess *session.Session, req Request, transcript, episodeID string) error {
	sess.SetTranscript(transcript)
	sess.SetStatus(session.StatusEstablishingLLM)

	eng, err := engine.Build(ctx, transcript, p.provider, p.cfg.PassageSize, p.cfg.RetrievalTopK)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	sess.BindEngine(eng)

	if episodeID == "" && p.store != nil {
		episodeID, err = p.store.SaveEpisode(ctx, req.URL, req.Title, transcript)
		if err != nil {
			return fmt.Errorf("save episode: %w", err)
		}
	}
	sess.SetEpisodeID(episodeID)
	p.cache.Set(ctx, req.URL, transcript)

	sess.SetStatus(session.StatusReady)
	p.logger.Printf("user=%s url=%s ready", req.UserID, req.URL)
	return nil
}

// lookupTranscript checks redis then postgres for an existing transcript.
func (p *Pipeline) lookupTranscript(ctx context.Context, url string) (store.Episode, bool) {
	if transcript, ok := p.cache.Get(ctx, url); ok {
		return store.Episode{URL: url, Transcript: transcript}, true
	}
	if p.store == nil {
		return store.Episode{}, false
	}
	ep, found, err := p.store.FindEpisodeByURL(ctx, url)
	if err != nil {
		p.logger.Printf("episode lookup for %s failed: %v", url, err)
		return store.Episode{}, false
	}
	if !found || ep.Transcript == "" {
		return store.Episode{}, false
	}
	p.cache.Set(ctx, url, ep.Transcript)
	return ep, true
}

// FindEpisode exposes the store lookup for the transcript search route.
func (p *Pipeline) FindEpisode(ctx context.Context, url string) (store.Episode, bool, error) {
	if p.store == nil {
		return store.Episode{}, false, nil
	}
	return p.store.FindEpisodeByURL(ctx, url)
}

func (p *Pipeline) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Printf("cleanup %s: %v", path, err)
	}
}
