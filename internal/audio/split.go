package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strings"
)

// ChunkJob describes one bounded-duration slice of the source audio. Jobs
// exist only for the duration of a single transcription run and are never
// persisted.
type ChunkJob struct {
	Index int
	Start float64 // seconds, inclusive
	End   float64 // seconds, exclusive
	Path  string
}

// Duration returns the chunk length in seconds.
func (c ChunkJob) Duration() float64 {
	return c.End - c.Start
}

// PlanChunks partitions a timeline of duration seconds into at most
// maxChunks segments of chunkSeconds each. Segments are disjoint and
// contiguous; the final segment absorbs any remainder, so segment durations
// always sum to the full duration. Paths are left empty for the splitter to
// fill in.
func PlanChunks(duration float64, chunkSeconds, maxChunks int) []ChunkJob {
	if duration <= 0 || chunkSeconds <= 0 || maxChunks <= 0 {
		return nil
	}
	count := int(math.Ceil(duration / float64(chunkSeconds)))
	if count < 1 {
		count = 1
	}
	if count > maxChunks {
		count = maxChunks
	}
	jobs := make([]ChunkJob, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i * chunkSeconds)
		end := start + float64(chunkSeconds)
		if i == count-1 || end > duration {
			end = duration
		}
		jobs = append(jobs, ChunkJob{Index: i, Start: start, End: end})
	}
	return jobs
}

// Splitter slices a source file into chunk files on disk.
type Splitter interface {
	Split(ctx context.Context, source string, duration float64) ([]ChunkJob, error)
}

// FFmpegSplitter extracts each planned segment with ffmpeg, stream-copying
// the audio so no re-encode happens.
type FFmpegSplitter struct {
	Binary       string
	ChunkSeconds int
	MaxChunks    int

	// commandRunner overrides command execution (for testing).
	commandRunner func(ctx context.Context, name string, args ...string) error
}

func NewFFmpegSplitter(binary string, chunkSeconds, maxChunks int) *FFmpegSplitter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegSplitter{Binary: binary, ChunkSeconds: chunkSeconds, MaxChunks: maxChunks}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *FFmpegSplitter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Split produces the planned chunk files next to the source file. On a
// per-chunk failure it returns a SplitError; already-written chunk files are
// left for the caller to clean up.
func (s *FFmpegSplitter) Split(ctx context.Context, source string, duration float64) ([]ChunkJob, error) {
	jobs := PlanChunks(duration, s.ChunkSeconds, s.MaxChunks)
	base := strings.TrimSuffix(source, filepath.Ext(source))
	ext := filepath.Ext(source)
	for i := range jobs {
		jobs[i].Path = fmt.Sprintf("%s_chunk_%03d%s", base, jobs[i].Index, ext)
		args := []string{
			"-y",
			"-hide_banner",
			"-loglevel", "error",
			"-ss", fmt.Sprintf("%.3f", jobs[i].Start),
			"-t", fmt.Sprintf("%.3f", jobs[i].Duration()),
			"-i", source,
			"-vn",
			"-acodec", "copy",
			jobs[i].Path,
		}
		if err := s.run(ctx, s.Binary, args...); err != nil {
			return nil, &SplitError{Index: jobs[i].Index, Err: err}
		}
	}
	return jobs, nil
}

func (s *FFmpegSplitter) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
