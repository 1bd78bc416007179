package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Prober reports the playable duration of an audio file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFProbe shells out to ffprobe for container-level duration.
type FFProbe struct {
	Binary string
}

func NewFFProbe(binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{Binary: binary}
}

func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.CommandContext(ctx, p.Binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration: %w", err)
	}
	return duration, nil
}

// FileSizeMB converts a byte count to whole-number megabytes for the chunking
// threshold comparison.
func FileSizeMB(sizeBytes int64) float64 {
	return float64(sizeBytes) / (1024 * 1024)
}
