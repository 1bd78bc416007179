// Package audio acquires remote episode audio and slices it into
// bounded-duration chunks for transcription.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Fetcher downloads an episode's audio and returns a local file path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads audio over HTTP into a working directory, one
// uniquely named file per fetch.
type HTTPFetcher struct {
	WorkDir string
	Client  *http.Client
}

func NewHTTPFetcher(workDir string) *HTTPFetcher {
	return &HTTPFetcher{WorkDir: workDir, Client: http.DefaultClient}
}

// Fetch retrieves the audio at url and writes it to the working directory.
// Any failure, including a partial body copy, is returned as a
// DownloadError; a truncated file is removed rather than handed back.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "Podquest/1.0")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := os.MkdirAll(f.WorkDir, 0o755); err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	path := filepath.Join(f.WorkDir, uuid.NewString()+".mp3")
	file, err := os.Create(path)
	if err != nil {
		return "", &DownloadError{URL: url, Err: err}
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		return "", &DownloadError{URL: url, Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", &DownloadError{URL: url, Err: err}
	}
	return path, nil
}
