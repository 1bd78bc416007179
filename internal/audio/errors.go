package audio

import "fmt"

// DownloadError reports a failed audio fetch: a non-success HTTP status or
// an I/O failure while writing the file. Partial downloads surface here
// rather than being silently kept.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// SplitError reports a failed segmentation of one chunk. Partial chunk
// outputs from a failed run are not cleaned up here; the caller owns
// cleanup.
type SplitError struct {
	Index int
	Err   error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("split chunk %d: %v", e.Index, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }
