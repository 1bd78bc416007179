package pipeline

import "fmt"

// TranscriptionError wraps a speech-to-text failure for one file or chunk.
type TranscriptionError struct {
	Path string
	Err  error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe %s: %v", e.Path, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
