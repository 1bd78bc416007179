package provider

import (
	"context"
	"errors"

	"github.com/heaversm/podquest/config"
	openai_provider "github.com/heaversm/podquest/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
)

// TranscriptFormat selects the speech-to-text output shape. It is an alias
// so implementations outside this package satisfy the interface without
// importing it back.
type TranscriptFormat = string

const (
	// FormatSRT asks for a subtitle transcript with per-cue timestamps.
	FormatSRT TranscriptFormat = "srt"
	// FormatText asks for a plain text transcript.
	FormatText TranscriptFormat = "text"
)

// Provider is the interface the pipeline and query dispatcher consume. It
// covers the three external AI capabilities: speech-to-text, embeddings and
// text completion.
type Provider interface {
	Transcribe(ctx context.Context, filePath string, format TranscriptFormat) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Completion(ctx context.Context, prompt string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.OpenAIConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(cfg), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
