package openai_provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/heaversm/podquest/config"
	openai "github.com/sashabaranov/go-openai"
)

// client implements the provider interface using OpenAI's API.
type client struct {
	api                *openai.Client
	completionModel    string
	embeddingModel     string
	transcriptionModel string
	temperature        float64
	maxTokens          int
}

// NewOpenAIClient creates a new OpenAI client. All calls share one HTTP
// client with the configured timeout so no external call can hang a
// pipeline stage indefinitely.
func NewOpenAIClient(cfg config.OpenAIConfig) *client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &client{
		api:                openai.NewClientWithConfig(apiCfg),
		completionModel:    cfg.CompletionModel,
		embeddingModel:     cfg.EmbeddingModel,
		transcriptionModel: cfg.TranscriptionModel,
		temperature:        cfg.Temperature,
		maxTokens:          cfg.MaxTokens,
	}
}

// Transcribe sends one audio file to the speech-to-text endpoint and returns
// the transcript in the requested format. The prompt hint is always empty:
// chunks are transcribed independently with no cross-chunk context.
func (c *client) Transcribe(ctx context.Context, filePath string, format string) (string, error) {
	respFormat := openai.AudioResponseFormatText
	if format == "srt" {
		respFormat = openai.AudioResponseFormatSRT
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filePath,
		Format:   respFormat,
		Prompt:   "",
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return resp.Text, nil
}

// CreateEmbedding generates an embedding for the given texts using OpenAI's API
func (c *client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Completion sends a single-turn chat completion request and returns the
// assistant's reply.
func (c *client) Completion(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.completionModel,
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
