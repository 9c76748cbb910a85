package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider abstracts a hosted model API (OpenAI, Anthropic, Ollama,
// HuggingFace Inference). A provider may support only one of the two
// operations; unsupported calls return an error.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Name() string
}

// Gateway routes requests to a configured provider.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Provider(name string) (Provider, error)
}

// Completer is the single-prompt completion boundary consumed by the
// answer composer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompletionRequest is the input for text generation.
type CompletionRequest struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// EmbeddingRequest is the input for embedding generation.
type EmbeddingRequest struct {
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model"`
	Input    []string `json:"input"`
}

// EmbeddingResponse is the output from embedding generation, one vector
// per input string, same order.
type EmbeddingResponse struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
	Tokens     int         `json:"tokens"`
}

// StatusError is a completion-call failure that carries the upstream HTTP
// status so callers can branch on the error class.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Gone reports whether the upstream says the target model is no longer
// available (HTTP 410).
func (e *StatusError) Gone() bool {
	return e.Code == http.StatusGone
}
