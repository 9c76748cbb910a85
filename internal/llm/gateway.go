package llm

import (
	"context"
	"fmt"

	"github.com/Ujjwal-deep/RAG-project/internal/config"
)

type gateway struct {
	providers map[string]Provider
}

// NewGateway registers a provider for every credential present in the
// config. Each call through the gateway is a single attempt: completion
// and store failures are handled by the caller's fallback policy, not by
// retries here.
func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{providers: make(map[string]Provider)}

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		g.providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}
	if cfg.HuggingFaceKey != "" {
		g.providers["huggingface"] = NewHuggingFaceProvider(cfg.HuggingFaceKey, "")
	}

	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	p, err := g.Provider(req.Provider)
	if err != nil {
		return "", err
	}
	return p.Complete(ctx, req)
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	p, err := g.Provider(req.Provider)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, req)
}

// completer binds a gateway to one provider and model, enforcing the
// bounded per-call timeout of the completion boundary.
type completer struct {
	gw  Gateway
	cfg config.CompletionConfig
}

func NewCompleter(gw Gateway, cfg config.CompletionConfig) Completer {
	return &completer{gw: gw, cfg: cfg}
}

func (c *completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	return c.gw.Complete(ctx, CompletionRequest{
		Provider:    c.cfg.Provider,
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
}
