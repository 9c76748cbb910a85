package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHFBaseURL = "https://api-inference.huggingface.co"

// HuggingFaceProvider calls the hosted Inference API. Hosted models come
// and go: the API answers 410 for gated or retired models, which callers
// need to distinguish from transient failures, so every non-2xx response
// is surfaced as a StatusError.
type HuggingFaceProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewHuggingFaceProvider(apiKey, baseURL string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	return &HuggingFaceProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

type hfGenerateReq struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

func (p *HuggingFaceProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body, _ := json.Marshal(hfGenerateReq{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens: req.MaxTokens,
			Temperature:  req.Temperature,
		},
	})

	url := fmt.Sprintf("%s/models/%s", p.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("huggingface inference: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("huggingface read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &StatusError{Provider: "huggingface", Code: resp.StatusCode, Body: string(raw)}
	}

	return parseHFGeneratedText(raw), nil
}

// parseHFGeneratedText handles the common Inference API response shapes:
// a list of objects with generated_text, a single such object, or
// anything else verbatim.
func parseHFGeneratedText(raw []byte) string {
	var list []hfGenerated
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].GeneratedText != "" {
		return strings.TrimSpace(list[0].GeneratedText)
	}

	var single hfGenerated
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return strings.TrimSpace(single.GeneratedText)
	}

	return strings.TrimSpace(string(raw))
}

func (p *HuggingFaceProvider) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	return nil, fmt.Errorf("huggingface: embeddings not supported")
}
