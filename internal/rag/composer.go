package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ujjwal-deep/RAG-project/internal/llm"
	"github.com/Ujjwal-deep/RAG-project/internal/vectorstore"
)

const (
	contextSeparator = "\n\n---\n\n"
	noContextMessage = "No relevant context found for the query."

	// sourceTextLimit bounds the per-source preview in responses; it is a
	// bandwidth optimization, the stored chunk text is never truncated.
	sourceTextLimit = 500

	fallbackSnippets   = 3
	fallbackSnippetLen = 200
	rawContextLimit    = 1200
)

// goneFallbackNotice marks answers produced without the model because the
// configured completion model is no longer available.
const goneFallbackNotice = "(completion model unavailable; returning context summary instead.)"

// SourceRef points a caller back at one retrieved chunk.
type SourceRef struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkID    int     `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// Composer assembles retrieved chunks into an answer. Generation is best
// effort: retrieval already succeeded by the time Compose runs, so every
// completion failure is masked behind a textual fallback and the sources
// list is always returned.
type Composer struct {
	completer llm.Completer
}

func NewComposer(completer llm.Completer) *Composer {
	return &Composer{completer: completer}
}

func (c *Composer) Compose(ctx context.Context, hits []vectorstore.Hit, question string) (string, []SourceRef) {
	sources := make([]SourceRef, 0, len(hits))
	contexts := make([]string, 0, len(hits))
	for _, h := range hits {
		contexts = append(contexts, h.ChunkText)
		sources = append(sources, SourceRef{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			ChunkID:    h.ChunkID,
			Score:      h.Score,
			Text:       truncateRunes(h.ChunkText, sourceTextLimit),
		})
	}

	combined := strings.TrimSpace(strings.Join(contexts, contextSeparator))
	if combined == "" {
		return noContextMessage, sources
	}

	// Exactly one completion attempt; the fallback policy handles the rest.
	answer, err := c.completer.Complete(ctx, buildPrompt(combined, question))
	if err == nil {
		return strings.TrimSpace(answer), sources
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && statusErr.Gone() {
		slog.Warn("completion model gone, using extractive fallback", "status", statusErr.Code)
		return extractiveSummary(contexts), sources
	}

	slog.Warn("completion failed, returning truncated context", "error", err)
	return fmt.Sprintf("(completion failed: %v)\n\nContext:\n%s", err, truncateRunes(combined, rawContextLimit)), sources
}

func buildPrompt(context, question string) string {
	return "You are a helpful assistant. Use ONLY the provided context to answer the question.\n\n" +
		"CONTEXT:\n" + context + "\n\nQUESTION: " + question + "\n\n" +
		"Answer concisely and cite document_id when possible. If you cannot answer from the context, say so."
}

// extractiveSummary builds a non-generative answer from the first few
// retrieved chunks.
func extractiveSummary(contexts []string) string {
	n := fallbackSnippets
	if n > len(contexts) {
		n = len(contexts)
	}
	snippets := make([]string, 0, n)
	for _, c := range contexts[:n] {
		flat := strings.Join(strings.Fields(c), " ")
		snippets = append(snippets, truncateRunes(flat, fallbackSnippetLen))
	}
	return goneFallbackNotice + "\n\n" + strings.Join(snippets, " / ")
}

func truncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
