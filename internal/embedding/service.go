package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Ujjwal-deep/RAG-project/internal/cache"
	"github.com/Ujjwal-deep/RAG-project/internal/llm"
)

// Service turns text into vectors through the LLM gateway. Inputs are
// batched to bound request payloads, and results come back one vector per
// input in input order.
type Service struct {
	gateway   llm.Gateway
	provider  string
	model     string
	batchSize int
	cache     *cache.Cache
	cacheTTL  time.Duration
}

func NewService(gw llm.Gateway, provider, model string, batchSize int) *Service {
	if provider == "" {
		provider = "openai"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Service{
		gateway:   gw,
		provider:  provider,
		model:     model,
		batchSize: batchSize,
	}
}

// WithCache adds a Redis-backed per-text embedding cache. Cache failures
// are logged and ignored; they never fail an embed call.
func (s *Service) WithCache(c *cache.Cache, ttl time.Duration) *Service {
	s.cache = c
	s.cacheTTL = ttl
	return s
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec := s.cacheGet(ctx, text); vec != nil {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missTexts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[start:end]

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Provider: s.provider,
			Model:    s.model,
			Input:    batch,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", start/s.batchSize, err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d inputs", start/s.batchSize, len(resp.Embeddings), len(batch))
		}

		for j, vec := range resp.Embeddings {
			if err := validateVector(vec); err != nil {
				return nil, fmt.Errorf("embed batch %d input %d: %w", start/s.batchSize, j, err)
			}
			idx := missIdx[start+j]
			out[idx] = vec
			s.cacheSet(ctx, texts[idx], vec)
		}
	}

	return out, nil
}

func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// validateVector enforces the embedding boundary: plain finite floats only.
func validateVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding vector")
	}
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding contains non-finite value")
		}
	}
	return nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + s.model + ":" + hex.EncodeToString(sum[:])
}

func (s *Service) cacheGet(ctx context.Context, text string) []float32 {
	if s.cache == nil {
		return nil
	}
	var vec []float32
	err := s.cache.Get(ctx, s.cacheKey(text), &vec)
	if err != nil {
		if err != cache.ErrMiss {
			slog.Debug("embedding cache get failed", "error", err)
		}
		return nil
	}
	return vec
}

func (s *Service) cacheSet(ctx context.Context, text string, vec []float32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(text), vec, s.cacheTTL); err != nil {
		slog.Debug("embedding cache set failed", "error", err)
	}
}
