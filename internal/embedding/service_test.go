package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal-deep/RAG-project/internal/llm"
)

type fakeGateway struct {
	calls [][]string
	fail  bool
	bad   bool // return a wrong number of vectors
}

func (f *fakeGateway) Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.calls = append(f.calls, req.Input)
	if f.fail {
		return nil, fmt.Errorf("boom")
	}
	n := len(req.Input)
	if f.bad {
		n--
	}
	embeddings := make([][]float32, n)
	for i := range embeddings {
		embeddings[i] = []float32{float32(len(req.Input[i])), 1}
	}
	return &llm.EmbeddingResponse{Provider: req.Provider, Model: req.Model, Embeddings: embeddings}, nil
}

func (f *fakeGateway) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeGateway) Provider(name string) (llm.Provider, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := NewService(&fakeGateway{}, "openai", "m", 4)
	out, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEmbedBatches(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "openai", "m", 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	out, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))

	// 5 inputs with batch size 2 -> 3 upstream calls
	assert.Len(t, gw.calls, 3)

	// order preserved: vector i encodes len(texts[i])
	for i, vec := range out {
		assert.Equal(t, float32(len(texts[i])), vec[0])
	}
}

func TestEmbedUpstreamFailure(t *testing.T) {
	svc := NewService(&fakeGateway{fail: true}, "openai", "m", 4)
	_, err := svc.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	svc := NewService(&fakeGateway{bad: true}, "openai", "m", 4)
	_, err := svc.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vectors")
}

func TestEmbedSingle(t *testing.T) {
	svc := NewService(&fakeGateway{}, "openai", "m", 4)
	vec, err := svc.EmbedSingle(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, float32(5), vec[0])
}

func TestValidateVector(t *testing.T) {
	assert.Error(t, validateVector(nil))
	assert.Error(t, validateVector([]float32{float32(nan())}))
	assert.NoError(t, validateVector([]float32{0.1, -0.2}))
}

func nan() float64 {
	var z float64
	return z / z
}
