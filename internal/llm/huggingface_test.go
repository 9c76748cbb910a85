package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceCompleteListShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/meta-llama/Llama-2-7b-chat-hf", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req hfGenerateReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Inputs)

		json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "  hi there  "}})
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("test-key", srv.URL)
	out, err := p.Complete(context.Background(), CompletionRequest{
		Model:  "meta-llama/Llama-2-7b-chat-hf",
		Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestHuggingFaceCompleteObjectShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"generated_text": "answer"})
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("k", srv.URL)
	out, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestHuggingFaceCompleteGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is gated", http.StatusGone)
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("k", srv.URL)
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "q"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusGone, statusErr.Code)
	assert.True(t, statusErr.Gone())
}

func TestHuggingFaceCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("k", srv.URL)
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "q"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Gone())
}
