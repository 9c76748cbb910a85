package rag

import (
	"context"
	"fmt"

	"github.com/Ujjwal-deep/RAG-project/internal/config"
	"github.com/Ujjwal-deep/RAG-project/internal/vectorstore"
	"github.com/Ujjwal-deep/RAG-project/pkg/chunker"
	"github.com/Ujjwal-deep/RAG-project/pkg/textextract"
	"github.com/Ujjwal-deep/RAG-project/pkg/tokenizer"
)

// Embedder is the embedding boundary the pipeline depends on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type Pipeline interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

// IngestRequest carries one uploaded document. DocumentID is chosen by
// the caller; re-using an id replaces the document's stored chunks.
type IngestRequest struct {
	DocumentID string
	Filename   string
	Data       []byte
	ChunkSize  int
	Overlap    int
}

type IngestResult struct {
	DocumentID string `json:"document_id"`
	NumChunks  int    `json:"num_chunks"`
	Inserted   int    `json:"inserted"`
	Requested  int    `json:"requested"`
}

type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type QueryResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

type pipeline struct {
	store    vectorstore.Store
	embedder Embedder
	composer *Composer
	chunking config.ChunkingConfig
}

func NewPipeline(store vectorstore.Store, embedder Embedder, composer *Composer, chunking config.ChunkingConfig) Pipeline {
	if chunking.ChunkSize <= 0 {
		chunking.ChunkSize = 1000
	}
	if chunking.Overlap < 0 {
		chunking.Overlap = 200
	}
	return &pipeline{
		store:    store,
		embedder: embedder,
		composer: composer,
		chunking: chunking,
	}
}

// Ingest runs extract -> split -> embed -> upsert for one document. The
// steps are strictly sequential; concurrency across documents is the
// caller's business.
func (p *pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = p.chunking.ChunkSize
	}
	overlap := req.Overlap
	if req.ChunkSize == 0 && req.Overlap == 0 {
		overlap = p.chunking.Overlap
	}

	text, err := textextract.Extract(req.Data, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", req.Filename, err)
	}

	chunks, err := chunker.Split(text, chunkSize, overlap)
	if err != nil {
		return nil, fmt.Errorf("split document %s: %w", req.DocumentID, err)
	}

	texts := make([]string, len(chunks))
	metadata := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		metadata[i] = map[string]any{
			"filename":    req.Filename,
			"token_count": tokenizer.CountTokens(c.Text),
		}
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", req.DocumentID, err)
	}

	// deleteExisting makes re-ingestion of the same document id idempotent.
	result, err := p.store.Upsert(ctx, req.DocumentID, texts, embeddings, metadata, true)
	if err != nil {
		return nil, fmt.Errorf("store document %s: %w", req.DocumentID, err)
	}

	return &IngestResult{
		DocumentID: req.DocumentID,
		NumChunks:  len(chunks),
		Inserted:   result.Inserted,
		Requested:  result.Requested,
	}, nil
}

// Query embeds the question, retrieves the nearest chunks and composes an
// answer. Retrieval failures are surfaced; completion failures are not.
func (p *pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := p.embedder.EmbedSingle(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := p.store.Query(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	answer, sources := p.composer.Compose(ctx, hits, req.Question)
	return &QueryResponse{Answer: answer, Sources: sources}, nil
}
