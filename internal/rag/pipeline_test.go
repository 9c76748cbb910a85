package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal-deep/RAG-project/internal/config"
	"github.com/Ujjwal-deep/RAG-project/internal/vectorstore"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// fakeStore records upserts per document and serves canned hits.
type fakeStore struct {
	docs     map[string][]string
	metadata map[string][]map[string]any
	hits     []vectorstore.Hit
	queryErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string][]string{}, metadata: map[string][]map[string]any{}}
}

func (f *fakeStore) Upsert(ctx context.Context, documentID string, chunks []string, embeddings [][]float32, metadata []map[string]any, deleteExisting bool) (*vectorstore.UpsertResult, error) {
	if len(chunks) != len(embeddings) || len(chunks) != len(metadata) {
		return nil, vectorstore.ErrShapeMismatch
	}
	if deleteExisting {
		delete(f.docs, documentID)
		delete(f.metadata, documentID)
	}
	f.docs[documentID] = append(f.docs[documentID], chunks...)
	f.metadata[documentID] = append(f.metadata[documentID], metadata...)
	return &vectorstore.UpsertResult{DocumentID: documentID, Inserted: len(chunks), Requested: len(chunks)}, nil
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.Hit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func newTestPipeline(store vectorstore.Store, embedder Embedder, completer *fakeCompleter) Pipeline {
	return NewPipeline(store, embedder, NewComposer(completer), config.ChunkingConfig{ChunkSize: 10, Overlap: 2})
}

func TestIngestSplitsEmbedsAndStores(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{})

	res, err := p.Ingest(context.Background(), IngestRequest{
		DocumentID: "D1",
		Filename:   "notes.txt",
		Data:       []byte("abcdefghijklmnopqrstuvwxyz"),
	})
	require.NoError(t, err)
	assert.Equal(t, "D1", res.DocumentID)
	assert.Equal(t, res.NumChunks, res.Requested)
	assert.Equal(t, res.Inserted, res.Requested)

	// chunk size 10, overlap 2 -> step 8 over 26 runes -> 4 chunks
	require.Len(t, store.docs["D1"], 4)
	assert.Equal(t, "abcdefghij", store.docs["D1"][0])
	assert.Equal(t, "yz", store.docs["D1"][3])

	// per-chunk metadata carries the filename
	assert.Equal(t, "notes.txt", store.metadata["D1"][0]["filename"])
	assert.NotZero(t, store.metadata["D1"][0]["token_count"])
}

func TestIngestReplacesPriorVersion(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{})

	_, err := p.Ingest(context.Background(), IngestRequest{DocumentID: "D1", Filename: "a.txt", Data: []byte("old old old old old")})
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), IngestRequest{DocumentID: "D1", Filename: "a.txt", Data: []byte("new")})
	require.NoError(t, err)

	require.Len(t, store.docs["D1"], 1)
	assert.Equal(t, "new", store.docs["D1"][0])
}

func TestIngestEmptyDocument(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{})

	res, err := p.Ingest(context.Background(), IngestRequest{DocumentID: "D1", Filename: "empty.txt", Data: nil})
	require.NoError(t, err)
	assert.Zero(t, res.NumChunks)
	assert.Zero(t, res.Inserted)
}

func TestIngestInvalidChunkParams(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{})

	_, err := p.Ingest(context.Background(), IngestRequest{
		DocumentID: "D1",
		Filename:   "a.txt",
		Data:       []byte("content"),
		ChunkSize:  -3,
	})
	assert.Error(t, err)
	assert.Empty(t, store.docs)
}

func TestIngestEmbedFailureSurfacesWithDocumentContext(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store, &fakeEmbedder{fail: true}, &fakeCompleter{})

	_, err := p.Ingest(context.Background(), IngestRequest{DocumentID: "D7", Filename: "a.txt", Data: []byte("content")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "D7")
	assert.Empty(t, store.docs, "nothing stored when embedding fails")
}

func TestQueryComposesAnswerWithSources(t *testing.T) {
	store := newFakeStore()
	store.hits = []vectorstore.Hit{
		{ID: "1", DocumentID: "D1", ChunkID: 2, ChunkText: "relevant text", Score: 0.88},
	}
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{answer: "the answer"})

	resp, err := p.Query(context.Background(), QueryRequest{Question: "what?", TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "D1", resp.Sources[0].DocumentID)
	assert.Equal(t, 2, resp.Sources[0].ChunkID)
}

func TestQueryEmptyStore(t *testing.T) {
	store := newFakeStore()
	fc := &fakeCompleter{}
	p := newTestPipeline(store, &fakeEmbedder{}, fc)

	resp, err := p.Query(context.Background(), QueryRequest{Question: "what?"})
	require.NoError(t, err)
	assert.Equal(t, noContextMessage, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, fc.calls)
}

func TestQueryRetrievalErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.queryErr = &vectorstore.StoreError{Op: "query", Message: "rpc missing"}
	p := newTestPipeline(store, &fakeEmbedder{}, &fakeCompleter{})

	_, err := p.Query(context.Background(), QueryRequest{Question: "what?"})
	assert.Error(t, err)
}
