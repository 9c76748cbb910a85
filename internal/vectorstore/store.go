package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when the chunk, embedding and metadata
// slices passed to Upsert differ in length. It is raised before any
// network call is made.
var ErrShapeMismatch = errors.New("vectorstore: chunks, embeddings and metadata must have the same length")

// StoreError is a normalized delete/insert/query failure against the
// underlying vector store. Snippet carries whatever diagnostic payload the
// store returned, truncated for logging.
type StoreError struct {
	Op         string
	DocumentID string
	Status     int
	Message    string
	Snippet    string
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("vectorstore: %s failed", e.Op)
	if e.DocumentID != "" {
		msg += fmt.Sprintf(" for document %s", e.DocumentID)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Snippet != "" {
		msg += " | data=" + e.Snippet
	}
	return msg
}

// Hit is one similarity match. Hits are ordered by score descending;
// higher means more relevant.
type Hit struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkID    int     `json:"chunk_id"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

// UpsertResult summarizes one ingest. Inserted counts rows acknowledged by
// the store; Requested is the number of chunks submitted.
type UpsertResult struct {
	DocumentID string `json:"document_id"`
	Inserted   int    `json:"inserted"`
	Requested  int    `json:"requested"`
}

// Store persists chunk rows per document and answers similarity queries.
//
// Upsert with deleteExisting=true first removes every stored row for
// documentID, so re-ingesting a document is idempotent: the store never
// keeps stale chunks from a prior version. A failed delete aborts the
// call before any insert. Rows are inserted in fixed-size batches; a
// batch failure aborts the call but earlier batches are NOT rolled back —
// callers must treat a failed upsert as "re-ingest the whole document".
//
// Query returns at most topK hits sorted by similarity descending, and an
// empty slice (never an error) when the store has no matches.
type Store interface {
	Upsert(ctx context.Context, documentID string, chunks []string, embeddings [][]float32, metadata []map[string]any, deleteExisting bool) (*UpsertResult, error)
	Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
}

// checkShape validates the upsert precondition and fills in empty
// per-chunk metadata when the caller passed none.
func checkShape(chunks []string, embeddings [][]float32, metadata []map[string]any) ([]map[string]any, error) {
	if len(chunks) != len(embeddings) {
		return nil, ErrShapeMismatch
	}
	if metadata == nil {
		metadata = make([]map[string]any, len(chunks))
		for i := range metadata {
			metadata[i] = map[string]any{}
		}
	}
	if len(metadata) != len(chunks) {
		return nil, ErrShapeMismatch
	}
	return metadata, nil
}
