package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Ujjwal-deep/RAG-project/internal/config"
)

// SupabaseStore talks to a Supabase project over the PostgREST wire
// protocol: deletes filtered by document_id equality, plain table inserts,
// and similarity search through the match_vectors RPC.
type SupabaseStore struct {
	baseURL    string
	apiKey     string
	table      string
	batchSize  int
	httpClient *http.Client
}

func NewSupabaseStore(cfg config.StoreConfig) *SupabaseStore {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SupabaseStore{
		baseURL:    cfg.SupabaseURL + "/rest/v1",
		apiKey:     cfg.SupabaseKey,
		table:      cfg.Table,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type supabaseRow struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ChunkID    int            `json:"chunk_id"`
	ChunkText  string         `json:"chunk_text"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *SupabaseStore) Upsert(ctx context.Context, documentID string, chunks []string, embeddings [][]float32, metadata []map[string]any, deleteExisting bool) (*UpsertResult, error) {
	metadata, err := checkShape(chunks, embeddings, metadata)
	if err != nil {
		return nil, err
	}

	// Delete happens-before insert for this document. A failed delete is
	// fatal: inserting after it would leave stale rows beside new ones.
	if deleteExisting {
		if err := s.deleteDocument(ctx, documentID); err != nil {
			return nil, err
		}
	}

	rows := make([]supabaseRow, len(chunks))
	for i := range chunks {
		rows[i] = supabaseRow{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkID:    i,
			ChunkText:  chunks[i],
			Embedding:  embeddings[i],
			Metadata:   metadata[i],
		}
	}

	inserted := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		n, err := s.insertBatch(ctx, documentID, batch)
		if err != nil {
			return nil, err
		}
		inserted += n
	}

	return &UpsertResult{DocumentID: documentID, Inserted: inserted, Requested: len(chunks)}, nil
}

func (s *SupabaseStore) deleteDocument(ctx context.Context, documentID string) error {
	u := fmt.Sprintf("%s/%s?document_id=eq.%s", s.baseURL, s.table, url.QueryEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &StoreError{Op: "delete", DocumentID: documentID, Message: err.Error()}
	}
	defer resp.Body.Close()

	if _, err := normalizeResponse("delete", documentID, resp); err != nil {
		return err
	}
	return nil
}

func (s *SupabaseStore) insertBatch(ctx context.Context, documentID string, batch []supabaseRow) (int, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return 0, fmt.Errorf("marshal insert batch: %w", err)
	}

	u := fmt.Sprintf("%s/%s", s.baseURL, s.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create insert request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, &StoreError{Op: "insert", DocumentID: documentID, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := normalizeResponse("insert", documentID, resp)
	if err != nil {
		return 0, err
	}

	// Count rows the store acknowledged; fall back to the batch length when
	// the response does not carry a representation.
	var returned []json.RawMessage
	if err := json.Unmarshal(data, &returned); err == nil && returned != nil {
		return len(returned), nil
	}
	return len(batch), nil
}

func (s *SupabaseStore) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	payload := map[string]any{
		"query_embedding": embedding,
		"match_count":     topK,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	u := fmt.Sprintf("%s/rpc/match_vectors", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "query", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := normalizeResponse("query", "", resp)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, &StoreError{Op: "query", Message: "unexpected response shape", Snippet: snippet(data)}
	}
	if hits == nil {
		hits = []Hit{}
	}
	return hits, nil
}

func (s *SupabaseStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// normalizeResponse translates the store's heterogeneous failure shapes
// (HTTP status, top-level "error" or "message" keys) into one StoreError.
// On success it returns the raw response body.
func normalizeResponse(op, documentID string, resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreError{Op: op, DocumentID: documentID, Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		return nil, &StoreError{
			Op:         op,
			DocumentID: documentID,
			Status:     resp.StatusCode,
			Message:    errorMessage(data),
			Snippet:    snippet(data),
		}
	}

	// Some client/server combinations report failure inside a 2xx payload.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if raw, ok := obj["error"]; ok && string(raw) != "null" && string(raw) != `""` {
			return nil, &StoreError{
				Op:         op,
				DocumentID: documentID,
				Status:     resp.StatusCode,
				Message:    errorMessage(data),
				Snippet:    snippet(data),
			}
		}
	}

	return data, nil
}

func errorMessage(data []byte) string {
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		switch {
		case obj.Message != "":
			return obj.Message
		case obj.Error != "":
			return obj.Error
		case obj.Hint != "":
			return obj.Hint
		}
	}
	return string(snippetBytes(data))
}

func snippet(data []byte) string {
	return string(snippetBytes(data))
}

func snippetBytes(data []byte) []byte {
	const maxLen = 300
	if len(data) > maxLen {
		return data[:maxLen]
	}
	return data
}
