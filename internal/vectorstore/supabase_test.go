package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal-deep/RAG-project/internal/config"
)

func newTestStore(t *testing.T, handler http.Handler, batchSize int) (*SupabaseStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := NewSupabaseStore(config.StoreConfig{
		SupabaseURL: srv.URL,
		SupabaseKey: "test-key",
		Table:       "embeddings",
		BatchSize:   batchSize,
	})
	return store, srv
}

// fakeTable is a minimal in-memory PostgREST endpoint: delete by
// document_id equality and batch inserts with representation.
type fakeTable struct {
	mu   sync.Mutex
	rows []supabaseRow
}

func (f *fakeTable) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/rest/v1/embeddings":
			docID := strings.TrimPrefix(r.URL.Query().Get("document_id"), "eq.")
			var kept []supabaseRow
			for _, row := range f.rows {
				if row.DocumentID != docID {
					kept = append(kept, row)
				}
			}
			f.rows = kept
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/embeddings":
			var batch []supabaseRow
			if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
				http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows, batch...)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(batch)

		default:
			http.NotFound(w, r)
		}
	})
}

func vectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return out
}

func TestUpsertShapeMismatchBeforeNetwork(t *testing.T) {
	calls := 0
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}), 100)

	_, err := store.Upsert(context.Background(), "D1", []string{"a", "b"}, vectors(1), nil, true)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Zero(t, calls)

	_, err = store.Upsert(context.Background(), "D1", []string{"a"}, vectors(1), make([]map[string]any, 2), true)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Zero(t, calls)
}

func TestUpsertDeleteThenBatchedInserts(t *testing.T) {
	var mu sync.Mutex
	var ops []string
	table := &fakeTable{}
	inner := table.handler()

	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ops = append(ops, r.Method)
		mu.Unlock()
		inner.ServeHTTP(w, r)
	}), 2)

	res, err := store.Upsert(context.Background(), "D1", []string{"a", "b", "c", "d", "e"}, vectors(5), nil, true)
	require.NoError(t, err)
	assert.Equal(t, "D1", res.DocumentID)
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, 5, res.Requested)

	// delete first, then ceil(5/2)=3 insert batches
	assert.Equal(t, []string{"DELETE", "POST", "POST", "POST"}, ops)

	// chunk ids are the splitter order, 0..N-1 with no gaps
	for i, row := range table.rows {
		assert.Equal(t, i, row.ChunkID)
		assert.Equal(t, "D1", row.DocumentID)
	}
}

func TestUpsertDeleteFailureAbortsInsert(t *testing.T) {
	inserts := 0
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
			return
		}
		inserts++
	}), 100)

	_, err := store.Upsert(context.Background(), "D1", []string{"a"}, vectors(1), nil, true)
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "delete", storeErr.Op)
	assert.Equal(t, "D1", storeErr.DocumentID)
	assert.Equal(t, http.StatusForbidden, storeErr.Status)
	assert.Contains(t, storeErr.Message, "permission denied")
	assert.Zero(t, inserts, "a failed delete must not be followed by an insert")
}

func TestUpsertBatchFailureKeepsEarlierBatches(t *testing.T) {
	table := &fakeTable{}
	inner := table.handler()
	posts := 0

	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			if posts == 2 {
				http.Error(w, `{"message":"insert exploded"}`, http.StatusInternalServerError)
				return
			}
		}
		inner.ServeHTTP(w, r)
	}), 2)

	_, err := store.Upsert(context.Background(), "D1", []string{"a", "b", "c", "d"}, vectors(4), nil, false)
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "insert", storeErr.Op)
	assert.Contains(t, storeErr.Message, "insert exploded")

	// first batch is not rolled back
	assert.Len(t, table.rows, 2)
}

func TestUpsertReingestReplacesPriorChunks(t *testing.T) {
	table := &fakeTable{}
	store, _ := newTestStore(t, table.handler(), 100)

	_, err := store.Upsert(context.Background(), "D1", []string{"old-a", "old-b", "old-c"}, vectors(3), nil, true)
	require.NoError(t, err)

	res, err := store.Upsert(context.Background(), "D1", []string{"new-a", "new-b"}, vectors(2), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	require.Len(t, table.rows, 2)
	assert.Equal(t, "new-a", table.rows[0].ChunkText)
	assert.Equal(t, "new-b", table.rows[1].ChunkText)
	assert.Equal(t, 0, table.rows[0].ChunkID)
	assert.Equal(t, 1, table.rows[1].ChunkID)
}

func TestUpsertInsertedFallsBackToBatchLength(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no representation in the response
		w.WriteHeader(http.StatusCreated)
	}), 100)

	res, err := store.Upsert(context.Background(), "D1", []string{"a", "b"}, vectors(2), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
}

func TestQueryReturnsOrderedHits(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/match_vectors", r.URL.Path)

		var payload struct {
			QueryEmbedding []float32 `json:"query_embedding"`
			MatchCount     int       `json:"match_count"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 2, payload.MatchCount)

		json.NewEncoder(w).Encode([]Hit{
			{ID: "1", DocumentID: "D1", ChunkID: 3, ChunkText: "best", Score: 0.92},
			{ID: "2", DocumentID: "D2", ChunkID: 0, ChunkText: "next", Score: 0.81},
		})
	}), 100)

	hits, err := store.Query(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "best", hits[0].ChunkText)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestQueryEmptyStoreReturnsEmptySlice(t *testing.T) {
	for _, body := range []string{"null", "[]"} {
		store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}), 100)

		hits, err := store.Query(context.Background(), []float32{0.1}, 5)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	}
}

func TestQueryErrorKeyInsidePayload(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"function match_vectors does not exist"}`))
	}), 100)

	_, err := store.Query(context.Background(), []float32{0.1}, 5)
	require.Error(t, err)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "query", storeErr.Op)
	assert.Contains(t, storeErr.Message, "match_vectors")
}
