package vectorstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore implements the same contract against a self-hosted
// Postgres with the pgvector extension. Same row shape and ranking as the
// hosted backend: cosine similarity, higher score = closer.
type PgVectorStore struct {
	db        *pgxpool.Pool
	batchSize int
}

func NewPgVectorStore(db *pgxpool.Pool, batchSize int) *PgVectorStore {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &PgVectorStore{db: db, batchSize: batchSize}
}

func (s *PgVectorStore) Upsert(ctx context.Context, documentID string, chunks []string, embeddings [][]float32, metadata []map[string]any, deleteExisting bool) (*UpsertResult, error) {
	metadata, err := checkShape(chunks, embeddings, metadata)
	if err != nil {
		return nil, err
	}

	if deleteExisting {
		if _, err := s.db.Exec(ctx, "DELETE FROM embeddings WHERE document_id = $1", documentID); err != nil {
			return nil, &StoreError{Op: "delete", DocumentID: documentID, Message: err.Error()}
		}
	}

	inserted := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			batch.Queue(
				`INSERT INTO embeddings (id, document_id, chunk_id, chunk_text, embedding, metadata)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), documentID, i, chunks[i], pgvector.NewVector(embeddings[i]), metadata[i],
			)
		}

		br := s.db.SendBatch(ctx, batch)
		batchInserted, err := drainBatch(br, end-start)
		inserted += batchInserted
		if err != nil {
			// Earlier batches stay in place: no rollback across batches.
			return nil, &StoreError{Op: "insert", DocumentID: documentID, Message: err.Error()}
		}
	}

	return &UpsertResult{DocumentID: documentID, Inserted: inserted, Requested: len(chunks)}, nil
}

func drainBatch(br pgx.BatchResults, n int) (int, error) {
	defer br.Close()
	inserted := 0
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PgVectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.db.Query(ctx,
		`SELECT id::text, document_id, chunk_id, chunk_text,
		        1 - (embedding <=> $1) AS score
		 FROM embeddings
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, &StoreError{Op: "query", Message: err.Error()}
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.ChunkID, &h.ChunkText, &h.Score); err != nil {
			return nil, &StoreError{Op: "query", Message: "scan hit: " + err.Error()}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Message: err.Error()}
	}
	return hits, nil
}
