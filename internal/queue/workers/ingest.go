package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Ujjwal-deep/RAG-project/internal/queue"
	"github.com/Ujjwal-deep/RAG-project/internal/rag"
	"github.com/Ujjwal-deep/RAG-project/internal/storage"
)

// IngestWorker runs the same ingest pipeline as the synchronous upload
// path, fed from staged uploads instead of request bodies.
type IngestWorker struct {
	pipeline rag.Pipeline
	storage  storage.Storage
	bucket   string
}

func NewIngestWorker(p rag.Pipeline, store storage.Storage, bucket string) *IngestWorker {
	return &IngestWorker{pipeline: p, storage: store, bucket: bucket}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("ingesting document", "document_id", payload.DocumentID, "object_path", payload.ObjectPath)

	data, err := w.storage.Download(ctx, w.bucket, payload.ObjectPath)
	if err != nil {
		return fmt.Errorf("download staged file for %s: %w", payload.DocumentID, err)
	}

	result, err := w.pipeline.Ingest(ctx, rag.IngestRequest{
		DocumentID: payload.DocumentID,
		Filename:   payload.Filename,
		Data:       data,
		ChunkSize:  payload.ChunkSize,
		Overlap:    payload.Overlap,
	})
	if err != nil {
		return fmt.Errorf("ingest document %s: %w", payload.DocumentID, err)
	}

	// Staged file is no longer needed once the chunks are stored.
	if err := w.storage.Delete(ctx, w.bucket, payload.ObjectPath); err != nil {
		slog.Warn("failed to delete staged file", "object_path", payload.ObjectPath, "error", err)
	}

	slog.Info("document ingested",
		"document_id", result.DocumentID,
		"num_chunks", result.NumChunks,
		"inserted", result.Inserted,
	)
	return nil
}
