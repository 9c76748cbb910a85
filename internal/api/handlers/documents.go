package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/Ujjwal-deep/RAG-project/internal/queue"
	"github.com/Ujjwal-deep/RAG-project/internal/rag"
	"github.com/Ujjwal-deep/RAG-project/internal/storage"
	"github.com/Ujjwal-deep/RAG-project/internal/vectorstore"
	"github.com/Ujjwal-deep/RAG-project/pkg/chunker"
)

type DocumentHandler struct {
	pipeline rag.Pipeline
	queue    *queue.Client
	storage  storage.Storage
	bucket   string
}

func NewDocumentHandler(p rag.Pipeline, qc *queue.Client, store storage.Storage, bucket string) *DocumentHandler {
	return &DocumentHandler{pipeline: p, queue: qc, storage: store, bucket: bucket}
}

// Upload ingests one document. The caller supplies the file and a
// document_id of their choosing; uploading again under the same id
// replaces the stored chunks. With async=true the file is staged and a
// background task runs the same pipeline.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	documentID := r.FormValue("document_id")
	if documentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_id required"})
		return
	}

	chunkSize, _ := strconv.Atoi(r.FormValue("chunk_size"))
	overlap, _ := strconv.Atoi(r.FormValue("overlap"))

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file: " + err.Error()})
		return
	}

	if r.FormValue("async") == "true" {
		h.uploadAsync(w, r, documentID, header.Filename, data, chunkSize, overlap)
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), rag.IngestRequest{
		DocumentID: documentID,
		Filename:   header.Filename,
		Data:       data,
		ChunkSize:  chunkSize,
		Overlap:    overlap,
	})
	if err != nil {
		writeIngestError(w, documentID, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *DocumentHandler) uploadAsync(w http.ResponseWriter, r *http.Request, documentID, filename string, data []byte, chunkSize, overlap int) {
	if h.queue == nil || h.storage == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "async ingestion is not configured"})
		return
	}

	objectPath := fmt.Sprintf("%s/%s%s", documentID, uuid.NewString(), filepath.Ext(filename))
	if err := h.storage.Upload(r.Context(), h.bucket, objectPath, data, "application/octet-stream"); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":       "stage upload: " + err.Error(),
			"document_id": documentID,
		})
		return
	}

	err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocumentID: documentID,
		Filename:   filename,
		ObjectPath: objectPath,
		ChunkSize:  chunkSize,
		Overlap:    overlap,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":       "enqueue ingest: " + err.Error(),
			"document_id": documentID,
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "queued",
		"document_id": documentID,
	})
}

func writeIngestError(w http.ResponseWriter, documentID string, err error) {
	status := http.StatusInternalServerError

	var storeErr *vectorstore.StoreError
	switch {
	case errors.Is(err, chunker.ErrInvalidArgument), errors.Is(err, vectorstore.ErrShapeMismatch):
		status = http.StatusBadRequest
	case errors.As(err, &storeErr):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{
		"error":       err.Error(),
		"document_id": documentID,
	})
}
