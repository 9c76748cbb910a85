package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Ujjwal-deep/RAG-project/internal/rag"
)

type RAGHandler struct {
	pipeline rag.Pipeline
}

func NewRAGHandler(p rag.Pipeline) *RAGHandler {
	return &RAGHandler{pipeline: p}
}

func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}

	resp, err := h.pipeline.Query(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
