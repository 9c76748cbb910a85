package queue

const TypeDocumentIngest = "document:ingest"

// DocumentIngestPayload points the worker at a staged upload.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ObjectPath string `json:"object_path"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
	Overlap    int    `json:"overlap,omitempty"`
}
