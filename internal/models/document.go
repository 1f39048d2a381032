package models

import "time"

// Ingest states recorded on a document while the background pipeline runs.
// A document stays at 0 chunks until it reaches IngestStatePersisted.
const (
	IngestStateUploaded  = "uploaded"
	IngestStateParsed    = "parsed"
	IngestStateChunked   = "chunked"
	IngestStateEmbedded  = "embedded"
	IngestStatePersisted = "persisted"
	IngestStateFailed    = "failed"
)

// Document represents an uploaded source file owned by a single user.
type Document struct {
	ID       string `json:"id" badgerhold:"key"`
	UserID   string `json:"user_id" badgerholdIndex:"UserID"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"` // declared MIME type

	// Full extracted text, kept for reprocessing without re-parsing the blob
	Content string `json:"content,omitempty"`

	// ChunkCount equals the number of persisted chunk rows once ingestion
	// completes; it is 0 (stale) between upload acknowledgment and that point.
	ChunkCount int `json:"chunk_count"`

	StoragePath string `json:"storage_path,omitempty"`

	IngestState string `json:"ingest_state"`
	IngestError string `json:"ingest_error,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}

// ParsedDocument is the transient output of the parser. Pages is non-nil
// only for page-structured formats; empty pages are preserved as "".
type ParsedDocument struct {
	Text  string
	Pages []string
}

// TextChunk is the transient unit produced by the chunker and consumed by
// the embedder. Index is document-global, zero-based and gap-free.
// PageNumber is 1-based, 0 when the source format has no pages.
type TextChunk struct {
	Content    string
	Index      int
	PageNumber int
}

// DocumentChunk is a persisted chunk row with its embedding vector.
// UserID and DocumentTitle are denormalized: UserID for owner-scoped
// nearest-neighbor queries, DocumentTitle for citation rendering.
// Rows are immutable and deleted only by cascading document deletion.
type DocumentChunk struct {
	ID            string    `json:"id" badgerhold:"key"`
	DocumentID    string    `json:"document_id" badgerholdIndex:"DocumentID"`
	UserID        string    `json:"user_id" badgerholdIndex:"UserID"`
	DocumentTitle string    `json:"document_title"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"embedding"`
	ChunkIndex    int       `json:"chunk_index"`
	PageNumber    int       `json:"page_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SourceChunk is the response-facing citation derived from a retrieval hit.
type SourceChunk struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Content       string  `json:"content"`
	Similarity    float32 `json:"similarity"`
	ChunkIndex    int     `json:"chunk_index"`
	PageNumber    int     `json:"page_number,omitempty"`
}
