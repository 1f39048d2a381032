package models

import "errors"

// Pipeline error taxonomy. Services wrap these with fmt.Errorf("...: %w", ...)
// so handlers can map them to HTTP statuses with errors.Is.
var (
	// ErrUnsupportedFormat means neither the declared MIME type nor the
	// filename extension resolves to a supported document format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrMissingPageContent means page-aware chunking was requested
	// without a dense page slice.
	ErrMissingPageContent = errors.New("missing page content")

	// ErrEmbeddingProvider means an embedding batch call failed. Embedding
	// is all-or-nothing per invocation; nothing is committed.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrRetrievalUnavailable means the nearest-neighbor query failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrNotFound means a referenced document or conversation does not
	// exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrGenerationProvider means the generation capability failed. In
	// streaming mode, fragments already emitted stand; the stream ends
	// with an error marker instead of a completion marker.
	ErrGenerationProvider = errors.New("generation provider failure")
)
