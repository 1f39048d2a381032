package interfaces

import (
	"context"

	"github.com/ternarybob/docquery/internal/models"
)

// IngestService runs the upload-time pipeline: parse, persist metadata and
// blob, then chunk+embed+persist in the background.
type IngestService interface {
	// Upload parses the file, stores the blob and the document row, starts
	// background chunk processing, and returns the document immediately.
	// ChunkCount on the returned document is 0 until ingestion completes.
	Upload(ctx context.Context, userID string, data []byte, mimeType, fileName string) (*models.Document, error)

	// Reprocess re-runs chunking and embedding from the stored text for a
	// document whose previous ingestion failed or whose index is stale.
	Reprocess(ctx context.Context, userID, documentID string) error

	// Delete removes the document, its chunk rows and its stored blob.
	Delete(ctx context.Context, userID, documentID string) error
}
