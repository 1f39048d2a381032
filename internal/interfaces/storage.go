package interfaces

import (
	"context"

	"github.com/ternarybob/docquery/internal/models"
)

// DocumentStorage persists document metadata rows, scoped by owner id.
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	// GetDocument returns models.ErrNotFound when the document does not
	// exist or belongs to another user.
	GetDocument(ctx context.Context, userID, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]*models.Document, error)
	// UpdateIngestState records a state-machine transition, optionally with
	// an error message and the final chunk count.
	UpdateIngestState(ctx context.Context, id, state, ingestErr string, chunkCount int) error
	DeleteDocument(ctx context.Context, userID, id string) error
}

// ChunkStorage persists chunk rows and serves nearest-neighbor queries.
type ChunkStorage interface {
	SaveChunk(ctx context.Context, chunk *models.DocumentChunk) error
	// SearchSimilar returns owner-scoped rows whose cosine similarity to
	// the query vector meets threshold, ordered by similarity descending
	// with ties broken by ascending chunk index, capped at topK.
	SearchSimilar(ctx context.Context, userID string, vector []float32, topK int, threshold float32) ([]models.SourceChunk, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ConversationStorage persists conversations and messages, scoped by owner.
type ConversationStorage interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	// GetConversation returns models.ErrNotFound when the conversation does
	// not exist or belongs to another user.
	GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	// TouchConversation bumps UpdatedAt.
	TouchConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, userID, id string) error

	SaveMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns messages oldest first (CreatedAt, then Seq).
	// limit <= 0 means no limit; a positive limit keeps the most recent
	// messages while preserving oldest-first order.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
}

// BlobStorage stores raw uploaded file bytes addressed by a storage path
// computed at upload time.
type BlobStorage interface {
	// Save writes the blob and returns its storage path.
	Save(ctx context.Context, userID, fileName string, data []byte) (string, error)
	Load(ctx context.Context, storagePath string) ([]byte, error)
	Delete(ctx context.Context, storagePath string) error
}

// StorageManager bundles the stores behind one lifecycle.
type StorageManager interface {
	DocumentStorage() DocumentStorage
	ChunkStorage() ChunkStorage
	ConversationStorage() ConversationStorage
	BlobStorage() BlobStorage
	// RunValueLogGC triggers one value-log garbage collection cycle.
	RunValueLogGC() error
	Close() error
}
