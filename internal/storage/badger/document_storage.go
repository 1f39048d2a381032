package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.UserID == "" {
		return fmt.Errorf("document user ID is required")
	}

	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument enforces ownership: a document belonging to another user is
// indistinguishable from a missing one.
func (s *DocumentStorage) GetDocument(ctx context.Context, userID, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return &doc, nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, userID string) ([]*models.Document, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	// Newest uploads first
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) UpdateIngestState(ctx context.Context, id, state, ingestErr string, chunkCount int) error {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("failed to get document for state update: %w", err)
	}

	doc.IngestState = state
	doc.IngestError = ingestErr
	if chunkCount >= 0 {
		doc.ChunkCount = chunkCount
	}

	if err := s.db.Store().Update(id, &doc); err != nil {
		return fmt.Errorf("failed to update ingest state: %w", err)
	}

	s.logger.Debug().
		Str("document_id", id).
		Str("state", state).
		Int("chunk_count", doc.ChunkCount).
		Msg("Updated document ingest state")

	return nil
}

func (s *DocumentStorage) DeleteDocument(ctx context.Context, userID, id string) error {
	// Ownership check before delete
	if _, err := s.GetDocument(ctx, userID, id); err != nil {
		return err
	}

	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
