// -----------------------------------------------------------------------
// Ingest Service - Upload pipeline and document lifecycle
// Parse and persist synchronously, then chunk, embed and store rows in
// the background while the document's ingest state tracks progress
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// Service implements the IngestService interface.
type Service struct {
	storage        interfaces.StorageManager
	parser         interfaces.Parser
	chunker        interfaces.Chunker
	embedder       interfaces.EmbeddingService
	maxUploadBytes int64
	workers        int
	logger         arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.IngestService = (*Service)(nil)

// NewService creates an ingest service. workers caps concurrent chunk row
// writes per document.
func NewService(storage interfaces.StorageManager, parser interfaces.Parser, chunker interfaces.Chunker, embedder interfaces.EmbeddingService, maxUploadBytes int64, workers int, logger arbor.ILogger) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		storage:        storage,
		parser:         parser,
		chunker:        chunker,
		embedder:       embedder,
		maxUploadBytes: maxUploadBytes,
		workers:        workers,
		logger:         logger,
	}
}

// Upload parses the file, stores the blob and document row, then hands the
// chunk pipeline to a background goroutine. The returned document reports
// 0 chunks until ingestion completes.
func (s *Service) Upload(ctx context.Context, userID string, data []byte, mimeType, fileName string) (*models.Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("uploaded file exceeds size limit of %d bytes", s.maxUploadBytes)
	}

	parsed, err := s.parser.Parse(data, mimeType, fileName)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:          common.NewDocumentID(),
		UserID:      userID,
		Title:       titleFromFileName(fileName),
		FileName:    fileName,
		FileSize:    int64(len(data)),
		FileType:    mimeType,
		Content:     parsed.Text,
		IngestState: models.IngestStateUploaded,
		UploadedAt:  time.Now(),
	}

	storagePath, err := s.storage.BlobStorage().Save(ctx, userID, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	doc.StoragePath = storagePath

	if err := s.storage.DocumentStorage().SaveDocument(ctx, doc); err != nil {
		// The blob is orphaned without its document row, so roll it back
		if delErr := s.storage.BlobStorage().Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", storagePath).Msg("Failed to roll back orphaned blob")
		}
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, doc.ID, models.IngestStateParsed, "", -1); err != nil {
		s.logger.Warn().Err(err).Str("document_id", doc.ID).Msg("Failed to record parsed state")
	}
	doc.IngestState = models.IngestStateParsed

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("user_id", userID).
		Str("file_name", fileName).
		Int64("file_size", doc.FileSize).
		Msg("Document uploaded, starting background ingestion")

	common.SafeGo(s.logger, "processDocument", func() {
		s.process(doc.ID, doc.UserID, doc.Title, parsed)
	})

	return doc, nil
}

// process runs chunking, embedding and chunk persistence for one document.
// It uses a detached context because the upload request has already been
// acknowledged.
func (s *Service) process(docID, userID, title string, parsed *models.ParsedDocument) {
	ctx := context.Background()

	var chunks []models.TextChunk
	if parsed.Pages != nil {
		var err error
		chunks, err = s.chunker.ChunkPages(parsed.Pages)
		if err != nil {
			s.fail(ctx, docID, fmt.Errorf("chunking failed: %w", err))
			return
		}
	} else {
		chunks = s.chunker.ChunkText(parsed.Text)
	}

	if len(chunks) == 0 {
		// Nothing to index, but the document itself is fine
		s.logger.Warn().Str("document_id", docID).Msg("Document produced no chunks")
		if err := s.storage.DocumentStorage().UpdateIngestState(ctx, docID, models.IngestStatePersisted, "", 0); err != nil {
			s.logger.Error().Err(err).Str("document_id", docID).Msg("Failed to record persisted state")
		}
		return
	}

	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, docID, models.IngestStateChunked, "", -1); err != nil {
		s.logger.Warn().Err(err).Str("document_id", docID).Msg("Failed to record chunked state")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		s.fail(ctx, docID, fmt.Errorf("embedding failed: %w", err))
		return
	}

	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, docID, models.IngestStateEmbedded, "", -1); err != nil {
		s.logger.Warn().Err(err).Str("document_id", docID).Msg("Failed to record embedded state")
	}

	if err := s.persistChunks(ctx, docID, userID, title, chunks, vectors); err != nil {
		s.fail(ctx, docID, err)
		return
	}

	// The recorded ChunkCount must reflect what actually landed
	count, err := s.storage.ChunkStorage().CountByDocument(ctx, docID)
	if err != nil {
		s.fail(ctx, docID, fmt.Errorf("failed to count persisted chunks: %w", err))
		return
	}
	if count != len(chunks) {
		s.fail(ctx, docID, fmt.Errorf("persisted %d chunk rows, expected %d", count, len(chunks)))
		return
	}

	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, docID, models.IngestStatePersisted, "", count); err != nil {
		s.logger.Error().Err(err).Str("document_id", docID).Msg("Failed to record persisted state")
		return
	}

	s.logger.Info().
		Str("document_id", docID).
		Int("chunks", len(chunks)).
		Msg("Document ingestion completed")
}

// persistChunks fans chunk row writes out across the worker pool and waits
// for all of them before the caller bumps ChunkCount.
func (s *Service) persistChunks(ctx context.Context, docID, userID, title string, chunks []models.TextChunk, vectors [][]float32) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	now := time.Now()
	for i := range chunks {
		chunk := chunks[i]
		vector := vectors[i]
		g.Go(func() error {
			row := &models.DocumentChunk{
				ID:            common.NewChunkID(),
				DocumentID:    docID,
				UserID:        userID,
				DocumentTitle: title,
				Content:       chunk.Content,
				Embedding:     vector,
				ChunkIndex:    chunk.Index,
				PageNumber:    chunk.PageNumber,
				CreatedAt:     now,
			}
			return s.storage.ChunkStorage().SaveChunk(gctx, row)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to persist chunks: %w", err)
	}
	return nil
}

// fail removes any partial chunk rows and records the failure on the
// document. The document row and blob survive so the upload can be
// reprocessed.
func (s *Service) fail(ctx context.Context, docID string, cause error) {
	s.logger.Error().Err(cause).Str("document_id", docID).Msg("Document ingestion failed")

	if err := s.storage.ChunkStorage().DeleteByDocument(ctx, docID); err != nil {
		s.logger.Warn().Err(err).Str("document_id", docID).Msg("Failed to clean up partial chunks")
	}

	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, docID, models.IngestStateFailed, cause.Error(), 0); err != nil {
		s.logger.Error().Err(err).Str("document_id", docID).Msg("Failed to record failed state")
	}
}

// Reprocess re-runs chunking and embedding for an existing document,
// re-parsing the stored blob when available and falling back to the stored
// text otherwise.
func (s *Service) Reprocess(ctx context.Context, userID, documentID string) error {
	doc, err := s.storage.DocumentStorage().GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	parsed := &models.ParsedDocument{Text: doc.Content}
	if doc.StoragePath != "" {
		if data, loadErr := s.storage.BlobStorage().Load(ctx, doc.StoragePath); loadErr == nil {
			if reparsed, parseErr := s.parser.Parse(data, doc.FileType, doc.FileName); parseErr == nil {
				parsed = reparsed
			} else {
				s.logger.Warn().Err(parseErr).Str("document_id", documentID).Msg("Re-parse failed, using stored text")
			}
		} else {
			s.logger.Warn().Err(loadErr).Str("document_id", documentID).Msg("Blob load failed, using stored text")
		}
	}

	if parsed.Text == "" && parsed.Pages == nil {
		return fmt.Errorf("document %s has no stored text to reprocess", documentID)
	}

	// Drop the stale index before rebuilding it
	if err := s.storage.ChunkStorage().DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to clear existing chunks: %w", err)
	}
	if err := s.storage.DocumentStorage().UpdateIngestState(ctx, documentID, models.IngestStateParsed, "", 0); err != nil {
		return fmt.Errorf("failed to reset ingest state: %w", err)
	}

	s.logger.Info().Str("document_id", documentID).Msg("Reprocessing document")

	common.SafeGo(s.logger, "reprocessDocument", func() {
		s.process(documentID, doc.UserID, doc.Title, parsed)
	})

	return nil
}

// Delete removes the document row, its chunk rows and its stored blob.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	doc, err := s.storage.DocumentStorage().GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if err := s.storage.ChunkStorage().DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.storage.DocumentStorage().DeleteDocument(ctx, userID, documentID); err != nil {
		return err
	}
	if doc.StoragePath != "" {
		if err := s.storage.BlobStorage().Delete(ctx, doc.StoragePath); err != nil {
			s.logger.Warn().Err(err).Str("document_id", documentID).Msg("Failed to delete blob")
		}
	}

	s.logger.Info().Str("document_id", documentID).Msg("Document deleted")
	return nil
}

// titleFromFileName derives a display title by stripping the extension.
func titleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return base
	}
	return title
}
