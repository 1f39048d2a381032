// -----------------------------------------------------------------------
// Blob Store - Raw uploaded files on the local filesystem
// Files are laid out per user under the configured uploads directory
// -----------------------------------------------------------------------

package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// BlobStore implements the BlobStorage interface on the local filesystem.
type BlobStore struct {
	baseDir string
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.BlobStorage = (*BlobStore)(nil)

// NewBlobStore creates a blob store rooted at baseDir, creating the
// directory if needed.
func NewBlobStore(baseDir string, logger arbor.ILogger) (*BlobStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &BlobStore{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Save writes the blob under a per-user directory with a unique prefix and
// returns the storage path relative to the base directory.
func (s *BlobStore) Save(ctx context.Context, userID, fileName string, data []byte) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}

	relPath := filepath.Join(sanitizeSegment(userID), uuid.New().String()+"_"+sanitizeSegment(fileName))
	absPath := filepath.Join(s.baseDir, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create user upload directory: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug().
		Str("path", relPath).
		Int("bytes", len(data)).
		Msg("Stored uploaded file")

	return relPath, nil
}

func (s *BlobStore) Load(ctx context.Context, storagePath string) ([]byte, error) {
	absPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *BlobStore) Delete(ctx context.Context, storagePath string) error {
	absPath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// resolve joins the storage path to the base directory, rejecting paths
// that escape it.
func (s *BlobStore) resolve(storagePath string) (string, error) {
	if storagePath == "" {
		return "", fmt.Errorf("storage path is required")
	}
	cleaned := filepath.Clean(storagePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage path: %s", storagePath)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// sanitizeSegment keeps a path segment safe for the filesystem by
// replacing separators and parent references.
func sanitizeSegment(segment string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	cleaned := replacer.Replace(segment)
	if cleaned == "" {
		cleaned = "unnamed"
	}
	return cleaned
}
