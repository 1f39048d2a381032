package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/storage/files"
)

// Manager implements the StorageManager interface, bundling the Badger
// stores and the filesystem blob store behind one lifecycle.
type Manager struct {
	db           *BadgerDB
	document     interfaces.DocumentStorage
	chunk        interfaces.ChunkStorage
	conversation interfaces.ConversationStorage
	blob         interfaces.BlobStorage
	logger       arbor.ILogger
}

// NewManager creates a new storage manager
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, &config.Badger)
	if err != nil {
		return nil, err
	}

	blob, err := files.NewBlobStore(config.Filesystem.Uploads, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := &Manager{
		db:           db,
		document:     NewDocumentStorage(db, logger),
		chunk:        NewChunkStorage(db, logger),
		conversation: NewConversationStorage(db, logger),
		blob:         blob,
		logger:       logger,
	}

	logger.Info().Msg("Storage manager initialized")

	return manager, nil
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ChunkStorage returns the Chunk storage interface
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// ConversationStorage returns the Conversation storage interface
func (m *Manager) ConversationStorage() interfaces.ConversationStorage {
	return m.conversation
}

// BlobStorage returns the Blob storage interface
func (m *Manager) BlobStorage() interfaces.BlobStorage {
	return m.blob
}

// RunValueLogGC triggers one value-log garbage collection cycle
func (m *Manager) RunValueLogGC() error {
	return m.db.RunValueLogGC()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
