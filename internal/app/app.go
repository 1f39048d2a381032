package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/handlers"
	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/services/chat"
	"github.com/ternarybob/docquery/internal/services/chunker"
	"github.com/ternarybob/docquery/internal/services/embeddings"
	"github.com/ternarybob/docquery/internal/services/ingest"
	"github.com/ternarybob/docquery/internal/services/llm"
	"github.com/ternarybob/docquery/internal/services/parser"
	"github.com/ternarybob/docquery/internal/services/rag"
	"github.com/ternarybob/docquery/internal/services/retrieval"
	"github.com/ternarybob/docquery/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	ParserService    interfaces.Parser
	ChunkerService   interfaces.Chunker
	GeminiService    *llm.GeminiService
	Generator        interfaces.GenerationService
	EmbeddingService interfaces.EmbeddingService
	Retriever        interfaces.Retriever
	AnswerService    interfaces.AnswerService
	IngestService    interfaces.IngestService
	ChatService      interfaces.ChatService

	// HTTP handlers
	APIHandler          *handlers.APIHandler
	DocumentHandler     *handlers.DocumentHandler
	ConversationHandler *handlers.ConversationHandler
	ChatHandler         *handlers.ChatHandler

	gc *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.startValueLogGC(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to start value-log GC: %w", err)
	}

	logger.Info().
		Str("provider", string(cfg.LLM.Provider)).
		Int("chunk_size", cfg.Ingest.ChunkSize).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the ingestion and answer pipelines
func (a *App) initServices() error {
	a.ParserService = parser.NewService(a.Logger)

	chunkerService, err := chunker.NewService(a.Config.Ingest.ChunkSize, a.Config.Ingest.ChunkOverlap, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create chunker: %w", err)
	}
	a.ChunkerService = chunkerService

	// Gemini always backs embeddings, regardless of the generation provider
	geminiService, err := llm.NewGeminiService(&a.Config.Gemini, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create Gemini service: %w", err)
	}
	a.GeminiService = geminiService

	embeddingService, err := embeddings.NewService(geminiService, a.Config.Ingest.EmbedBatchSize, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	a.EmbeddingService = embeddingService

	if a.Config.LLM.Provider == common.LLMProviderGemini {
		a.Generator = geminiService
	} else {
		generator, err := llm.NewGenerationService(a.Config, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create generation service: %w", err)
		}
		a.Generator = generator
	}

	a.Retriever = retrieval.NewService(a.EmbeddingService, a.StorageManager.ChunkStorage(), a.Logger)
	a.AnswerService = rag.NewService(a.Retriever, a.Generator, a.Config.Retrieval.TopK, a.Config.Retrieval.Threshold, a.Logger)
	a.IngestService = ingest.NewService(
		a.StorageManager,
		a.ParserService,
		a.ChunkerService,
		a.EmbeddingService,
		a.Config.Ingest.MaxUploadBytes,
		a.Config.Ingest.Workers,
		a.Logger,
	)
	a.ChatService = chat.NewService(a.StorageManager.ConversationStorage(), a.AnswerService, a.Config.Retrieval.HistoryLimit, a.Logger)

	return nil
}

// initHandlers wires the HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.EmbeddingService, a.Generator, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.IngestService, a.StorageManager.DocumentStorage(), a.Config.Ingest.MaxUploadBytes, a.Logger)
	a.ConversationHandler = handlers.NewConversationHandler(a.ChatService, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
}

// startValueLogGC schedules periodic Badger value-log garbage collection
func (a *App) startValueLogGC() error {
	schedule := a.Config.Storage.Badger.GCSchedule
	if schedule == "" {
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		if err := a.StorageManager.RunValueLogGC(); err != nil {
			// Badger reports an error when no log file was rewritten
			a.Logger.Debug().Err(err).Msg("Value-log GC cycle finished without rewrite")
		} else {
			a.Logger.Debug().Msg("Value-log GC cycle completed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid GC schedule '%s': %w", schedule, err)
	}

	c.Start()
	a.gc = c

	a.Logger.Debug().Str("schedule", schedule).Msg("Value-log GC scheduled")
	return nil
}

// Close shuts down services and storage
func (a *App) Close(ctx context.Context) error {
	if a.gc != nil {
		stopCtx := a.gc.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}

	if a.Generator != nil {
		if err := a.Generator.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}
	if a.GeminiService != nil && interfaces.GenerationService(a.GeminiService) != a.Generator {
		if err := a.GeminiService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close Gemini service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application shut down")
	return nil
}
