// -----------------------------------------------------------------------
// RAG Service - Retrieval-grounded answer generation
// Retrieves the owner's most similar chunks, renders them as numbered
// excerpts and asks the generation provider for a cited answer
// -----------------------------------------------------------------------

package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// Service implements the AnswerService interface.
type Service struct {
	retriever interfaces.Retriever
	generator interfaces.GenerationService
	topK      int
	threshold float32
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.AnswerService = (*Service)(nil)

// NewService creates an answer service
func NewService(retriever interfaces.Retriever, generator interfaces.GenerationService, topK int, threshold float32, logger arbor.ILogger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Answer runs retrieval and buffered generation. With zero retrieved
// sources the provider is never invoked and a fixed answer is returned.
func (s *Service) Answer(ctx context.Context, query, userID string, history []models.Message) (*interfaces.AnswerResult, error) {
	return s.answer(ctx, query, userID, history, nil)
}

// AnswerStream behaves like Answer but emits fragments through onToken in
// generation order. The returned Answer equals their concatenation.
func (s *Service) AnswerStream(ctx context.Context, query, userID string, history []models.Message, onToken func(string) error) (*interfaces.AnswerResult, error) {
	if onToken == nil {
		return nil, fmt.Errorf("token callback is required for streaming")
	}
	return s.answer(ctx, query, userID, history, onToken)
}

func (s *Service) answer(ctx context.Context, query, userID string, history []models.Message, onToken func(string) error) (*interfaces.AnswerResult, error) {
	startTime := time.Now()

	sources, err := s.retriever.Search(ctx, query, userID, s.topK, s.threshold)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		s.logger.Debug().
			Str("user_id", userID).
			Msg("No sources above threshold, returning fixed answer")
		if onToken != nil {
			if err := onToken(NoContextAnswer); err != nil {
				return nil, fmt.Errorf("token callback failed: %w", err)
			}
		}
		return &interfaces.AnswerResult{
			Answer:  NoContextAnswer,
			Sources: []models.SourceChunk{},
		}, nil
	}

	messages := s.buildMessages(query, sources, history)

	var answer string
	if onToken != nil {
		answer, err = s.generator.ChatStream(ctx, messages, onToken)
	} else {
		answer, err = s.generator.Chat(ctx, messages)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Answer generation failed")
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationProvider, err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("sources", len(sources)).
		Int("answer_length", len(answer)).
		Dur("duration", time.Since(startTime)).
		Msg("Generated grounded answer")

	return &interfaces.AnswerResult{
		Answer:  answer,
		Sources: sources,
	}, nil
}

// buildMessages assembles the provider conversation: grounding system
// prompt, prior turns in order, then the context-bearing user prompt.
func (s *Service) buildMessages(query string, sources []models.SourceChunk, history []models.Message) []interfaces.Message {
	messages := make([]interfaces.Message, 0, len(history)+2)
	messages = append(messages, interfaces.Message{
		Role:    "system",
		Content: groundedSystemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, interfaces.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, interfaces.Message{
		Role:    "user",
		Content: buildUserPrompt(buildContextBlock(sources), query),
	})
	return messages
}
