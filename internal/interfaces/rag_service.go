package interfaces

import (
	"context"

	"github.com/ternarybob/docquery/internal/models"
)

// AnswerResult is the outcome of grounded answer generation: the final text
// and the ranked sources it was grounded on.
type AnswerResult struct {
	Answer  string               `json:"answer"`
	Sources []models.SourceChunk `json:"sources"`
}

// AnswerService generates answers grounded strictly in retrieved chunks.
type AnswerService interface {
	// Answer runs retrieval and buffered generation. With zero retrieved
	// sources it returns a fixed no-context answer without invoking the
	// generation capability.
	Answer(ctx context.Context, query, userID string, history []models.Message) (*AnswerResult, error)

	// AnswerStream behaves like Answer but emits fragments through onToken
	// in generation order; the returned Answer equals their concatenation.
	AnswerStream(ctx context.Context, query, userID string, history []models.Message, onToken func(string) error) (*AnswerResult, error)
}
