package interfaces

import (
	"context"

	"github.com/ternarybob/docquery/internal/models"
)

// ChatResult is a completed exchange: the assistant's answer plus sources.
type ChatResult struct {
	Message string               `json:"message"`
	Sources []models.SourceChunk `json:"sources"`
}

// ChatService orchestrates conversations: ownership checks, history-aware
// answer generation and message persistence, buffered or streaming.
type ChatService interface {
	CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	// History returns the conversation and all its messages oldest first.
	History(ctx context.Context, userID, conversationID string) (*models.Conversation, []*models.Message, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// SendMessage persists the user turn, generates a grounded answer and
	// persists the assistant turn. Returns models.ErrNotFound when the
	// conversation is missing or not owned by userID.
	SendMessage(ctx context.Context, userID, conversationID, text string) (*ChatResult, error)

	// SendMessageStream is SendMessage with incremental fragments. The
	// assistant turn is persisted only if generation completes; the user
	// turn persists regardless.
	SendMessageStream(ctx context.Context, userID, conversationID, text string, onToken func(string) error) (*ChatResult, error)
}
