// -----------------------------------------------------------------------
// Chat Service - Conversation orchestration
// Owns conversation lifecycle and message persistence around the
// grounded answer pipeline
// -----------------------------------------------------------------------

package chat

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// Service implements the ChatService interface.
type Service struct {
	conversations interfaces.ConversationStorage
	answers       interfaces.AnswerService
	historyLimit  int
	seq           atomic.Uint64
	logger        arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ChatService = (*Service)(nil)

// NewService creates a chat service. historyLimit caps how many prior
// messages are passed to answer generation; 0 means all.
func NewService(conversations interfaces.ConversationStorage, answers interfaces.AnswerService, historyLimit int, logger arbor.ILogger) *Service {
	return &Service{
		conversations: conversations,
		answers:       answers,
		historyLimit:  historyLimit,
		logger:        logger,
	}
}

// CreateConversation starts a new thread for the user.
func (s *Service) CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if title == "" {
		title = "New conversation"
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        common.NewConversationID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("conversation_id", conv.ID).
		Str("user_id", userID).
		Msg("Created conversation")

	return conv, nil
}

// ListConversations returns the user's conversations, most recently
// active first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return s.conversations.ListConversations(ctx, userID)
}

// History returns the conversation and all its messages oldest first.
func (s *Service) History(ctx context.Context, userID, conversationID string) (*models.Conversation, []*models.Message, error) {
	conv, err := s.conversations.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.conversations.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// DeleteConversation removes the conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return s.conversations.DeleteConversation(ctx, userID, conversationID)
}

// SendMessage persists the user turn, generates a grounded answer and
// persists the assistant turn.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID, text string) (*interfaces.ChatResult, error) {
	return s.send(ctx, userID, conversationID, text, nil)
}

// SendMessageStream is SendMessage with incremental fragments. The user
// turn persists even if generation fails mid-stream; the assistant turn is
// written only when generation completes.
func (s *Service) SendMessageStream(ctx context.Context, userID, conversationID, text string, onToken func(string) error) (*interfaces.ChatResult, error) {
	if onToken == nil {
		return nil, fmt.Errorf("token callback is required for streaming")
	}
	return s.send(ctx, userID, conversationID, text, onToken)
}

func (s *Service) send(ctx context.Context, userID, conversationID, text string, onToken func(string) error) (*interfaces.ChatResult, error) {
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}

	if _, err := s.conversations.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	// History is captured before the new user turn so generation sees only
	// prior exchanges.
	history, err := s.listHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ID:             common.NewMessageID(),
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        text,
		Seq:            s.seq.Add(1),
		CreatedAt:      time.Now(),
	}
	if err := s.conversations.SaveMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	var result *interfaces.AnswerResult
	if onToken != nil {
		result, err = s.answers.AnswerStream(ctx, text, userID, history, onToken)
	} else {
		result, err = s.answers.Answer(ctx, text, userID, history)
	}
	if err != nil {
		// The user turn stays; only completed generations produce an
		// assistant turn.
		return nil, err
	}

	assistantMsg := &models.Message{
		ID:             common.NewMessageID(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        result.Answer,
		Sources:        result.Sources,
		Seq:            s.seq.Add(1),
		CreatedAt:      time.Now(),
	}
	if err := s.conversations.SaveMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.conversations.TouchConversation(ctx, conversationID); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to touch conversation")
	}

	s.logger.Debug().
		Str("conversation_id", conversationID).
		Int("sources", len(result.Sources)).
		Msg("Exchange completed")

	return &interfaces.ChatResult{
		Message: result.Answer,
		Sources: result.Sources,
	}, nil
}

func (s *Service) listHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs, err := s.conversations.ListMessages(ctx, conversationID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	history := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		history = append(history, *msg)
	}
	return history, nil
}
