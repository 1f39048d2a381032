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

// ConversationStorage implements the ConversationStorage interface for
// Badger, covering both conversation rows and their messages.
type ConversationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewConversationStorage creates a new ConversationStorage instance
func NewConversationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConversationStorage {
	return &ConversationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ConversationStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		return fmt.Errorf("conversation ID is required")
	}
	if conv.UserID == "" {
		return fmt.Errorf("conversation user ID is required")
	}

	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}

	if err := s.db.Store().Upsert(conv.ID, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// GetConversation enforces ownership: another user's conversation is
// indistinguishable from a missing one.
func (s *ConversationStorage) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Store().Get(id, &conv); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: conversation %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("%w: conversation %s", models.ErrNotFound, id)
	}
	return &conv, nil
}

func (s *ConversationStorage) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.Store().Find(&convs, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	// Most recently active first
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	result := make([]*models.Conversation, len(convs))
	for i := range convs {
		result[i] = &convs[i]
	}
	return result, nil
}

func (s *ConversationStorage) TouchConversation(ctx context.Context, id string) error {
	var conv models.Conversation
	if err := s.db.Store().Get(id, &conv); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: conversation %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	conv.UpdatedAt = time.Now()
	if err := s.db.Store().Update(id, &conv); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes the conversation and all its messages.
func (s *ConversationStorage) DeleteConversation(ctx context.Context, userID, id string) error {
	if _, err := s.GetConversation(ctx, userID, id); err != nil {
		return err
	}

	if err := s.db.Store().DeleteMatching(&models.Message{}, badgerhold.Where("ConversationID").Eq(id).Index("ConversationID")); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}

	if err := s.db.Store().Delete(id, &models.Conversation{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (s *ConversationStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message ID is required")
	}
	if msg.ConversationID == "" {
		return fmt.Errorf("message conversation ID is required")
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(msg.ID, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// ListMessages returns the conversation's messages oldest first. A positive
// limit keeps only the most recent messages while preserving order.
func (s *ConversationStorage) ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	var msgs []models.Message
	if err := s.db.Store().Find(&msgs, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID")); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].Seq < msgs[j].Seq
	})

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	result := make([]*models.Message, len(msgs))
	for i := range msgs {
		result[i] = &msgs[i]
	}
	return result, nil
}
