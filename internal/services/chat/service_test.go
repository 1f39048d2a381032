package chat

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// memConversations is an in-memory ConversationStorage.
type memConversations struct {
	convs    map[string]*models.Conversation
	messages []*models.Message
	touched  int
}

func newMemConversations() *memConversations {
	return &memConversations{convs: make(map[string]*models.Conversation)}
}

func (m *memConversations) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	copied := *conv
	m.convs[conv.ID] = &copied
	return nil
}

func (m *memConversations) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	conv, ok := m.convs[id]
	if !ok || conv.UserID != userID {
		return nil, models.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *memConversations) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, conv := range m.convs {
		if conv.UserID == userID {
			copied := *conv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memConversations) TouchConversation(ctx context.Context, id string) error {
	m.touched++
	return nil
}

func (m *memConversations) DeleteConversation(ctx context.Context, userID, id string) error {
	conv, ok := m.convs[id]
	if !ok || conv.UserID != userID {
		return models.ErrNotFound
	}
	delete(m.convs, id)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ConversationID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *memConversations) SaveMessage(ctx context.Context, msg *models.Message) error {
	copied := *msg
	m.messages = append(m.messages, &copied)
	return nil
}

func (m *memConversations) ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// fakeAnswers records the history it was handed and returns a canned
// result.
type fakeAnswers struct {
	result      *interfaces.AnswerResult
	err         error
	lastHistory []models.Message
}

func (a *fakeAnswers) Answer(ctx context.Context, query, userID string, history []models.Message) (*interfaces.AnswerResult, error) {
	a.lastHistory = history
	return a.result, a.err
}

func (a *fakeAnswers) AnswerStream(ctx context.Context, query, userID string, history []models.Message, onToken func(string) error) (*interfaces.AnswerResult, error) {
	a.lastHistory = history
	if a.err != nil {
		return nil, a.err
	}
	if err := onToken(a.result.Answer); err != nil {
		return nil, err
	}
	return a.result, nil
}

func okAnswer() *interfaces.AnswerResult {
	return &interfaces.AnswerResult{
		Answer:  "Grounded answer [1].",
		Sources: []models.SourceChunk{{DocumentID: "doc_1", DocumentTitle: "Handbook", Content: "fact"}},
	}
}

func TestCreateConversation(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "New conversation", conv.Title)
	assert.Equal(t, "user-1", conv.UserID)

	named, err := svc.CreateConversation(context.Background(), "user-1", "Quarterly report")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", named.Title)

	_, err = svc.CreateConversation(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestSendMessage_PersistsBothTurns(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	result, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "What about alpha?")
	require.NoError(t, err)

	assert.Equal(t, "Grounded answer [1].", result.Message)
	require.Len(t, result.Sources, 1)

	msgs, err := store.ListMessages(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "What about alpha?", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Sources, 1, "assistant turn carries its citations")
	assert.Equal(t, 1, store.touched)
}

func TestSendMessage_HistoryExcludesCurrentTurn(t *testing.T) {
	store := newMemConversations()
	answers := &fakeAnswers{result: okAnswer()}
	svc := NewService(store, answers, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "first question")
	require.NoError(t, err)
	assert.Empty(t, answers.lastHistory, "first exchange sees no history")

	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "second question")
	require.NoError(t, err)

	// The second exchange sees the first pair but not its own user turn
	require.Len(t, answers.lastHistory, 2)
	assert.Equal(t, "first question", answers.lastHistory[0].Content)
	assert.Equal(t, models.RoleAssistant, answers.lastHistory[1].Role)
}

func TestSendMessage_HistoryLimitKeepsMostRecent(t *testing.T) {
	store := newMemConversations()
	answers := &fakeAnswers{result: okAnswer()}
	svc := NewService(store, answers, 2, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// Six stored messages, but only the two most recent reach generation
	require.Len(t, answers.lastHistory, 2)
	assert.Equal(t, "question 1", answers.lastHistory[0].Content)
	assert.Equal(t, models.RoleAssistant, answers.lastHistory[1].Role)
}

func TestSendMessage_GenerationFailureKeepsUserTurn(t *testing.T) {
	store := newMemConversations()
	answers := &fakeAnswers{err: fmt.Errorf("%w: quota", models.ErrGenerationProvider)}
	svc := NewService(store, answers, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "doomed question")
	assert.ErrorIs(t, err, models.ErrGenerationProvider)

	msgs, err := store.ListMessages(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "user turn persists, assistant turn does not")
	assert.Equal(t, models.RoleUser, msgs[0].Role)
}

func TestSendMessage_OwnershipEnforced(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), "intruder", conv.ID, "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.SendMessage(context.Background(), "user-1", "conv_missing", "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendMessage_RejectsEmptyText(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "")
	assert.Error(t, err)
}

func TestSendMessageStream_EmitsTokens(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)

	var tokens []string
	result, err := svc.SendMessageStream(context.Background(), "user-1", conv.ID, "q", func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Grounded answer [1]."}, tokens)
	assert.Equal(t, "Grounded answer [1].", result.Message)

	_, err = svc.SendMessageStream(context.Background(), "user-1", conv.ID, "q", nil)
	assert.Error(t, err, "streaming requires a callback")
}

func TestHistory(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "q1")
	require.NoError(t, err)

	got, msgs, err := svc.History(context.Background(), "user-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Len(t, msgs, 2)

	_, _, err = svc.History(context.Background(), "intruder", conv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteConversation(t *testing.T) {
	store := newMemConversations()
	svc := NewService(store, &fakeAnswers{result: okAnswer()}, 20, arbor.NewLogger())

	conv, err := svc.CreateConversation(context.Background(), "user-1", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "q1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteConversation(context.Background(), "intruder", conv.ID), models.ErrNotFound)

	require.NoError(t, svc.DeleteConversation(context.Background(), "user-1", conv.ID))
	assert.Empty(t, store.messages)
	_, _, err = svc.History(context.Background(), "user-1", conv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
