package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// fakeChatService streams canned fragments or fails mid-stream.
type fakeChatService struct {
	fragments []string
	sources   []models.SourceChunk
	err       error
	failAfter int // emit this many fragments before erroring, 0 = all
}

func (s *fakeChatService) CreateConversation(ctx context.Context, userID, title string) (*models.Conversation, error) {
	return &models.Conversation{ID: "conv_1", UserID: userID, Title: title}, nil
}

func (s *fakeChatService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return nil, nil
}

func (s *fakeChatService) History(ctx context.Context, userID, conversationID string) (*models.Conversation, []*models.Message, error) {
	return nil, nil, models.ErrNotFound
}

func (s *fakeChatService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return nil
}

func (s *fakeChatService) SendMessage(ctx context.Context, userID, conversationID, text string) (*interfaces.ChatResult, error) {
	if s.err != nil && s.failAfter == 0 {
		return nil, s.err
	}
	return &interfaces.ChatResult{Message: strings.Join(s.fragments, ""), Sources: s.sources}, nil
}

func (s *fakeChatService) SendMessageStream(ctx context.Context, userID, conversationID, text string, onToken func(string) error) (*interfaces.ChatResult, error) {
	for i, fragment := range s.fragments {
		if s.err != nil && s.failAfter > 0 && i == s.failAfter {
			return nil, s.err
		}
		if err := onToken(fragment); err != nil {
			return nil, err
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &interfaces.ChatResult{Message: strings.Join(s.fragments, ""), Sources: s.sources}, nil
}

func chatRequestBody(t *testing.T) *strings.Reader {
	t.Helper()
	return strings.NewReader(`{"conversation_id":"conv_1","message":"What about alpha?"}`)
}

func authedRequest(method, target string, body *strings.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

// parseSSE splits an event stream body into decoded JSON payloads.
func parseSSE(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
		events = append(events, payload)
	}
	return events
}

func TestMessageHandler_Buffered(t *testing.T) {
	svc := &fakeChatService{
		fragments: []string{"Answer ", "[1]."},
		sources:   []models.SourceChunk{{DocumentID: "doc_1", DocumentTitle: "Handbook"}},
	}
	handler := NewChatHandler(svc, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.MessageHandler(rec, authedRequest(http.MethodPost, "/api/chat", chatRequestBody(t)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var result interfaces.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Answer [1].", result.Message)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Handbook", result.Sources[0].DocumentTitle)
}

func TestMessageHandler_RequiresIdentity(t *testing.T) {
	handler := NewChatHandler(&fakeChatService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t))
	handler.MessageHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMessageHandler_Validation(t *testing.T) {
	handler := NewChatHandler(&fakeChatService{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.MessageHandler(rec, authedRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.MessageHandler(rec, authedRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"conversation_id":"c"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.MessageHandler(rec, authedRequest(http.MethodPost, "/api/chat", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.MessageHandler(rec, authedRequest(http.MethodGet, "/api/chat", chatRequestBody(t)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMessageHandler_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing conversation", fmt.Errorf("%w: conversation x", models.ErrNotFound), http.StatusNotFound},
		{"retrieval outage", fmt.Errorf("%w: index offline", models.ErrRetrievalUnavailable), http.StatusServiceUnavailable},
		{"embedding failure", fmt.Errorf("%w: quota", models.ErrEmbeddingProvider), http.StatusBadGateway},
		{"generation failure", fmt.Errorf("%w: quota", models.ErrGenerationProvider), http.StatusBadGateway},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewChatHandler(&fakeChatService{err: tt.err}, arbor.NewLogger())

			rec := httptest.NewRecorder()
			handler.MessageHandler(rec, authedRequest(http.MethodPost, "/api/chat", chatRequestBody(t)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStreamHandler_EventSequence(t *testing.T) {
	svc := &fakeChatService{
		fragments: []string{"Alpha ", "is ", "covered."},
		sources:   []models.SourceChunk{{DocumentID: "doc_1", DocumentTitle: "Handbook"}},
	}
	handler := NewChatHandler(svc, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StreamHandler(rec, authedRequest(http.MethodPost, "/api/chat/stream", chatRequestBody(t)))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 5)

	var streamed strings.Builder
	for _, event := range events[:3] {
		assert.Equal(t, "chunk", event["type"])
		streamed.WriteString(event["content"].(string))
	}
	assert.Equal(t, "Alpha is covered.", streamed.String())

	assert.Equal(t, "sources", events[3]["type"])
	sources := events[3]["sources"].([]interface{})
	require.Len(t, sources, 1)

	assert.Equal(t, "done", events[4]["type"])
}

func TestStreamHandler_MidStreamFailure(t *testing.T) {
	svc := &fakeChatService{
		fragments: []string{"Partial ", "answer ", "never finishes"},
		err:       fmt.Errorf("%w: connection reset", models.ErrGenerationProvider),
		failAfter: 2,
	}
	handler := NewChatHandler(svc, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StreamHandler(rec, authedRequest(http.MethodPost, "/api/chat/stream", chatRequestBody(t)))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)

	// Flushed fragments stand; the stream closes with an error marker
	assert.Equal(t, "chunk", events[0]["type"])
	assert.Equal(t, "chunk", events[1]["type"])
	assert.Equal(t, "error", events[2]["type"])
	assert.Contains(t, events[2]["error"], "connection reset")

	for _, event := range events {
		assert.NotEqual(t, "done", event["type"])
	}
}

func TestStreamHandler_EmptySourcesSerializedAsArray(t *testing.T) {
	svc := &fakeChatService{fragments: []string{"No relevant information."}}
	handler := NewChatHandler(svc, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StreamHandler(rec, authedRequest(http.MethodPost, "/api/chat/stream", chatRequestBody(t)))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)
	sources, ok := events[1]["sources"].([]interface{})
	require.True(t, ok, "sources must be a JSON array, not null")
	assert.Empty(t, sources)
}
