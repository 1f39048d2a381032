// -----------------------------------------------------------------------
// Chat Handler - Grounded question answering, buffered and streaming
// The streaming endpoint speaks server-sent events: chunk events while
// the answer generates, one sources event, then a done marker
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

// ChatHandler serves the question-answering API
type ChatHandler struct {
	chat   interfaces.ChatService
	logger arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

func (h *ChatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	if req.ConversationID == "" {
		WriteError(w, http.StatusBadRequest, "conversation_id is required")
		return nil, false
	}
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "message is required")
		return nil, false
	}
	return &req, true
}

// MessageHandler answers a question in one buffered JSON response.
func (h *ChatHandler) MessageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.chat.SendMessage(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		h.logger.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("Chat message failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// StreamHandler answers a question over server-sent events. Fragments
// already flushed before a failure stand; the stream then closes with an
// error event instead of the done marker.
func (h *ChatHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.chat.SendMessageStream(r.Context(), userID, req.ConversationID, req.Message, func(token string) error {
		return writeEvent(map[string]string{
			"type":    "chunk",
			"content": token,
		})
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("Chat stream failed")
		writeEvent(map[string]string{
			"type":  "error",
			"error": err.Error(),
		})
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []models.SourceChunk{}
	}
	if err := writeEvent(map[string]interface{}{
		"type":    "sources",
		"sources": sources,
	}); err != nil {
		return
	}
	writeEvent(map[string]string{"type": "done"})
}
