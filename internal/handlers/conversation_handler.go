// -----------------------------------------------------------------------
// Conversation Handler - Thread lifecycle and history
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
)

// ConversationHandler serves the conversation management API
type ConversationHandler struct {
	chat   interfaces.ChatService
	logger arbor.ILogger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(chat interfaces.ChatService, logger arbor.ILogger) *ConversationHandler {
	return &ConversationHandler{
		chat:   chat,
		logger: logger,
	}
}

// CollectionHandler dispatches /api/conversations: POST creates, GET lists.
func (h *ConversationHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createHandler(w, r)
	case http.MethodGet:
		h.listHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler dispatches /api/conversations/{id}: GET history, DELETE.
func (h *ConversationHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/conversations/"), "/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Unknown conversation route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.historyHandler(w, r, id)
	case http.MethodDelete:
		h.deleteHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConversationHandler) createHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil {
		// An empty body is fine; the title defaults server-side
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	conv, err := h.chat.CreateConversation(r.Context(), userID, req.Title)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) listHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	convs, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": convs,
		"count":         len(convs),
	})
}

func (h *ConversationHandler) historyHandler(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	conv, msgs, err := h.chat.History(r.Context(), userID, id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     msgs,
	})
}

func (h *ConversationHandler) deleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.chat.DeleteConversation(r.Context(), userID, id); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Conversation deleted")
}
