package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Documents
	mux.HandleFunc("/api/documents", s.app.DocumentHandler.CollectionHandler) // GET (list), POST (upload)
	mux.HandleFunc("/api/documents/", s.app.DocumentHandler.ItemHandler)      // GET/DELETE /{id}, POST /{id}/reprocess

	// API routes - Conversations
	mux.HandleFunc("/api/conversations", s.app.ConversationHandler.CollectionHandler) // GET (list), POST (create)
	mux.HandleFunc("/api/conversations/", s.app.ConversationHandler.ItemHandler)      // GET/DELETE /{id}

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.MessageHandler)       // POST - buffered answer
	mux.HandleFunc("/api/chat/stream", s.app.ChatHandler.StreamHandler) // POST - SSE answer

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	return mux
}
