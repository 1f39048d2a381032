package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
)

// APIHandler serves system endpoints: health and version
type APIHandler struct {
	embedder  interfaces.EmbeddingService
	generator interfaces.GenerationService
	startedAt time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(embedder interfaces.EmbeddingService, generator interfaces.GenerationService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		embedder:  embedder,
		generator: generator,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns build version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// HealthHandler reports service liveness plus provider reachability.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	embeddings := "ok"
	if !h.embedder.IsAvailable(r.Context()) {
		embeddings = "unavailable"
	}

	generation := "ok"
	if err := h.generator.HealthCheck(r.Context()); err != nil {
		generation = "unavailable"
	}

	status := "healthy"
	code := http.StatusOK
	if embeddings != "ok" || generation != "ok" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, map[string]interface{}{
		"status":     status,
		"embeddings": embeddings,
		"generation": generation,
		"uptime":     time.Since(h.startedAt).String(),
	})
}
