// -----------------------------------------------------------------------
// Document Handler - Upload, listing, deletion and reprocessing
// -----------------------------------------------------------------------

package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
)

// DocumentHandler serves the document management API
type DocumentHandler struct {
	ingest         interfaces.IngestService
	documents      interfaces.DocumentStorage
	maxUploadBytes int64
	logger         arbor.ILogger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(ingest interfaces.IngestService, documents interfaces.DocumentStorage, maxUploadBytes int64, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		ingest:         ingest,
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// CollectionHandler dispatches /api/documents: POST uploads, GET lists.
func (h *DocumentHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.uploadHandler(w, r)
	case http.MethodGet:
		h.listHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler dispatches /api/documents/{id} and /api/documents/{id}/reprocess.
func (h *DocumentHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			h.getHandler(w, r, parts[0])
		case http.MethodDelete:
			h.deleteHandler(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "reprocess":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.reprocessHandler(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Unknown document route")
	}
}

// uploadHandler accepts a multipart form with a "file" part, runs the
// synchronous part of ingestion and acknowledges with the document row.
func (h *DocumentHandler) uploadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large or malformed multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing 'file' form field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	mimeType := header.Header.Get("Content-Type")

	doc, err := h.ingest.Upload(r.Context(), userID, data, mimeType, header.Filename)
	if err != nil {
		h.logger.Warn().Err(err).Str("file_name", header.Filename).Msg("Upload rejected")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) listHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.ListDocuments(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (h *DocumentHandler) getHandler(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.GetDocument(r.Context(), userID, id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) deleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.ingest.Delete(r.Context(), userID, id); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Document deleted")
}

func (h *DocumentHandler) reprocessHandler(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.ingest.Reprocess(r.Context(), userID, id); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Reprocessing started",
	})
}
