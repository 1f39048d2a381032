// -----------------------------------------------------------------------
// Parser Service - Extract text content from uploaded documents
// Dispatches on MIME type with a file extension fallback
// -----------------------------------------------------------------------

package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/interfaces"
	"github.com/ternarybob/docquery/internal/models"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// Service implements the Parser interface for PDF, DOCX and plain text.
type Service struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Parser = (*Service)(nil)

// NewService creates a new parser service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Parse extracts text from the uploaded bytes. The MIME type drives
// dispatch; when it does not resolve to a supported format the file
// extension decides. Returns models.ErrUnsupportedFormat when neither
// resolves.
func (s *Service) Parse(data []byte, mimeType, fileName string) (*models.ParsedDocument, error) {
	switch resolveFormat(mimeType, fileName) {
	case "pdf":
		return s.parsePDF(data)
	case "docx":
		return s.parseDOCX(data)
	case "text":
		return s.parseText(data)
	default:
		s.logger.Warn().
			Str("mime_type", mimeType).
			Str("file_name", fileName).
			Msg("Rejected upload with unsupported format")
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, mimeType)
	}
}

func resolveFormat(mimeType, fileName string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case mimePDF:
		return "pdf"
	case mimeDOCX:
		return "docx"
	case mimeText, "text/markdown":
		return "text"
	}

	// Unresolved MIME types fall back to the extension. Clients send
	// vendor types like application/x-pdf or a blanket octet-stream for
	// files they cannot classify.
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".txt", ".md":
		return "text"
	}

	return ""
}

// parseText validates the bytes as UTF-8 and returns them unchanged.
// Plain text has no page structure, so Pages stays nil.
func (s *Service) parseText(data []byte) (*models.ParsedDocument, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text file is not valid UTF-8", models.ErrUnsupportedFormat)
	}
	return &models.ParsedDocument{Text: string(data)}, nil
}
