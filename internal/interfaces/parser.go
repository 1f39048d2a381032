package interfaces

import "github.com/ternarybob/docquery/internal/models"

// Parser converts raw file bytes plus a declared type into normalized text,
// page-segmented for formats that have pages.
type Parser interface {
	// Parse dispatches on the declared MIME type first, then the filename
	// extension. Unknown input returns models.ErrUnsupportedFormat.
	Parse(data []byte, mimeType, fileName string) (*models.ParsedDocument, error)
}
