// -----------------------------------------------------------------------
// PDF parsing - per-page text extraction using pdfcpu
// -----------------------------------------------------------------------

package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ternarybob/docquery/internal/models"
)

// parsePDF extracts text page by page. Pages that yield no text are kept
// as empty strings so page numbering stays aligned with the source file.
func (s *Service) parsePDF(data []byte) (*models.ParsedDocument, error) {
	tempDir := filepath.Join(os.TempDir(), "docquery-pdf")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	// pdfcpu works on files, so stage the upload under a unique name
	id := uuid.New().String()
	tempFile := filepath.Join(tempDir, fmt.Sprintf("extract_%s.pdf", id))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(tempDir, fmt.Sprintf("pages_%s", id))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create page output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		} else if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	pages := make([]string, 0, pageCount)
	var fullText strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := pageTexts[pageNum]
		pages = append(pages, text)
		if text != "" {
			if fullText.Len() > 0 {
				fullText.WriteString("\n\n")
			}
			fullText.WriteString(text)
		}
	}

	s.logger.Debug().
		Int("page_count", pageCount).
		Int("extracted_pages", len(pageTexts)).
		Msg("Extracted PDF text")

	return &models.ParsedDocument{
		Text:  fullText.String(),
		Pages: pages,
	}, nil
}
