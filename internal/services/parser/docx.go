// -----------------------------------------------------------------------
// DOCX parsing - paragraph text extraction from word/document.xml
// -----------------------------------------------------------------------

package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/docquery/internal/models"
)

// parseDOCX pulls paragraph text out of the document part of the archive.
// DOCX files carry no fixed pagination, so Pages stays nil.
func (s *Service) parseDOCX(data []byte) (*models.ParsedDocument, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	var docPart *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docPart = f
			break
		}
	}
	if docPart == nil {
		return nil, fmt.Errorf("%w: DOCX archive has no word/document.xml", models.ErrUnsupportedFormat)
	}

	rc, err := docPart.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document part: %w", err)
	}
	defer rc.Close()

	text, err := extractParagraphs(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document XML: %w", err)
	}

	s.logger.Debug().Int("chars", len(text)).Msg("Extracted DOCX text")

	return &models.ParsedDocument{Text: text}, nil
}

// extractParagraphs streams the WordprocessingML body, collecting character
// data inside w:t runs and emitting a newline at each w:p boundary.
func extractParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	var paragraph strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				line := strings.TrimRight(paragraph.String(), " \t")
				paragraph.Reset()
				if builder.Len() > 0 {
					builder.WriteByte('\n')
				}
				builder.WriteString(line)
			}
		case xml.CharData:
			if inText {
				paragraph.Write(el)
			}
		}
	}

	if paragraph.Len() > 0 {
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(paragraph.String())
	}

	return strings.TrimSpace(builder.String()), nil
}
