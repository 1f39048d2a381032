package parser

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/models"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		fileName string
		want     string
	}{
		{"PDF by MIME", "application/pdf", "report.bin", "pdf"},
		{"DOCX by MIME", mimeDOCX, "notes", "docx"},
		{"Plain text by MIME", "text/plain", "readme", "text"},
		{"Markdown by MIME", "text/markdown", "readme", "text"},
		{"MIME with charset parameter", "text/plain; charset=utf-8", "readme", "text"},
		{"MIME case insensitive", "Application/PDF", "report", "pdf"},
		{"Extension fallback on empty MIME", "", "report.pdf", "pdf"},
		{"Extension fallback on octet-stream", "application/octet-stream", "notes.docx", "docx"},
		{"Extension fallback on vendor PDF MIME", "application/x-pdf", "report.pdf", "pdf"},
		{"Extension fallback on vendor DOCX MIME", "application/vnd.ms-word.document.12", "notes.docx", "docx"},
		{"Extension fallback on unrecognized MIME", "image/png", "photo.pdf", "pdf"},
		{"Markdown extension fallback", "", "README.md", "text"},
		{"Txt extension fallback", "", "notes.TXT", "text"},
		{"Known MIME beats extension", "application/pdf", "notes.txt", "pdf"},
		{"Unknown MIME and unknown extension", "image/png", "photo.png", ""},
		{"Nothing recognizable", "", "archive.tar.gz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveFormat(tt.mimeType, tt.fileName))
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	_, err := svc.Parse([]byte("data"), "image/png", "photo.png")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestParse_VendorMIMEFallsBackToExtension(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	parsed, err := svc.Parse([]byte("plain enough"), "application/x-unknown", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain enough", parsed.Text)
}

func TestParse_PlainText(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	parsed, err := svc.Parse([]byte("Hello, world.\nSecond line."), "text/plain", "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, "Hello, world.\nSecond line.", parsed.Text)
	assert.Nil(t, parsed.Pages)
}

func TestParse_InvalidUTF8Rejected(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	_, err := svc.Parse([]byte{0xff, 0xfe, 0x00}, "text/plain", "notes.txt")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

// buildDOCX assembles a minimal archive with the given document part.
func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	part, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = part.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestParse_DOCX(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t> paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	parsed, err := svc.Parse(buildDOCX(t, docXML), mimeDOCX, "notes.docx")
	require.NoError(t, err)

	assert.Equal(t, "First paragraph.\nSecond paragraph.", parsed.Text)
	assert.Nil(t, parsed.Pages)
}

func TestParse_DOCXTabsAndBreaks(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	docXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>left</w:t><w:tab/><w:t>right</w:t></w:r></w:p>
    <w:p><w:r><w:t>above</w:t><w:br/><w:t>below</w:t></w:r></w:p>
  </w:body>
</w:document>`

	parsed, err := svc.Parse(buildDOCX(t, docXML), mimeDOCX, "layout.docx")
	require.NoError(t, err)

	assert.Equal(t, "left\tright\nabove\nbelow", parsed.Text)
}

func TestParse_DOCXIgnoresNonRunText(t *testing.T) {
	// Character data outside w:t runs (attributes, whitespace between
	// elements) must not leak into the output
	docXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Only this text.</w:t></w:r>
    </w:p>
  </w:body>
</w:document>`

	text, err := extractParagraphs(strings.NewReader(docXML))
	require.NoError(t, err)
	assert.Equal(t, "Only this text.", text)
}

func TestParse_DOCXMissingDocumentPart(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	part, err := writer.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = part.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = svc.Parse(buf.Bytes(), mimeDOCX, "broken.docx")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestParse_DOCXNotAZip(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	_, err := svc.Parse([]byte("definitely not a zip archive"), mimeDOCX, "broken.docx")
	assert.Error(t, err)
}
