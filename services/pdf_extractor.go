package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF text extraction using ledongthuc/pdf (MIT license)
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// sanitizePDF fixes common PDF issues like trailing garbage data
// Many PDFs downloaded from web have HTML or other data appended after %%EOF
// This function truncates the content at the last valid %%EOF marker
func sanitizePDF(content []byte) []byte {
	if len(content) == 0 {
		return content
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content // Not a PDF, return as-is
	}

	// Find the last occurrence of %%EOF (valid PDF end marker)
	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)

	if lastEOF == -1 {
		// No %%EOF found - PDF is likely truncated, let the parser handle it
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)

	// Allow for trailing newlines after %%EOF (valid per PDF spec)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if pdfEnd < len(content) {
		extraBytes := len(content) - pdfEnd
		if extraBytes > 10 { // More than just whitespace
			log.Printf("PDF Extractor: Removing %d bytes of trailing garbage after %%EOF", extraBytes)
			return content[:pdfEnd]
		}
	}

	return content
}

// ExtractPages extracts text page by page. A page that fails to yield text is
// still present in the result with an empty Text, so the page numbering of
// the returned slice always matches the document.
func (p *PDFExtractor) ExtractPages(content []byte) ([]ExtractedPage, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}

	content = sanitizePDF(content)

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return []ExtractedPage{}, nil
	}

	log.Printf("PDF Extractor: Processing PDF with %d pages", numPages)

	pages := make([]ExtractedPage, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, ExtractedPage{
			PageNo: i,
			Text:   extractPageText(pdfReader, i),
		})
	}

	return pages, nil
}

// extractPageText extracts a single page, preferring row extraction for
// structure and falling back to plain text. Returns "" on failure.
func extractPageText(pdfReader *pdf.Reader, pageNo int) string {
	page := pdfReader.Page(pageNo)
	if page.V.IsNull() {
		log.Printf("PDF Extractor: Page %d is null, skipping", pageNo)
		return ""
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		log.Printf("PDF Extractor: Row extraction failed for page %d, trying plain text: %v", pageNo, err)
		text, plainErr := page.GetPlainText(nil)
		if plainErr != nil {
			log.Printf("PDF Extractor: Plain text extraction also failed for page %d: %v", pageNo, plainErr)
			return ""
		}
		return strings.TrimSpace(text)
	}

	var textBuilder strings.Builder
	for _, row := range rows {
		var rowText strings.Builder
		for _, word := range row.Content {
			rowText.WriteString(word.S)
		}
		line := strings.TrimSpace(rowText.String())
		if line != "" {
			textBuilder.WriteString(line)
			textBuilder.WriteString("\n")
		}
	}

	return strings.TrimSpace(textBuilder.String())
}
