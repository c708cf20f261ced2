package services

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// buildPDF assembles a minimal single-font PDF in memory, one page per entry
// in pageTexts. An empty entry produces a page whose content stream draws
// nothing. Texts must be plain ASCII without parentheses.
func buildPDF(t *testing.T, pageTexts []string) []byte {
	t.Helper()

	var objects []string
	nextObj := 4
	var kids []string
	var pageObjs []string

	for _, text := range pageTexts {
		pageNum := nextObj
		nextObj++
		streamNum := nextObj
		nextObj++

		stream := "q Q"
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		streamObj := fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			streamNum, len(stream), stream)
		pageObj := fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>\nendobj\n",
			pageNum, streamNum)

		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		pageObjs = append(pageObjs, pageObj, streamObj)
	}

	objects = append(objects,
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
			strings.Join(kids, " "), len(pageTexts)),
		"3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
	)
	objects = append(objects, pageObjs...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)
	return buf.Bytes()
}

func TestPDFExtractPagesNumbering(t *testing.T) {
	doc := buildPDF(t, []string{"Alpha", "Beta"})

	pages, err := NewPDFExtractor().ExtractPages(doc)
	if err != nil {
		t.Fatalf("ExtractPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageNo != 1 || pages[1].PageNo != 2 {
		t.Errorf("page numbers wrong: %d, %d", pages[0].PageNo, pages[1].PageNo)
	}
	if !strings.Contains(pages[0].Text, "Alpha") {
		t.Errorf("page 1 text missing: %q", pages[0].Text)
	}
	if !strings.Contains(pages[1].Text, "Beta") {
		t.Errorf("page 2 text missing: %q", pages[1].Text)
	}
}

func TestPDFExtractToleratesEmptyPage(t *testing.T) {
	doc := buildPDF(t, []string{"Alpha", ""})

	pages, err := NewPDFExtractor().ExtractPages(doc)
	if err != nil {
		t.Fatalf("ExtractPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("a page without text must still appear, got %d pages", len(pages))
	}
	if pages[1].Text != "" {
		t.Errorf("expected empty text for the blank page, got %q", pages[1].Text)
	}
}

func TestPDFExtractTrailingGarbage(t *testing.T) {
	doc := buildPDF(t, []string{"Alpha"})
	dirty := append(append([]byte{}, doc...), []byte("<html>download page wrapper</html>")...)

	pages, err := NewPDFExtractor().ExtractPages(dirty)
	if err != nil {
		t.Fatalf("ExtractPages failed on garbage-suffixed PDF: %v", err)
	}
	if len(pages) != 1 || !strings.Contains(pages[0].Text, "Alpha") {
		t.Errorf("unexpected extraction result: %+v", pages)
	}
}

func TestSanitizePDF(t *testing.T) {
	doc := buildPDF(t, []string{"Alpha"})

	dirty := append(append([]byte{}, doc...), []byte("<html>lots of trailing junk</html>")...)
	if got := sanitizePDF(dirty); !bytes.Equal(got, doc) {
		t.Errorf("expected garbage after %%%%EOF to be trimmed (got %d bytes, want %d)", len(got), len(doc))
	}

	// A couple of trailing newlines are legal and must survive
	withNewlines := append(append([]byte{}, doc...), '\n', '\r', '\n')
	if got := sanitizePDF(withNewlines); !bytes.Equal(got, withNewlines) {
		t.Error("trailing newlines after EOF marker must be kept")
	}

	// Non-PDF input passes through untouched
	notPDF := []byte("plain text, no header")
	if got := sanitizePDF(notPDF); !bytes.Equal(got, notPDF) {
		t.Error("non-PDF input must be returned as-is")
	}
}

func TestPDFExtractBadInput(t *testing.T) {
	if _, err := NewPDFExtractor().ExtractPages(nil); err == nil {
		t.Error("expected an error for empty input")
	}
	if _, err := NewPDFExtractor().ExtractPages([]byte("%PDF-1.4\nnot really a pdf")); err == nil {
		t.Error("expected an error for a corrupt document")
	}
}
