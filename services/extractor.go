package services

import (
	"path/filepath"
	"strings"
)

// SourceKind identifies the document type an uploaded file is treated as
type SourceKind string

const (
	SourceKindPDF         SourceKind = "pdf"
	SourceKindPPTX        SourceKind = "pptx"
	SourceKindUnsupported SourceKind = "unsupported"
)

// ExtractedPage is one unit of extracted text. For PDFs PageNo is the 1-based
// page number, for slide decks it is the 1-based slide number. Title is only
// set for slides (the title placeholder text).
type ExtractedPage struct {
	PageNo int
	Text   string
	Title  string
}

// PageExtractor turns raw file bytes into per-page text
type PageExtractor interface {
	ExtractPages(content []byte) ([]ExtractedPage, error)
}

// DetectSourceKind classifies a file by MIME type first, then by extension.
// Unknown types are reported as unsupported, not as an error; ingestion
// skips them silently.
func DetectSourceKind(mimeType, filename string) SourceKind {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "application/pdf":
		return SourceKindPDF
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return SourceKindPPTX
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return SourceKindPDF
	case ".pptx":
		return SourceKindPPTX
	}

	return SourceKindUnsupported
}

// ExtractorFor returns the extractor for a source kind, or nil when the kind
// is unsupported.
func ExtractorFor(kind SourceKind) PageExtractor {
	switch kind {
	case SourceKindPDF:
		return NewPDFExtractor()
	case SourceKindPPTX:
		return NewPPTXExtractor()
	default:
		return nil
	}
}
