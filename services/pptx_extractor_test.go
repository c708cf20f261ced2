package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildPPTX(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

const slideWithTitleXML = `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>Intro to Graphs</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:txBody>
        <a:p><a:r><a:t>Bullet one</a:t></a:r></a:p>
        <a:p><a:r><a:t>Bullet two</a:t></a:r></a:p>
      </p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`

const notesXML = `<?xml version="1.0" encoding="UTF-8"?>
<p:notes xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree><p:sp>
    <p:txBody><a:p><a:r><a:t>Remember adjacency lists</a:t></a:r></a:p></p:txBody>
  </p:sp></p:spTree></p:cSld>
</p:notes>`

func TestPPTXExtractTitleBodyAndNotes(t *testing.T) {
	content := buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml":           slideWithTitleXML,
		"ppt/notesSlides/notesSlide1.xml": notesXML,
	})

	pages, err := NewPPTXExtractor().ExtractPages(content)
	if err != nil {
		t.Fatalf("ExtractPages failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}

	page := pages[0]
	if page.PageNo != 1 {
		t.Errorf("expected page number 1, got %d", page.PageNo)
	}
	if page.Title != "Intro to Graphs" {
		t.Errorf("expected title from placeholder, got %q", page.Title)
	}
	if !strings.HasPrefix(page.Text, "Slide 1 — Intro to Graphs") {
		t.Errorf("expected slide header with title, got %q", page.Text)
	}
	for _, want := range []string{"Bullet one", "Bullet two", "Notes:\nRemember adjacency lists"} {
		if !strings.Contains(page.Text, want) {
			t.Errorf("page text missing %q:\n%s", want, page.Text)
		}
	}
}

func TestPPTXSlidesNumberedInDeckOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	content := buildPPTX(t, map[string]string{
		"ppt/slides/slide10.xml": slide("tenth part"),
		"ppt/slides/slide2.xml":  slide("second part"),
	})

	pages, err := NewPPTXExtractor().ExtractPages(content)
	if err != nil {
		t.Fatalf("ExtractPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageNo != 1 || !strings.Contains(pages[0].Text, "second part") {
		t.Errorf("expected slide2.xml first as slide 1, got %+v", pages[0])
	}
	if pages[1].PageNo != 2 || !strings.Contains(pages[1].Text, "tenth part") {
		t.Errorf("expected slide10.xml second as slide 2, got %+v", pages[1])
	}
}

func TestPPTXTablesFlattened(t *testing.T) {
	slideXML := `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree><p:graphicFrame><a:tbl>
    <a:tr><a:tc><a:txBody><a:p><a:r><a:t>Algorithm</a:t></a:r></a:p></a:txBody></a:tc><a:tc><a:txBody><a:p><a:r><a:t>Complexity</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
    <a:tr><a:tc><a:txBody><a:p><a:r><a:t>BFS</a:t></a:r></a:p></a:txBody></a:tc><a:tc><a:txBody><a:p><a:r><a:t>O(V+E)</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
  </a:tbl></p:graphicFrame></p:spTree></p:cSld>
</p:sld>`
	content := buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML,
	})

	pages, err := NewPPTXExtractor().ExtractPages(content)
	if err != nil {
		t.Fatalf("ExtractPages failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if !strings.Contains(pages[0].Text, "Algorithm | Complexity") {
		t.Errorf("expected pipe-joined header row, got:\n%s", pages[0].Text)
	}
	if !strings.Contains(pages[0].Text, "BFS | O(V+E)") {
		t.Errorf("expected pipe-joined data row, got:\n%s", pages[0].Text)
	}
}

func TestPPTXBadInput(t *testing.T) {
	if _, err := NewPPTXExtractor().ExtractPages(nil); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := NewPPTXExtractor().ExtractPages([]byte("not a zip archive")); err == nil {
		t.Error("expected error for invalid archive")
	}

	content := buildPPTX(t, map[string]string{"docProps/app.xml": "<Properties/>"})
	pages, err := NewPPTXExtractor().ExtractPages(content)
	if err != nil {
		t.Fatalf("archive without slides should not fail: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages, got %d", len(pages))
	}
}
