package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

// fakeStorage is an in-memory ObjectStorage
type fakeStorage struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return data, nil
}

func newIngestFixture(t *testing.T, storage ObjectStorage, cfg IngestionConfig) (*gorm.DB, *IngestionService, *model.Course) {
	t.Helper()

	db := openTestDB(t)
	cfg.Enabled = true
	svc := NewIngestionService(db, storage, cfg)
	return db, svc, createTestCourse(t, db)
}

func createTestContent(t *testing.T, db *gorm.DB, courseID uuid.UUID, fileKey, filename, mime string) *model.CourseContent {
	t.Helper()

	content := model.CourseContent{
		CourseID:         courseID,
		Category:         model.CategoryNotes,
		Title:            "Week 3 slides",
		FileKey:          fileKey,
		OriginalFilename: filename,
		MimeType:         mime,
		IngestionStatus:  model.IngestionStatusQueued,
	}
	if err := db.Create(&content).Error; err != nil {
		t.Fatalf("failed to create test content: %v", err)
	}
	return &content
}

func reloadContent(t *testing.T, db *gorm.DB, id uuid.UUID) *model.CourseContent {
	t.Helper()

	var content model.CourseContent
	if err := db.First(&content, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload content: %v", err)
	}
	return &content
}

func richSlideDeck(t *testing.T) []byte {
	t.Helper()

	slide := func(title, body string) string {
		return `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>` + title + `</a:t></a:r></a:p></p:txBody></p:sp>
    <p:sp><p:txBody><a:p><a:r><a:t>` + body + `</a:t></a:r></a:p></p:txBody></p:sp>
  </p:spTree></p:cSld>
</p:sld>`
	}
	body1 := strings.Repeat("Breadth first search explores neighbors level by level. ", 4)
	body2 := strings.Repeat("Depth first search dives along one branch before backtracking. ", 4)
	return buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slide("Graph Traversal", body1),
		"ppt/slides/slide2.xml": slide("DFS", body2),
	})
}

const pptxMime = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

func TestIngestContentHappyPath(t *testing.T) {
	deck := richSlideDeck(t)
	storage := &fakeStorage{objects: map[string][]byte{"k/deck.pptx": deck}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{ChunkSize: 300, ChunkOverlap: 50, LowTextChars: 10})
	content := createTestContent(t, db, course.ID, "k/deck.pptx", "deck.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("IngestContent failed: %v", err)
	}

	got := reloadContent(t, db, content.ID)
	if got.IngestionStatus != model.IngestionStatusDone {
		t.Errorf("expected status done, got %q (warning=%q error=%q)",
			got.IngestionStatus, got.IngestionWarning, got.IngestionError)
	}
	if got.IngestionCompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	var pages []model.DocumentPage
	if err := db.Where("content_id = ?", content.ID).Order("page_no ASC").Find(&pages).Error; err != nil {
		t.Fatalf("failed to load pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageNo != 1 || pages[1].PageNo != 2 {
		t.Errorf("page numbers wrong: %d, %d", pages[0].PageNo, pages[1].PageNo)
	}
	if pages[0].TextSHA256 == "" || pages[0].TextSHA256 == pages[1].TextSHA256 {
		t.Error("expected distinct non-empty page hashes")
	}

	var chunks []model.ContentChunk
	if err := db.Where("content_id = ?", content.ID).Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		t.Fatalf("failed to load chunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks to be created")
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk_index not contiguous: chunk %d has index %d", i, ch.ChunkIndex)
		}
		if ch.CourseID != course.ID {
			t.Errorf("chunk %d has wrong course id", i)
		}
		if ch.Category != model.CategoryNotes {
			t.Errorf("chunk %d category wrong: %q", i, ch.Category)
		}

		meta := model.ChunkMetadataFromJSON(ch.Metadata)
		if meta.DocType != "slides" || meta.SourceKind != "pptx" {
			t.Errorf("chunk %d metadata shape wrong: %+v", i, meta)
		}
		if meta.PageStart != meta.PageEnd || meta.SlideNo != meta.PageStart {
			t.Errorf("chunk %d must stay within one slide: %+v", i, meta)
		}
		if meta.ContentID != content.ID.String() || meta.CourseID != course.ID.String() {
			t.Errorf("chunk %d provenance ids wrong: %+v", i, meta)
		}
		if meta.ExtractionWarning != "" {
			t.Errorf("chunk %d should have no extraction warning: %+v", i, meta)
		}
	}
}

func TestIngestContentIdempotent(t *testing.T) {
	deck := richSlideDeck(t)
	storage := &fakeStorage{objects: map[string][]byte{"k/deck.pptx": deck}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{ChunkSize: 300, ChunkOverlap: 50, LowTextChars: 10})
	content := createTestContent(t, db, course.ID, "k/deck.pptx", "deck.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	var firstPages, firstChunks int64
	db.Model(&model.DocumentPage{}).Where("content_id = ?", content.ID).Count(&firstPages)
	db.Model(&model.ContentChunk{}).Where("content_id = ?", content.ID).Count(&firstChunks)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	var secondPages, secondChunks int64
	db.Model(&model.DocumentPage{}).Where("content_id = ?", content.ID).Count(&secondPages)
	db.Model(&model.ContentChunk{}).Where("content_id = ?", content.ID).Count(&secondChunks)

	if firstPages != secondPages || firstChunks != secondChunks {
		t.Errorf("re-ingestion must replace rows, not accumulate: pages %d->%d chunks %d->%d",
			firstPages, secondPages, firstChunks, secondChunks)
	}
}

func TestIngestContentLowTextWarning(t *testing.T) {
	deck := richSlideDeck(t)
	storage := &fakeStorage{objects: map[string][]byte{"k/deck.pptx": deck}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{ChunkSize: 300, ChunkOverlap: 50, LowTextChars: 100000})
	content := createTestContent(t, db, course.ID, "k/deck.pptx", "deck.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("IngestContent failed: %v", err)
	}

	got := reloadContent(t, db, content.ID)
	if got.IngestionStatus != model.IngestionStatusWarning {
		t.Errorf("expected status warning, got %q", got.IngestionStatus)
	}
	if got.IngestionWarning != model.WarnLowTextExtracted {
		t.Errorf("expected warning %q, got %q", model.WarnLowTextExtracted, got.IngestionWarning)
	}

	// Chunks are still stored so partial extractions remain searchable
	var chunks []model.ContentChunk
	if err := db.Where("content_id = ?", content.ID).Find(&chunks).Error; err != nil || len(chunks) == 0 {
		t.Fatalf("expected chunks despite warning, got %d (err=%v)", len(chunks), err)
	}
	meta := model.ChunkMetadataFromJSON(chunks[0].Metadata)
	if meta.ExtractionWarning != model.WarnLowTextExtracted {
		t.Errorf("expected extraction warning in chunk metadata, got %+v", meta)
	}
}

func TestIngestContentNoTextWarning(t *testing.T) {
	// A structurally valid document whose pages all extract to empty text
	doc := buildPDF(t, []string{""})
	storage := &fakeStorage{objects: map[string][]byte{"k/scan.pdf": doc}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{ChunkSize: 300, ChunkOverlap: 50, LowTextChars: 10})
	content := createTestContent(t, db, course.ID, "k/scan.pdf", "scan.pdf", "application/pdf")

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("IngestContent failed: %v", err)
	}

	got := reloadContent(t, db, content.ID)
	if got.IngestionStatus != model.IngestionStatusWarning {
		t.Errorf("expected status warning, got %q", got.IngestionStatus)
	}
	if got.IngestionWarning != model.WarnNoPagesExtracted {
		t.Errorf("expected warning %q, got %q", model.WarnNoPagesExtracted, got.IngestionWarning)
	}

	// The empty page row is still recorded; no chunks are produced
	var pageCount, chunkCount int64
	db.Model(&model.DocumentPage{}).Where("content_id = ?", content.ID).Count(&pageCount)
	db.Model(&model.ContentChunk{}).Where("content_id = ?", content.ID).Count(&chunkCount)
	if pageCount != 1 || chunkCount != 0 {
		t.Errorf("expected 1 page and 0 chunks, got %d pages %d chunks", pageCount, chunkCount)
	}
}

func TestIngestContentDownloadFailure(t *testing.T) {
	storage := &fakeStorage{err: errors.New("spaces unavailable")}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{})
	content := createTestContent(t, db, course.ID, "k/deck.pptx", "deck.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err == nil {
		t.Fatal("expected an error when download fails")
	}

	got := reloadContent(t, db, content.ID)
	if got.IngestionStatus != model.IngestionStatusError {
		t.Errorf("expected status error, got %q", got.IngestionStatus)
	}
	if got.IngestionError == "" {
		t.Error("expected the failure reason to be recorded")
	}
}

func TestIngestContentExtractionFailure(t *testing.T) {
	storage := &fakeStorage{objects: map[string][]byte{"k/broken.pptx": []byte("not a zip archive")}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{})
	content := createTestContent(t, db, course.ID, "k/broken.pptx", "broken.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err == nil {
		t.Fatal("expected an error when extraction fails")
	}

	got := reloadContent(t, db, content.ID)
	if got.IngestionStatus != model.IngestionStatusError {
		t.Errorf("expected status error, got %q", got.IngestionStatus)
	}
}

func TestIngestContentSkipsWithoutFile(t *testing.T) {
	db, svc, course := newIngestFixture(t, &fakeStorage{}, IngestionConfig{})
	content := createTestContent(t, db, course.ID, "", "", "")
	db.Model(content).Update("ingestion_status", model.IngestionStatusNone)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("expected nil for content without a file, got %v", err)
	}
	if got := reloadContent(t, db, content.ID); got.IngestionStatus != model.IngestionStatusNone {
		t.Errorf("status must stay untouched, got %q", got.IngestionStatus)
	}
}

func TestIngestContentSkipsUnsupportedKind(t *testing.T) {
	storage := &fakeStorage{objects: map[string][]byte{"k/essay.docx": []byte("irrelevant")}}
	db, svc, course := newIngestFixture(t, storage, IngestionConfig{})
	content := createTestContent(t, db, course.ID, "k/essay.docx", "essay.docx", "application/msword")
	db.Model(content).Update("ingestion_status", model.IngestionStatusNone)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("expected nil for unsupported kind, got %v", err)
	}
	if got := reloadContent(t, db, content.ID); got.IngestionStatus != model.IngestionStatusNone {
		t.Errorf("status must stay untouched, got %q", got.IngestionStatus)
	}
}

func TestIngestContentMissingRecord(t *testing.T) {
	_, svc, _ := newIngestFixture(t, &fakeStorage{}, IngestionConfig{})

	if err := svc.IngestContent(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected nil for a deleted content record, got %v", err)
	}
}

func TestIngestContentDisabled(t *testing.T) {
	db := openTestDB(t)
	svc := NewIngestionService(db, &fakeStorage{}, IngestionConfig{Enabled: false})
	course := createTestCourse(t, db)
	content := createTestContent(t, db, course.ID, "k/deck.pptx", "deck.pptx", pptxMime)

	if err := svc.IngestContent(context.Background(), content.ID); err != nil {
		t.Fatalf("expected nil when disabled, got %v", err)
	}
	if got := reloadContent(t, db, content.ID); got.IngestionStatus != model.IngestionStatusQueued {
		t.Errorf("disabled service must not touch status, got %q", got.IngestionStatus)
	}
}
