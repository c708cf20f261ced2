package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

// ObjectStorage is the slice of the Spaces client ingestion needs.
// Kept as an interface so tests can substitute an in-memory store.
type ObjectStorage interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// IngestionService turns uploaded files into document_pages and
// content_chunks rows. Runs are idempotent: each run deletes and rebuilds
// all rows for the content item inside one transaction.
type IngestionService struct {
	db           *gorm.DB
	storage      ObjectStorage
	splitter     *TextSplitter
	lowTextChars int
	enabled      bool
}

// IngestionConfig tunes the ingestion service
type IngestionConfig struct {
	ChunkSize    int
	ChunkOverlap int
	LowTextChars int
	Enabled      bool
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(db *gorm.DB, storage ObjectStorage, cfg IngestionConfig) *IngestionService {
	lowText := cfg.LowTextChars
	if lowText <= 0 {
		lowText = 200
	}
	return &IngestionService{
		db:           db,
		storage:      storage,
		splitter:     NewTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		lowTextChars: lowText,
		enabled:      cfg.Enabled,
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// advisoryLockKey derives a stable 64-bit lock key from the content id so
// concurrent runs for the same item serialize on pg_advisory_xact_lock.
func advisoryLockKey(contentID uuid.UUID) int64 {
	sum := sha256.Sum256([]byte(contentID.String()))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// IngestContent ingests one file-backed content item into the retrieval layer.
//
// Items without a file and unsupported file types are skipped without touching
// the ingestion status. Download and extraction failures are recorded as
// status=error; a parseable file that yields no pages, no text at all, or
// almost no text is recorded as status=warning so the uploader can see
// something went sideways.
func (s *IngestionService) IngestContent(ctx context.Context, contentID uuid.UUID) error {
	if !s.enabled {
		return nil
	}

	var content model.CourseContent
	if err := s.db.WithContext(ctx).First(&content, "id = ?", contentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return fmt.Errorf("failed to load content %s: %w", contentID, err)
	}
	if content.FileKey == "" {
		return nil
	}

	kind := DetectSourceKind(content.MimeType, content.OriginalFilename)
	extractor := ExtractorFor(kind)
	if extractor == nil {
		// Unsupported file type; leave status untouched
		return nil
	}

	if err := s.markProcessing(ctx, contentID); err != nil {
		return err
	}

	fileBytes, err := s.storage.GetObject(ctx, content.FileKey)
	if err != nil {
		s.markError(ctx, contentID, err)
		return fmt.Errorf("download failed for content %s: %w", contentID, err)
	}

	pages, err := extractor.ExtractPages(fileBytes)
	if err != nil {
		s.markError(ctx, contentID, err)
		return fmt.Errorf("extraction failed for content %s: %w", contentID, err)
	}
	if len(pages) == 0 {
		s.markWarning(ctx, contentID, model.WarnNoPagesExtracted)
		return nil
	}

	totalChars := 0
	for _, p := range pages {
		totalChars += len(strings.TrimSpace(p.Text))
	}
	noText := totalChars == 0
	lowText := totalChars < s.lowTextChars

	pageRows, chunkRows := s.buildRows(&content, kind, pages, lowText)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryLockKey(contentID)).Error; err != nil {
				return err
			}
		}

		// Replace-all semantics for this content_id
		if err := tx.Where("content_id = ?", contentID).Delete(&model.DocumentPage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", contentID).Delete(&model.ContentChunk{}).Error; err != nil {
			return err
		}

		if len(pageRows) > 0 {
			if err := tx.CreateInBatches(pageRows, 200).Error; err != nil {
				return err
			}
		}
		if len(chunkRows) > 0 {
			if err := tx.CreateInBatches(chunkRows, 200).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"ingestion_status":       model.IngestionStatusDone,
			"ingestion_warning":      "",
			"ingestion_error":        "",
			"ingestion_completed_at": &now,
		}
		if noText {
			// Pages exist but none of them yielded any text
			updates["ingestion_status"] = model.IngestionStatusWarning
			updates["ingestion_warning"] = model.WarnNoPagesExtracted
		} else if lowText {
			updates["ingestion_status"] = model.IngestionStatusWarning
			updates["ingestion_warning"] = model.WarnLowTextExtracted
		}
		return tx.Model(&model.CourseContent{}).Where("id = ?", contentID).Updates(updates).Error
	})
	if err != nil {
		s.markError(ctx, contentID, err)
		return fmt.Errorf("failed to persist ingestion for content %s: %w", contentID, err)
	}

	log.Printf("Ingestion: content %s indexed (%d pages, %d chunks, %d chars)",
		contentID, len(pageRows), len(chunkRows), totalChars)
	return nil
}

// buildRows assembles page and chunk rows in memory so the write transaction
// stays short. Chunks never cross page boundaries, which keeps page_start and
// page_end exact for citations.
func (s *IngestionService) buildRows(content *model.CourseContent, kind SourceKind, pages []ExtractedPage, lowText bool) ([]model.DocumentPage, []model.ContentChunk) {
	pageRows := make([]model.DocumentPage, 0, len(pages))
	var chunkRows []model.ContentChunk
	chunkIndex := 0

	for _, p := range pages {
		txt := strings.TrimSpace(p.Text)
		pageRows = append(pageRows, model.DocumentPage{
			CourseID:   content.CourseID,
			ContentID:  content.ID,
			PageNo:     p.PageNo,
			Text:       txt,
			TextSHA256: sha256Hex(txt),
		})

		if txt == "" {
			continue
		}

		for _, chunkText := range s.splitter.Split(txt) {
			chunkText = strings.TrimSpace(chunkText)
			if chunkText == "" {
				continue
			}

			meta := model.ChunkMetadata{
				ContentID:        content.ID.String(),
				CourseID:         content.CourseID.String(),
				Category:         string(content.Category),
				OriginalFilename: content.OriginalFilename,
				PageStart:        p.PageNo,
				PageEnd:          p.PageNo,
			}
			switch kind {
			case SourceKindPDF:
				meta.DocType = "pdf"
				meta.SourceKind = "pdf"
			case SourceKindPPTX:
				meta.DocType = "slides"
				meta.SourceKind = "pptx"
				meta.SlideNo = p.PageNo
				meta.Title = p.Title
				if lowText {
					meta.ExtractionWarning = model.WarnLowTextExtracted
				}
			}

			chunkRows = append(chunkRows, model.ContentChunk{
				CourseID:   content.CourseID,
				ContentID:  content.ID,
				Category:   content.Category,
				ChunkIndex: chunkIndex,
				Text:       chunkText,
				Metadata:   meta.ToJSON(),
			})
			chunkIndex++
		}
	}

	return pageRows, chunkRows
}

func (s *IngestionService) markProcessing(ctx context.Context, contentID uuid.UUID) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&model.CourseContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"ingestion_status":       model.IngestionStatusProcessing,
			"ingestion_warning":      "",
			"ingestion_error":        "",
			"ingestion_started_at":   &now,
			"ingestion_completed_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark content %s processing: %w", contentID, err)
	}
	return nil
}

func (s *IngestionService) markError(ctx context.Context, contentID uuid.UUID, cause error) {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&model.CourseContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"ingestion_status":       model.IngestionStatusError,
			"ingestion_error":        cause.Error(),
			"ingestion_completed_at": &now,
		}).Error
	if err != nil {
		log.Printf("Ingestion: failed to record error status for content %s: %v", contentID, err)
	}
}

func (s *IngestionService) markWarning(ctx context.Context, contentID uuid.UUID, warning string) {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&model.CourseContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"ingestion_status":       model.IngestionStatusWarning,
			"ingestion_warning":      warning,
			"ingestion_completed_at": &now,
		}).Error
	if err != nil {
		log.Printf("Ingestion: failed to record warning status for content %s: %v", contentID, err)
	}
}
