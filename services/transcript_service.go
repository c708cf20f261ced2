package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

// TranscriptService turns uploaded WebVTT captions into transcript segments.
// Each ingestion replaces all segments for the (asset, language) pair, so
// re-uploads never accumulate duplicate cues.
type TranscriptService struct {
	db             *gorm.DB
	mergeMaxChars  int
	mergeWindowSec float64
}

// NewTranscriptService creates a transcript service
func NewTranscriptService(db *gorm.DB, mergeMaxChars int, mergeWindowSec float64) *TranscriptService {
	if mergeMaxChars <= 0 {
		mergeMaxChars = 700
	}
	if mergeWindowSec <= 0 {
		mergeWindowSec = 30
	}
	return &TranscriptService{
		db:             db,
		mergeMaxChars:  mergeMaxChars,
		mergeWindowSec: mergeWindowSec,
	}
}

// IngestCaptions parses and merges a WebVTT file and stores the resulting
// segments for the video asset. Returns the number of segments stored.
func (s *TranscriptService) IngestCaptions(ctx context.Context, videoAssetID uuid.UUID, languageCode, vttText string) (int, error) {
	languageCode = strings.ToLower(strings.TrimSpace(languageCode))
	if languageCode == "" {
		languageCode = "en"
	}

	var asset model.VideoAsset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", videoAssetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("video asset %s not found", videoAssetID)
		}
		return 0, fmt.Errorf("failed to load video asset %s: %w", videoAssetID, err)
	}

	cues := ParseWebVTT(vttText)
	merged := MergeCues(cues, s.mergeMaxChars, s.mergeWindowSec)

	var chapters []model.VideoChapter
	if err := s.db.WithContext(ctx).
		Where("video_asset_id = ?", videoAssetID).
		Order("start_sec ASC").
		Find(&chapters).Error; err != nil {
		return 0, fmt.Errorf("failed to load chapters for asset %s: %w", videoAssetID, err)
	}

	segments := make([]model.TranscriptSegment, 0, len(merged))
	for _, cue := range merged {
		seg := model.TranscriptSegment{
			CourseID:     asset.CourseID,
			VideoAssetID: asset.ID,
			StartSec:     cue.StartSec,
			EndSec:       cue.EndSec,
			Text:         cue.Text,
			LanguageCode: languageCode,
		}
		if ch := containingChapter(chapters, cue.StartSec); ch != nil {
			id := ch.ID
			seg.ChapterID = &id
		}
		segments = append(segments, seg)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_asset_id = ? AND language_code = ?", videoAssetID, languageCode).
			Delete(&model.TranscriptSegment{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		return tx.CreateInBatches(segments, 200).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store transcript segments for asset %s: %w", videoAssetID, err)
	}

	log.Printf("Transcripts: asset %s stored %d %s segments (%d raw cues)",
		videoAssetID, len(segments), languageCode, len(cues))
	return len(segments), nil
}

// containingChapter returns the chapter whose time range contains startSec.
// Chapters must be sorted by StartSec; the last matching chapter wins so
// overlapping ranges resolve to the most specific one.
func containingChapter(chapters []model.VideoChapter, startSec float64) *model.VideoChapter {
	var found *model.VideoChapter
	for i := range chapters {
		ch := &chapters[i]
		if startSec >= ch.StartSec && startSec < ch.EndSec {
			found = ch
		}
	}
	return found
}
