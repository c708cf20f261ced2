package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

func createTestVideo(t *testing.T, db *gorm.DB, courseID uuid.UUID) *model.VideoAsset {
	t.Helper()

	asset := model.VideoAsset{
		CourseID: courseID,
		Title:    "Lecture 4",
	}
	if err := db.Create(&asset).Error; err != nil {
		t.Fatalf("failed to create test video: %v", err)
	}
	return &asset
}

const lectureVTT = "WEBVTT\n" +
	"\n" +
	"00:00:01.000 --> 00:00:04.000\n" +
	"Welcome back to the lecture.\n" +
	"\n" +
	"00:01:10.000 --> 00:01:14.000\n" +
	"Today we cover shortest paths.\n" +
	"\n" +
	"00:03:30.000 --> 00:03:35.000\n" +
	"Dijkstra needs non-negative weights.\n"

func TestIngestCaptionsStoresSegments(t *testing.T) {
	db := openTestDB(t)
	course := createTestCourse(t, db)
	asset := createTestVideo(t, db, course.ID)
	svc := NewTranscriptService(db, 0, 0)

	count, err := svc.IngestCaptions(context.Background(), asset.ID, "", lectureVTT)
	if err != nil {
		t.Fatalf("IngestCaptions failed: %v", err)
	}
	if count == 0 {
		t.Fatal("expected segments to be stored")
	}

	var segments []model.TranscriptSegment
	if err := db.Where("video_asset_id = ?", asset.ID).Order("start_sec ASC").Find(&segments).Error; err != nil {
		t.Fatalf("failed to load segments: %v", err)
	}
	if len(segments) != count {
		t.Fatalf("returned count %d but stored %d", count, len(segments))
	}
	for _, seg := range segments {
		if seg.LanguageCode != "en" {
			t.Errorf("expected default language en, got %q", seg.LanguageCode)
		}
		if seg.CourseID != course.ID {
			t.Error("segment must carry the asset's course id")
		}
		if seg.EndSec < seg.StartSec {
			t.Errorf("segment time range inverted: %+v", seg)
		}
	}
}

func TestIngestCaptionsReplacesPerLanguage(t *testing.T) {
	db := openTestDB(t)
	course := createTestCourse(t, db)
	asset := createTestVideo(t, db, course.ID)
	svc := NewTranscriptService(db, 0, 0)

	if _, err := svc.IngestCaptions(context.Background(), asset.ID, "EN ", lectureVTT); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	var firstCount int64
	db.Model(&model.TranscriptSegment{}).Where("video_asset_id = ? AND language_code = ?", asset.ID, "en").Count(&firstCount)

	// Re-ingesting the same language replaces, not accumulates
	if _, err := svc.IngestCaptions(context.Background(), asset.ID, "en", lectureVTT); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	var secondCount int64
	db.Model(&model.TranscriptSegment{}).Where("video_asset_id = ? AND language_code = ?", asset.ID, "en").Count(&secondCount)
	if firstCount != secondCount {
		t.Errorf("re-ingestion accumulated segments: %d -> %d", firstCount, secondCount)
	}

	// A different language coexists
	if _, err := svc.IngestCaptions(context.Background(), asset.ID, "de", lectureVTT); err != nil {
		t.Fatalf("german ingest failed: %v", err)
	}
	var deCount int64
	db.Model(&model.TranscriptSegment{}).Where("video_asset_id = ? AND language_code = ?", asset.ID, "de").Count(&deCount)
	if deCount != firstCount {
		t.Errorf("expected %d german segments, got %d", firstCount, deCount)
	}
	var enCount int64
	db.Model(&model.TranscriptSegment{}).Where("video_asset_id = ? AND language_code = ?", asset.ID, "en").Count(&enCount)
	if enCount != firstCount {
		t.Errorf("ingesting another language must not disturb existing segments, got %d", enCount)
	}
}

func TestIngestCaptionsLinksChapters(t *testing.T) {
	db := openTestDB(t)
	course := createTestCourse(t, db)
	asset := createTestVideo(t, db, course.ID)

	intro := model.VideoChapter{VideoAssetID: asset.ID, Title: "Intro", StartSec: 0, EndSec: 60}
	paths := model.VideoChapter{VideoAssetID: asset.ID, Title: "Shortest paths", StartSec: 60, EndSec: 180}
	if err := db.Create(&intro).Error; err != nil {
		t.Fatalf("failed to create chapter: %v", err)
	}
	if err := db.Create(&paths).Error; err != nil {
		t.Fatalf("failed to create chapter: %v", err)
	}

	// maxChars=1 forces one segment per cue so chapter boundaries stay visible
	svc := NewTranscriptService(db, 1, 30)
	if _, err := svc.IngestCaptions(context.Background(), asset.ID, "en", lectureVTT); err != nil {
		t.Fatalf("IngestCaptions failed: %v", err)
	}

	var segments []model.TranscriptSegment
	if err := db.Where("video_asset_id = ?", asset.ID).Order("start_sec ASC").Find(&segments).Error; err != nil {
		t.Fatalf("failed to load segments: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	if segments[0].ChapterID == nil || *segments[0].ChapterID != intro.ID {
		t.Errorf("segment at 1s should link to Intro, got %v", segments[0].ChapterID)
	}
	if segments[1].ChapterID == nil || *segments[1].ChapterID != paths.ID {
		t.Errorf("segment at 70s should link to Shortest paths, got %v", segments[1].ChapterID)
	}
	if segments[2].ChapterID != nil {
		t.Errorf("segment at 210s is outside all chapters, got %v", segments[2].ChapterID)
	}
}

func TestIngestCaptionsUnknownAsset(t *testing.T) {
	db := openTestDB(t)
	svc := NewTranscriptService(db, 0, 0)

	if _, err := svc.IngestCaptions(context.Background(), uuid.New(), "en", lectureVTT); err == nil {
		t.Fatal("expected an error for an unknown video asset")
	}
}

func TestIngestCaptionsEmptyVTT(t *testing.T) {
	db := openTestDB(t)
	course := createTestCourse(t, db)
	asset := createTestVideo(t, db, course.ID)
	svc := NewTranscriptService(db, 0, 0)

	count, err := svc.IngestCaptions(context.Background(), asset.ID, "en", "WEBVTT\n")
	if err != nil {
		t.Fatalf("empty captions should not fail: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 segments, got %d", count)
	}
}
