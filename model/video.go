package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoAsset represents an uploaded lecture video attached to a course.
// Transcription itself happens in an external pipeline; we only track the
// resulting captions here.
type VideoAsset struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	ContentID *uuid.UUID     `gorm:"type:uuid;index" json:"content_id,omitempty"` // owning course content record, if any

	Title       string  `gorm:"type:varchar(255);not null" json:"title"`
	VideoGUID   string  `gorm:"type:varchar(100);index" json:"video_guid,omitempty"` // external streaming provider id
	DurationSec float64 `gorm:"default:0" json:"duration_sec"`

	// Relationships
	Course   Course              `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Chapters []VideoChapter      `gorm:"foreignKey:VideoAssetID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
	Segments []TranscriptSegment `gorm:"foreignKey:VideoAssetID;constraint:OnDelete:CASCADE" json:"-"`
}

func (v *VideoAsset) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VideoChapter is an optional time range annotation within a video
type VideoChapter struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	VideoAssetID uuid.UUID `gorm:"type:uuid;not null;index" json:"video_asset_id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	StartSec     float64   `gorm:"not null" json:"start_sec"`
	EndSec       float64   `gorm:"not null" json:"end_sec"`

	VideoAsset VideoAsset `gorm:"foreignKey:VideoAssetID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *VideoChapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TranscriptSegment is one time-coded, merge-coarsened caption window.
// Segments for a (video_asset_id, language_code) pair are replaced wholesale
// on each re-ingestion so retried runs never accumulate duplicate cues.
type TranscriptSegment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	VideoAssetID uuid.UUID `gorm:"type:uuid;not null;index" json:"video_asset_id"`

	StartSec     float64    `gorm:"not null" json:"start_sec"`
	EndSec       float64    `gorm:"not null" json:"end_sec"` // end >= start
	Text         string     `gorm:"type:text;not null" json:"text"`
	LanguageCode string     `gorm:"type:varchar(16);not null;index" json:"language_code"`
	ChapterID    *uuid.UUID `gorm:"type:uuid" json:"chapter_id,omitempty"`

	VideoAsset VideoAsset `gorm:"foreignKey:VideoAssetID;constraint:OnDelete:CASCADE" json:"-"`
}

func (s *TranscriptSegment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
