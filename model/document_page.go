package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentPage stores page-level extracted text for a file-backed content item.
// One row per (content_id, page_no); page_no is 1-based (slide number for PPTX).
// Rows are replaced wholesale on every ingestion run, never patched in place.
type DocumentPage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	ContentID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_document_pages_content_page,priority:1" json:"content_id"`

	PageNo     int    `gorm:"not null;uniqueIndex:idx_document_pages_content_page,priority:2" json:"page_no"`
	Text       string `gorm:"type:text;not null" json:"text"`
	TextSHA256 string `gorm:"type:varchar(64)" json:"text_sha256,omitempty"`

	// Relationships
	Content CourseContent `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *DocumentPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
