package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentCategory classifies the pedagogical role of a content item
type ContentCategory string

const (
	CategoryOverview            ContentCategory = "overview"
	CategoryMedia               ContentCategory = "media"
	CategoryNotes               ContentCategory = "notes"
	CategoryAssignments         ContentCategory = "assignments"
	CategoryExams               ContentCategory = "exams"
	CategoryAdditionalResources ContentCategory = "additional_resources"
)

// ValidCategory reports whether s is one of the known content categories
func ValidCategory(s string) bool {
	switch ContentCategory(s) {
	case CategoryOverview, CategoryMedia, CategoryNotes,
		CategoryAssignments, CategoryExams, CategoryAdditionalResources:
		return true
	}
	return false
}

// IngestionStatus tracks the retrieval-indexing lifecycle of a content item.
// Transitions are monotonic per run: none -> queued -> processing -> done|warning|error.
type IngestionStatus string

const (
	IngestionStatusNone       IngestionStatus = "none"
	IngestionStatusQueued     IngestionStatus = "queued"
	IngestionStatusProcessing IngestionStatus = "processing"
	IngestionStatusDone       IngestionStatus = "done"
	IngestionStatusWarning    IngestionStatus = "warning"
	IngestionStatusError      IngestionStatus = "error"
)

// Machine-readable ingestion warning reasons surfaced to the UI
const (
	WarnNoPagesExtracted = "no_pages_extracted"
	WarnLowTextExtracted = "low_text_extracted"
)

// CourseContent represents one uploaded or declared teaching artifact
// (PDF, slide deck, video, or plain note) attached to a course.
type CourseContent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`

	Category    ContentCategory `gorm:"type:varchar(64);not null" json:"category"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:varchar(2000)" json:"description,omitempty"`

	// S3 object key. If present, the file can be downloaded for ingestion.
	FileKey          string `gorm:"type:varchar(1024)" json:"file_key,omitempty"`
	OriginalFilename string `gorm:"type:varchar(255)" json:"original_filename,omitempty"`
	MimeType         string `gorm:"type:varchar(255)" json:"mime_type,omitempty"`
	SizeBytes        int64  `gorm:"default:0" json:"size_bytes"`

	// Ingestion lifecycle. Mutated only by the ingestion service.
	IngestionStatus      IngestionStatus `gorm:"type:varchar(20);default:'none'" json:"ingestion_status"`
	IngestionWarning     string          `gorm:"type:text" json:"ingestion_warning,omitempty"`
	IngestionError       string          `gorm:"type:text" json:"ingestion_error,omitempty"`
	IngestionStartedAt   *time.Time      `json:"ingestion_started_at,omitempty"`
	IngestionCompletedAt *time.Time      `json:"ingestion_completed_at,omitempty"`

	// Relationships
	Course Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Pages  []DocumentPage `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
	Chunks []ContentChunk `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *CourseContent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
