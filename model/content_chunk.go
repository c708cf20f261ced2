package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChunkMetadata is the citation/provenance bag stored on every chunk.
// Only one "shape" is populated per DocType:
//   - pdf:      PageStart/PageEnd (always equal; chunks never cross pages)
//   - slides:   PageStart/PageEnd/SlideNo
//   - segment:  StartSec/EndSec/LanguageCode
type ChunkMetadata struct {
	DocType           string  `json:"doc_type,omitempty"`
	SourceKind        string  `json:"source_kind,omitempty"`
	ContentID         string  `json:"content_id,omitempty"`
	CourseID          string  `json:"course_id,omitempty"`
	Category          string  `json:"category,omitempty"`
	OriginalFilename  string  `json:"original_filename,omitempty"`
	Title             string  `json:"title,omitempty"`
	PageStart         int     `json:"page_start,omitempty"`
	PageEnd           int     `json:"page_end,omitempty"`
	SlideNo           int     `json:"slide_no,omitempty"`
	StartSec          float64 `json:"start_sec,omitempty"`
	EndSec            float64 `json:"end_sec,omitempty"`
	LanguageCode      string  `json:"language_code,omitempty"`
	ChapterTitle      string  `json:"chapter_title,omitempty"`
	ExtractionWarning string  `json:"extraction_warning,omitempty"`
}

// ToJSON marshals the metadata into a JSONB column value
func (m ChunkMetadata) ToJSON() datatypes.JSON {
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

// ChunkMetadataFromJSON decodes a stored metadata column; a broken or empty
// value decodes to the zero bag rather than failing retrieval.
func ChunkMetadataFromJSON(raw datatypes.JSON) ChunkMetadata {
	var m ChunkMetadata
	if len(raw) == 0 {
		return m
	}
	_ = json.Unmarshal(raw, &m)
	return m
}

// ContentChunk is the unified retrieval unit for course-scoped RAG.
// This table is the single source of truth for retrieval:
//   - filter by course_id (always)
//   - filter by category (router-selected types)
//   - search via the generated tsvector column (created in database.Init,
//     Postgres only; deliberately absent from this struct so the model
//     stays portable to SQLite in tests)
type ContentChunk struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	ContentID uuid.UUID `gorm:"type:uuid;not null;index" json:"content_id"`

	// Denormalized from CourseContent for fast category filtering
	Category   ContentCategory `gorm:"type:varchar(64);not null" json:"category"`
	ChunkIndex int             `gorm:"not null" json:"chunk_index"` // contiguous from 0 per content_id
	Text       string          `gorm:"type:text;not null" json:"text"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb" json:"metadata"`

	// Relationships
	Content CourseContent `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *ContentChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
