package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

// RagHit is one retrieved chunk with its relevance score
type RagHit struct {
	Text     string
	Metadata model.ChunkMetadata
	Score    float64
}

// RetrievalService runs course-scoped full-text search over content_chunks.
// It queries the generated tsv column set up in database.InitRetrievalLayer,
// so it only works against Postgres.
type RetrievalService struct {
	db *gorm.DB
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(db *gorm.DB) *RetrievalService {
	return &RetrievalService{db: db}
}

type chunkHitRow struct {
	ContentID uuid.UUID
	CourseID  uuid.UUID
	Category  string
	Text      string
	Metadata  datatypes.JSON
	CreatedAt time.Time
	Rank      float64
}

// Retrieve returns the topK best-matching chunks for a query within a course.
// A blank query or non-positive topK short-circuits to an empty result.
// Categories, when given, restrict the search to those content categories.
func (s *RetrievalService) Retrieve(ctx context.Context, courseID uuid.UUID, query string, topK int, categories []string) ([]RagHit, error) {
	q := strings.TrimSpace(query)
	if q == "" || topK <= 0 {
		return []RagHit{}, nil
	}

	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		if t := strings.TrimSpace(c); t != "" {
			cats = append(cats, t)
		}
	}

	sql := `
		SELECT content_id, course_id, category, text, metadata, created_at,
		       ts_rank(tsv, plainto_tsquery('simple', ?)) AS rank
		FROM content_chunks
		WHERE course_id = ?
		  AND tsv @@ plainto_tsquery('simple', ?)`
	args := []interface{}{q, courseID, q}

	if len(cats) > 0 {
		sql += ` AND category IN ?`
		args = append(args, cats)
	}

	sql += ` ORDER BY rank DESC, created_at DESC LIMIT ?`
	args = append(args, topK)

	var rows []chunkHitRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("chunk retrieval failed: %w", err)
	}

	hits := make([]RagHit, 0, len(rows))
	for _, row := range rows {
		meta := model.ChunkMetadataFromJSON(row.Metadata)
		// Guarantee the fields the citation layer depends on
		if meta.ContentID == "" {
			meta.ContentID = row.ContentID.String()
		}
		if meta.CourseID == "" {
			meta.CourseID = row.CourseID.String()
		}
		if meta.Category == "" {
			meta.Category = row.Category
		}
		hits = append(hits, RagHit{
			Text:     row.Text,
			Metadata: meta,
			Score:    row.Rank,
		})
	}
	return hits, nil
}
