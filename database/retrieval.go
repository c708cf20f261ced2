package database

import (
	"log"

	"gorm.io/gorm"
)

// InitRetrievalLayer creates the Postgres-only pieces of the retrieval schema
// that AutoMigrate cannot express: a stored generated tsvector column over
// content_chunks.text and a GIN index for ranked full-text search.
//
// The tsv column is intentionally not part of the ContentChunk model so the
// model keeps working against SQLite in unit tests; on non-Postgres dialects
// this whole function is a no-op.
func InitRetrievalLayer(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	stmts := []string{
		`ALTER TABLE content_chunks
			ADD COLUMN IF NOT EXISTS tsv tsvector
			GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text, ''))) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_content_chunks_tsv
			ON content_chunks USING GIN (tsv)`,
		`CREATE INDEX IF NOT EXISTS idx_content_chunks_course_category
			ON content_chunks (course_id, category)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	log.Println("Retrieval layer (tsvector + GIN index) is ready.")
	return nil
}
