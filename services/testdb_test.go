package services

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/classmate-ai/backend/model"
)

// openTestDB opens a throwaway SQLite database with the retrieval and video
// schema migrated. Postgres-only pieces (the tsv column, advisory locks) are
// skipped by the code under test based on the dialector name.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.CourseContent{},
		&model.DocumentPage{},
		&model.ContentChunk{},
		&model.VideoAsset{},
		&model.VideoChapter{},
		&model.TranscriptSegment{},
		&model.ChatConversation{},
		&model.ChatMessage{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func createTestCourse(t *testing.T, db *gorm.DB) *model.Course {
	t.Helper()

	course := model.Course{
		UserID: uuid.New(),
		Name:   "Algorithms 101",
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to create test course: %v", err)
	}
	return &course
}
