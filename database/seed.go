package database

import (
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
	"github.com/classmate-ai/backend/utils/auth"
)

// RunSeeds creates a demo account with one course for local development.
// Credentials come from DEMO_EMAIL and DEMO_PASSWORD; when they are unset
// seeding is skipped entirely.
func RunSeeds(db *gorm.DB) error {
	email := os.Getenv("DEMO_EMAIL")
	password := os.Getenv("DEMO_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("DEMO_EMAIL / DEMO_PASSWORD not set, skipping demo user")
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		fmt.Printf("Demo user %s already exists, skipping\n", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for demo user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	user := model.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Demo User",
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	course := model.Course{
		UserID:      user.ID,
		Name:        "Sample Course",
		Description: "A starter course to try uploads, ingestion and chat against.",
	}
	if err := db.Create(&course).Error; err != nil {
		return fmt.Errorf("failed to create demo course: %w", err)
	}

	fmt.Printf("Created demo user %s with course %q\n", email, course.Name)
	return nil
}
