package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course represents a single course owned by a user (e.g., "Linear Algebra I")
type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`

	// Relationships
	User          User               `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Contents      []CourseContent    `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"contents,omitempty"`
	VideoAssets   []VideoAsset       `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Conversations []ChatConversation `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
