package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRole represents the role of the message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Citation points a generated answer back at the course material it came from.
// Extra carries the per-source-kind fields (pageStart/pageEnd, slideNo,
// startSec/endSec) so the contract doesn't change as source kinds grow.
type Citation struct {
	ContentID string                 `json:"content_id,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Snippet   string                 `json:"snippet,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Citations is a custom type for storing citation data as JSONB
type Citations []Citation

// Scan implements the sql.Scanner interface for reading from database
func (c *Citations) Scan(value interface{}) error {
	if value == nil {
		*c = Citations{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, isStr := value.(string); isStr {
			bytes = []byte(s)
		} else {
			return errors.New("failed to unmarshal Citations value")
		}
	}

	if len(bytes) == 0 {
		*c = Citations{}
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// Value implements the driver.Valuer interface for writing to database
func (c Citations) Value() (driver.Value, error) {
	if len(c) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// ChatConversation groups messages within a single course
type ChatConversation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Title         string         `gorm:"type:varchar(255)" json:"title,omitempty"`
	LastMessageAt *time.Time     `gorm:"index" json:"last_message_at,omitempty"`

	// Relationships
	Course   Course        `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []ChatMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *ChatConversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ChatMessage is one turn in a conversation
type ChatMessage struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role           MessageRole `gorm:"type:varchar(20);not null" json:"role"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Citations      Citations   `gorm:"type:jsonb" json:"citations,omitempty"`

	Conversation ChatConversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
