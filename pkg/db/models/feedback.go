package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// ContactMessage captures a public contact form submission.
type ContactMessage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Subject   string    `gorm:"column:subject;not null"`
	Message   string    `gorm:"column:message;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (m *ContactMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ImprovementSuggestion captures a public product-improvement suggestion.
type ImprovementSuggestion struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Name       string                   `gorm:"column:name;not null"`
	Email      string                   `gorm:"column:email;not null"`
	Category   string                   `gorm:"column:category;not null"`
	Priority   enums.SuggestionPriority `gorm:"column:priority;type:text;not null"`
	Suggestion string                   `gorm:"column:suggestion;not null"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (s *ImprovementSuggestion) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
