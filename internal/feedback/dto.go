package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

type ContactRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type SuggestionRequest struct {
	Name       string `json:"name" validate:"required,notblank"`
	Email      string `json:"email" validate:"required,email"`
	Category   string `json:"category" validate:"required"`
	Priority   string `json:"priority" validate:"required"`
	Suggestion string `json:"suggestion" validate:"required"`
}

type ContactDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type SuggestionDTO struct {
	ID         uuid.UUID                `json:"id"`
	Name       string                   `json:"name"`
	Email      string                   `json:"email"`
	Category   string                   `json:"category"`
	Priority   enums.SuggestionPriority `json:"priority"`
	Suggestion string                   `json:"suggestion"`
	CreatedAt  time.Time                `json:"createdAt"`
}

type ContactList struct {
	Items      []ContactDTO    `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

type SuggestionList struct {
	Items      []SuggestionDTO `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

func contactFromModel(m models.ContactMessage) ContactDTO {
	return ContactDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

func suggestionFromModel(m models.ImprovementSuggestion) SuggestionDTO {
	return SuggestionDTO{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Category:   m.Category,
		Priority:   m.Priority,
		Suggestion: m.Suggestion,
		CreatedAt:  m.CreatedAt,
	}
}
