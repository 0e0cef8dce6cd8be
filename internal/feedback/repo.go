package feedback

import (
	"context"

	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

// Repository persists contact messages and improvement suggestions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateContact(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *Repository) CreateSuggestion(ctx context.Context, s *models.ImprovementSuggestion) (*models.ImprovementSuggestion, error) {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListContacts returns one page of messages, newest first.
func (r *Repository) ListContacts(ctx context.Context, page pagination.Params) ([]models.ContactMessage, int64, error) {
	var (
		rows  []models.ContactMessage
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	n := page.Normalize()
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(n.PageSize).Offset(n.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListSuggestions returns one page of suggestions, newest first, optionally
// narrowed to a priority.
func (r *Repository) ListSuggestions(ctx context.Context, priority string, page pagination.Params) ([]models.ImprovementSuggestion, int64, error) {
	var (
		rows  []models.ImprovementSuggestion
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.ImprovementSuggestion{})
	if priority != "" {
		q = q.Where("priority = ?", priority)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	n := page.Normalize()
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(n.PageSize).Offset(n.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
