package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
)

// Outcome is the publisher's verdict on one claimed row. A nil Err means the
// row was published. Terminal rows get their attempt count raised to the
// relay's maximum so they are never claimed again.
type Outcome struct {
	ID       uuid.UUID
	Err      error
	Terminal bool
}

// BatchHandler publishes claimed rows and reports one Outcome per row it
// touched. Rows without an Outcome stay pending untouched.
type BatchHandler func(ctx context.Context, rows []models.OutboxEvent) []Outcome

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Insert writes through tx, never through the repository's own handle.
func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	return tx.Create(&event).Error
}

// Claim locks up to limit pending rows, oldest first, hands them to handle and
// records the outcomes in the same transaction. Rows locked by another relay
// are skipped. It returns how many rows were claimed.
func (r *Repository) Claim(ctx context.Context, limit, maxAttempts int, handle BatchHandler) (int, error) {
	var claimed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.OutboxEvent
		query := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published_at IS NULL")
		if maxAttempts > 0 {
			query = query.Where("attempt_count < ?", maxAttempts)
		}
		if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
			return err
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}
		for _, outcome := range handle(ctx, rows) {
			if err := r.record(tx, outcome, maxAttempts); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Repository) record(tx *gorm.DB, outcome Outcome, maxAttempts int) error {
	var updates map[string]any
	switch {
	case outcome.Err == nil:
		updates = map[string]any{"published_at": r.now().UTC(), "last_error": nil}
	case outcome.Terminal:
		updates = map[string]any{"last_error": outcome.Err.Error(), "attempt_count": maxAttempts}
	default:
		updates = map[string]any{"last_error": outcome.Err.Error(), "attempt_count": gorm.Expr("attempt_count + 1")}
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", outcome.ID).Updates(updates).Error
}

// ListByAggregate returns every row for one aggregate in emission order.
func (r *Repository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
