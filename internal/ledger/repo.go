package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
)

// Repository persists staff reward balances and their credit audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IncrementPoints(ctx context.Context, staffID uuid.UUID, points int64) (int64, error)
	Balance(ctx context.Context, staffID uuid.UUID) (int64, error)
	InsertCredit(ctx context.Context, credit *models.RewardCredit) error
	FindCreditByPickup(ctx context.Context, pickupID uuid.UUID) (*models.RewardCredit, error)
	ListCredits(ctx context.Context, staffID uuid.UUID, limit int) ([]models.RewardCredit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a ledger repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// IncrementPoints adds points in a single UPDATE and reports the affected rows.
// Concurrent credits never overwrite each other because the database applies
// the addition.
func (r *repository) IncrementPoints(ctx context.Context, staffID uuid.UUID, points int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Staff{}).
		Where("id = ?", staffID).
		UpdateColumn("reward_points", gorm.Expr("reward_points + ?", points))
	return res.RowsAffected, res.Error
}

func (r *repository) Balance(ctx context.Context, staffID uuid.UUID) (int64, error) {
	var staff models.Staff
	err := r.db.WithContext(ctx).
		Select("reward_points").
		Where("id = ?", staffID).
		Take(&staff).Error
	if err != nil {
		return 0, err
	}
	return staff.RewardPoints, nil
}

func (r *repository) InsertCredit(ctx context.Context, credit *models.RewardCredit) error {
	return r.db.WithContext(ctx).Create(credit).Error
}

func (r *repository) FindCreditByPickup(ctx context.Context, pickupID uuid.UUID) (*models.RewardCredit, error) {
	var credit models.RewardCredit
	if err := r.db.WithContext(ctx).Where("pickup_id = ?", pickupID).Take(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *repository) ListCredits(ctx context.Context, staffID uuid.UUID, limit int) ([]models.RewardCredit, error) {
	var credits []models.RewardCredit
	query := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}
