package pickups

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vatavaran/vatavaran-backend/internal/rewards"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
)

// Repository persists pickups. It never checks authorization or whether the
// current status allows a mutation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, input CreatePickupInput) (*models.Pickup, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pickup, error)
	List(ctx context.Context, params ListParams) ([]models.Pickup, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdatePickupFields) (*models.Pickup, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.PickupStatus, to enums.PickupStatus, reviewer uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a pickups repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, input CreatePickupInput) (*models.Pickup, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	pickup := &models.Pickup{
		OwnerID:   input.OwnerID,
		Category:  input.Category,
		WeightKg:  input.WeightKg,
		CO2Saved:  rewards.CO2Saved(input.Category, input.WeightKg),
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		ImageURL:  input.ImageURL,
		Status:    enums.PickupStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(pickup).Error; err != nil {
		return nil, err
	}
	return pickup, nil
}

func validateCreate(input CreatePickupInput) error {
	switch {
	case input.OwnerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	case input.Category == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case !validWeight(input.WeightKg):
		return pkgerrors.New(pkgerrors.CodeValidation, "weightKg must be greater than zero")
	case input.Latitude == nil || input.Longitude == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	return nil
}

// validWeight rejects zero, negative, NaN and infinite weights.
func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 1)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	var pickup models.Pickup
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&pickup).Error; err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	var pickup models.Pickup
	query := r.db.WithContext(ctx)
	// sqlite has no row locks; it serializes writers on the whole database.
	if r.db.Dialector != nil && r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Where("id = ?", id).Take(&pickup).Error
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Pickup, int64, error) {
	page := params.Page.Normalize()

	var total int64
	if err := r.filtered(ctx, params.Filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	field := params.Sort.Field
	if field == "" {
		field = SortCreatedAt
	}
	var items []models.Pickup
	err := r.filtered(ctx, params.Filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(field)}, Desc: !params.Sort.Asc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: !params.Sort.Asc}).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Pickup{})
	if f.OwnerID != nil {
		query = query.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.Category != nil {
		query = query.Where("category = ?", *f.Category)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		query = query.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	return query
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields UpdatePickupFields) (*models.Pickup, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fields.empty() {
		return current, nil
	}

	updates := map[string]any{}
	category, weight := current.Category, current.WeightKg
	if fields.Category != nil {
		if *fields.Category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category must not be empty")
		}
		category = *fields.Category
		updates["category"] = category
	}
	if fields.WeightKg != nil {
		if !validWeight(*fields.WeightKg) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "weightKg must be greater than zero")
		}
		weight = *fields.WeightKg
		updates["weight_kg"] = weight
	}
	if fields.Category != nil || fields.WeightKg != nil {
		updates["co2_saved"] = rewards.CO2Saved(category, weight)
	}
	if fields.Latitude != nil {
		updates["latitude"] = *fields.Latitude
	}
	if fields.Longitude != nil {
		updates["longitude"] = *fields.Longitude
	}
	if fields.ImageURL != nil {
		updates["image_url"] = *fields.ImageURL
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	updates["updated_at"] = time.Now().UTC()

	if err := r.db.WithContext(ctx).Model(&models.Pickup{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// TransitionStatus moves the pickup to `to` only if its status is still one
// of `from`. It reports false when another writer got there first.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.PickupStatus, to enums.PickupStatus, reviewer uuid.UUID, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition requires at least one source status")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"reviewed_by": reviewer,
			"reviewed_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Pickup{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
