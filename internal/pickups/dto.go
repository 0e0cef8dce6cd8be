package pickups

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

// Location is a latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PickupDTO is the transport shape of a pickup.
type PickupDTO struct {
	ID         uuid.UUID           `json:"id"`
	OwnerID    uuid.UUID           `json:"ownerId"`
	Category   enums.WasteCategory `json:"category"`
	WeightKg   float64             `json:"weightKg"`
	CO2Saved   float64             `json:"co2Saved"`
	Location   Location            `json:"location"`
	ImageURL   *string             `json:"imageUrl,omitempty"`
	Status     enums.PickupStatus  `json:"status"`
	ReviewedBy *uuid.UUID          `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time          `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func FromModel(p *models.Pickup) *PickupDTO {
	if p == nil {
		return nil
	}
	return &PickupDTO{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Category:   p.Category,
		WeightKg:   p.WeightKg,
		CO2Saved:   p.CO2Saved,
		Location:   Location{Latitude: p.Latitude, Longitude: p.Longitude},
		ImageURL:   p.ImageURL,
		Status:     p.Status,
		ReviewedBy: p.ReviewedBy,
		ReviewedAt: p.ReviewedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// CreatePickupInput is the persistence payload for a new pickup.
type CreatePickupInput struct {
	OwnerID   uuid.UUID
	Category  enums.WasteCategory
	WeightKg  float64
	Latitude  *float64
	Longitude *float64
	ImageURL  *string
}

// UpdatePickupFields carries a partial update. Nil fields are left untouched.
type UpdatePickupFields struct {
	Category  *enums.WasteCategory
	WeightKg  *float64
	Latitude  *float64
	Longitude *float64
	ImageURL  *string
	Status    *enums.PickupStatus
}

func (f UpdatePickupFields) empty() bool {
	return f.Category == nil && f.WeightKg == nil && f.Latitude == nil &&
		f.Longitude == nil && f.ImageURL == nil && f.Status == nil
}

// ListFilter narrows a pickup listing. All supplied predicates must match.
type ListFilter struct {
	OwnerID  *uuid.UUID
	Status   *enums.PickupStatus
	Category *enums.WasteCategory
	From     *time.Time
	To       *time.Time
	Search   string
}

// SortField names a sortable pickup column.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortWeightKg  SortField = "weight_kg"
	SortCO2Saved  SortField = "co2_saved"
	SortCategory  SortField = "category"
	SortStatus    SortField = "status"
)

var sortAliases = map[string]SortField{
	"created_at": SortCreatedAt,
	"createdat":  SortCreatedAt,
	"updated_at": SortUpdatedAt,
	"updatedat":  SortUpdatedAt,
	"weight_kg":  SortWeightKg,
	"weightkg":   SortWeightKg,
	"weight":     SortWeightKg,
	"co2_saved":  SortCO2Saved,
	"co2saved":   SortCO2Saved,
	"category":   SortCategory,
	"status":     SortStatus,
}

// ParseSortField resolves user input to a whitelisted column. Unknown values
// report false.
func ParseSortField(value string) (SortField, bool) {
	if value == "" {
		return SortCreatedAt, true
	}
	field, ok := sortAliases[normalizeKey(value)]
	return field, ok
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Sort orders a listing; the zero value is created_at descending.
type Sort struct {
	Field SortField
	Asc   bool
}

// ListParams is the full listing request understood by the repository.
type ListParams struct {
	Filter ListFilter
	Sort   Sort
	Page   pagination.Params
}

// ListQuery is what callers ask the lifecycle for. StaffID is an alias for
// the owner filter and is ignored for STAFF actors.
type ListQuery struct {
	Status   *enums.PickupStatus
	Category *enums.WasteCategory
	StaffID  *uuid.UUID
	From     *time.Time
	To       *time.Time
	Search   string
	Sort     Sort
	Page     pagination.Params
}

// ListResult is one page of pickups plus paging metadata.
type ListResult struct {
	Items      []PickupDTO     `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

// CreatePickupRequest is the lifecycle payload for createPickup. Category is
// free text; unknown labels become OTHER.
type CreatePickupRequest struct {
	Category  string
	WeightKg  float64
	Latitude  *float64
	Longitude *float64
	ImageURL  *string
}

// EditPickupRequest is the owner's partial edit.
type EditPickupRequest struct {
	Category  *string
	WeightKg  *float64
	Latitude  *float64
	Longitude *float64
	ImageURL  *string
}

// ReviewResult reports the transition outcome. Balance is set only when the
// review credited points.
type ReviewResult struct {
	Pickup        *PickupDTO `json:"pickup"`
	Balance       *int64     `json:"balance,omitempty"`
	PointsAwarded int64      `json:"pointsAwarded"`
	Changed       bool       `json:"changed"`
}
