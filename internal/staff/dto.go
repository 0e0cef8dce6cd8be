package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// StaffDTO is the transport shape that omits the password hash.
type StaffDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         enums.Role `json:"role"`
	RewardPoints int64      `json:"rewardPoints"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CreditDTO is one entry of a staff member's credit history.
type CreditDTO struct {
	PickupID     uuid.UUID `json:"pickupId"`
	Points       int64     `json:"points"`
	BalanceAfter int64     `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProfileDTO is returned by the current-staff endpoint.
type ProfileDTO struct {
	StaffDTO
	RecentCredits []CreditDTO `json:"recentCredits"`
}

// CreateStaffInput holds the data required to onboard a staff member.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     enums.Role
}

// CreateStaffRequest is the admin request body for creating staff with a role.
type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
}

func FromModel(m *models.Staff) *StaffDTO {
	if m == nil {
		return nil
	}
	return &StaffDTO{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Role:         m.Role,
		RewardPoints: m.RewardPoints,
		CreatedAt:    m.CreatedAt,
	}
}

func creditsFromModels(rows []models.RewardCredit) []CreditDTO {
	out := make([]CreditDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CreditDTO{
			PickupID:     row.PickupID,
			Points:       row.Points,
			BalanceAfter: row.BalanceAfter,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}
