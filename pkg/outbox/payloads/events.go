package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// PickupCreatedEvent signals a new PENDING submission.
type PickupCreatedEvent struct {
	PickupID uuid.UUID           `json:"pickupId"`
	OwnerID  uuid.UUID           `json:"ownerId"`
	Category enums.WasteCategory `json:"category"`
	WeightKg float64             `json:"weightKg"`
	CO2Saved float64             `json:"co2Saved"`
}

// PickupReviewedEvent is emitted when a reviewer changes a pickup's status.
type PickupReviewedEvent struct {
	PickupID       uuid.UUID          `json:"pickupId"`
	OwnerID        uuid.UUID          `json:"ownerId"`
	ReviewerID     uuid.UUID          `json:"reviewerId"`
	PreviousStatus enums.PickupStatus `json:"previousStatus"`
	Status         enums.PickupStatus `json:"status"`
	ReviewedAt     time.Time          `json:"reviewedAt"`
}

// RewardCreditedEvent carries the balance change produced by an approval.
type RewardCreditedEvent struct {
	PickupID     uuid.UUID `json:"pickupId"`
	StaffID      uuid.UUID `json:"staffId"`
	Points       int64     `json:"points"`
	BalanceAfter int64     `json:"balanceAfter"`
}
