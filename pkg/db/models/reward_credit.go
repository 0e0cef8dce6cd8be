package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardCredit is the append-only audit row written alongside every ledger
// increment. PickupID is unique: a pickup is credited at most once.
type RewardCredit struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PickupID     uuid.UUID `gorm:"column:pickup_id;type:uuid;not null;uniqueIndex:ux_reward_credits_pickup"`
	StaffID      uuid.UUID `gorm:"column:staff_id;type:uuid;not null;index"`
	Points       int64     `gorm:"column:points;not null"`
	BalanceAfter int64     `gorm:"column:balance_after;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *RewardCredit) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
