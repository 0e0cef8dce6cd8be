package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// Pickup is one waste-collection submission. OwnerID never changes and
// CO2Saved is always derived from Category and WeightKg.
type Pickup struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	Category   enums.WasteCategory `gorm:"column:category;type:text;not null"`
	WeightKg   float64             `gorm:"column:weight_kg;type:numeric(10,3);not null"`
	CO2Saved   float64             `gorm:"column:co2_saved;type:numeric(12,3);not null"`
	Latitude   float64             `gorm:"column:latitude;not null"`
	Longitude  float64             `gorm:"column:longitude;not null"`
	ImageURL   *string             `gorm:"column:image_url"`
	Status     enums.PickupStatus  `gorm:"column:status;type:text;not null;default:PENDING"`
	ReviewedBy *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time          `gorm:"column:reviewed_at"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Pickup) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
