package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Product struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID `gorm:"not null;index" json:"branch_id"`
	Name      string       `gorm:"not null" json:"name"`
	SKU       string       `gorm:"" json:"sku,omitempty"`
	// UnitPrice is in minor currency units.
	UnitPrice int64     `gorm:"not null;default:0" json:"unit_price"`
	Stock     int64     `gorm:"not null;default:0" json:"stock"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
