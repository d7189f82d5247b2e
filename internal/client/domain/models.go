package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Client struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID      `gorm:"not null;index" json:"branch_id"`
	Name      string            `gorm:"not null" json:"name"`
	Phone     string            `gorm:"not null" json:"phone"`
	Email     string            `gorm:"" json:"email,omitempty"`
	IsWalkIn  bool              `gorm:"not null;default:false" json:"is_walk_in"`
	Metadata  datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
