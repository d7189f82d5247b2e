package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Branch struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Address   string       `gorm:"" json:"address,omitempty"`
	Phone     string       `gorm:"" json:"phone,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Branch) TableName() string { return "branches" }

type CreateBranchRequest struct {
	Name    string
	Address string
	Phone   string
}

type Service interface {
	Create(context.Context, CreateBranchRequest) (Branch, error)
	List(context.Context) ([]Branch, error)
	GetByID(ctx context.Context, id string) (Branch, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
	ErrDuplicate   = errors.New("duplicate_code")
)
