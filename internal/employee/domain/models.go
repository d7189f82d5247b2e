package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Employee struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID `gorm:"not null;index" json:"branch_id"`
	Name      string       `gorm:"not null" json:"name"`
	Role      string       `gorm:"not null" json:"role"`
	Phone     string       `gorm:"" json:"phone,omitempty"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Employee) TableName() string { return "employees" }

type CreateEmployeeRequest struct {
	BranchID string
	Name     string
	Role     string
	Phone    string
}

type UpdateEmployeeRequest struct {
	BranchID string
	ID       string
	Name     *string
	Role     *string
	Phone    *string
	Active   *bool
}

type Service interface {
	Create(context.Context, CreateEmployeeRequest) (Employee, error)
	Update(context.Context, UpdateEmployeeRequest) (Employee, error)
	List(ctx context.Context, branchID string) ([]Employee, error)
	GetByID(ctx context.Context, branchID, id string) (Employee, error)
}

var (
	ErrInvalidBranch = errors.New("invalid_branch")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
