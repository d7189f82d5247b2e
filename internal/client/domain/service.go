package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

type ListClientRequest struct {
	BranchID  string
	PageToken string
	PageSize  int32
	Name      string
	Phone     string
}

type ListClientFilter struct {
	Name  string
	Phone string
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	BranchID string
	Name     string
	Phone    string
	Email    string
}

type CreateWalkInRequest struct {
	BranchID string
	Name     string
	Phone    string
}

type GetClientRequest struct {
	BranchID string
	ID       string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	// CreateWalkIn inserts through tx so a walk-in created for a session
	// start rolls back together with the session.
	CreateWalkIn(ctx context.Context, tx *gorm.DB, req CreateWalkInRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	GetByID(context.Context, GetClientRequest) (Client, error)
}

var (
	ErrInvalidBranch = errors.New("invalid_branch")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPhone  = errors.New("invalid_phone")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
