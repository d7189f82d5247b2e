package domain

import (
	"context"
	"errors"

	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

type CreateProductRequest struct {
	BranchID  string
	Name      string
	SKU       string
	UnitPrice int64
	Stock     int64
}

type UpdateProductRequest struct {
	BranchID  string
	ID        string
	Name      *string
	UnitPrice *int64
	Stock     *int64
	Active    *bool
}

type GetProductRequest struct {
	BranchID string
	ID       string
}

type ListProductRequest struct {
	BranchID  string
	PageToken string
	PageSize  int32
	Name      string
	OnlyActive bool
}

type ListProductFilter struct {
	Name       string
	OnlyActive bool
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	Update(context.Context, UpdateProductRequest) (Product, error)
	GetByID(context.Context, GetProductRequest) (Product, error)
	List(context.Context, ListProductRequest) (ListProductResponse, error)
}

var (
	ErrInvalidBranch     = errors.New("invalid_branch")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidStock      = errors.New("invalid_stock")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
