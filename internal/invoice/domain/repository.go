package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

type ListInvoiceFilter struct {
	SessionID snowflake.ID
	Status    InvoiceStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// FindByID loads the invoice with its items and postings.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	InsertPosting(ctx context.Context, db *gorm.DB, posting *PaymentPosting) error
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice) error
}
