package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrInvalidKind     = errors.New("invalid_invoice_kind")
	ErrInvalidAmount   = errors.New("invalid_payment_amount")
	ErrInvalidMethod   = errors.New("invalid_payment_method")
	ErrEmptyInvoice    = errors.New("invoice_has_no_items")
)

// FinalizeItem mirrors a settlement line. Amounts are carried verbatim into
// the invoice, the finalizer never re-derives them.
type FinalizeItem struct {
	Kind         LineKind
	Description  string
	Quantity     int64
	UnitPrice    int64
	TotalPrice   int64
	AttributedTo string
}

type FinalizeRequest struct {
	BranchID    snowflake.ID
	SessionID   snowflake.ID
	ClientID    snowflake.ID
	Kind        InvoiceKind
	TotalAmount int64
	Items       []FinalizeItem
}

type ApplyPaymentRequest struct {
	Method         PaymentMethod
	Amount         int64
	TransactionRef string
}

type ListInvoiceRequest struct {
	BranchID  snowflake.ID
	SessionID snowflake.ID
	Status    InvoiceStatus
	pagination.Pagination
}

type Service interface {
	// Finalize writes the invoice inside the caller's transaction so that
	// settlement side effects and invoice creation commit together.
	Finalize(ctx context.Context, tx *gorm.DB, req FinalizeRequest) (*Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, *pagination.PageInfo, error)
	ApplyPayment(ctx context.Context, id snowflake.ID, req ApplyPaymentRequest) (*Invoice, error)
	Receipt(ctx context.Context, id snowflake.ID) ([]byte, error)
}
