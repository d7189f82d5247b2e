// Package domain contains invoice and payment posting models. An invoice is
// an immutable snapshot of a settlement; only payment postings and the
// derived status change after creation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

type InvoiceKind string

const (
	// InvoiceKindSessionFull is issued when a session completes.
	InvoiceKindSessionFull InvoiceKind = "SESSION_FULL"
	// InvoiceKindSessionPartial is issued for a partial exit; it is a real
	// invoice of its own, never merged into the final one.
	InvoiceKindSessionPartial InvoiceKind = "SESSION_PARTIAL"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

type Invoice struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID  `gorm:"not null;index" json:"branch_id"`
	SessionID snowflake.ID  `gorm:"not null;index" json:"session_id"`
	ClientID  snowflake.ID  `gorm:"not null;index" json:"client_id"`
	Number    string        `gorm:"not null;uniqueIndex" json:"number"`
	Kind      InvoiceKind   `gorm:"type:text;not null" json:"kind"`
	Status    InvoiceStatus `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	// TotalAmount is copied from the settlement result, never recomputed.
	TotalAmount int64      `gorm:"not null" json:"total_amount"`
	IssuedAt    time.Time  `gorm:"not null" json:"issued_at"`
	PaidAt      *time.Time `gorm:"" json:"paid_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items    []InvoiceItem    `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Postings []PaymentPosting `gorm:"foreignKey:InvoiceID" json:"postings,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

type LineKind string

const (
	LineKindTime    LineKind = "time"
	LineKindProduct LineKind = "product"
)

type InvoiceItem struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID    snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Kind         LineKind     `gorm:"type:text;not null" json:"kind"`
	Description  string       `gorm:"not null" json:"description"`
	Quantity     int64        `gorm:"not null" json:"quantity"`
	UnitPrice    int64        `gorm:"not null" json:"unit_price"`
	TotalPrice   int64        `gorm:"not null" json:"total_price"`
	AttributedTo string       `gorm:"" json:"attributed_to,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

type PaymentPosting struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID  `gorm:"not null;index" json:"invoice_id"`
	Method         PaymentMethod `gorm:"type:text;not null" json:"method"`
	Amount         int64         `gorm:"not null" json:"amount"`
	TransactionRef string        `gorm:"" json:"transaction_ref,omitempty"`
	ProcessedAt    time.Time     `gorm:"not null" json:"processed_at"`
}

func (PaymentPosting) TableName() string { return "payment_postings" }

// TotalPaid sums the loaded postings.
func (i *Invoice) TotalPaid() int64 {
	var paid int64
	for _, p := range i.Postings {
		paid += p.Amount
	}
	return paid
}

// RemainingBalance is negative when the invoice is overpaid.
func (i *Invoice) RemainingBalance() int64 {
	return i.TotalAmount - i.TotalPaid()
}
