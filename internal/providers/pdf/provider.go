// Package pdf renders printable receipts for settled invoices.
package pdf

import (
	"context"
	"fmt"
	"io"
)

type ReceiptLine struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}

type ReceiptData struct {
	BranchName    string
	BranchAddress string
	InvoiceNumber string
	InvoiceKind   string
	IssuedAt      string
	PaidAt        string
	ClientName    string

	Lines []ReceiptLine

	Total     string
	Paid      string
	Remaining string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
