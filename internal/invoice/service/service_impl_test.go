package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	"github.com/shaghafhq/shaghaf/internal/clock"
	"github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/invoice/repository"
	"github.com/shaghafhq/shaghaf/internal/providers/pdf"
)

var testIssuedAt = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&branchdomain.Branch{},
		&clientdomain.Client{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.PaymentPosting{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(testIssuedAt)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
		PDF:   pdf.New(),
	})
	return svc, db, node, clk
}

func finalizeTestInvoice(t *testing.T, svc domain.Service, db *gorm.DB, node *snowflake.Node, total int64) *domain.Invoice {
	t.Helper()

	var invoice *domain.Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = svc.Finalize(context.Background(), tx, domain.FinalizeRequest{
			BranchID:    node.Generate(),
			SessionID:   node.Generate(),
			ClientID:    node.Generate(),
			Kind:        domain.InvoiceKindSessionFull,
			TotalAmount: total,
			Items: []domain.FinalizeItem{
				{Kind: domain.LineKindTime, Description: "Time charge (2 persons, 60 min)", Quantity: 2, UnitPrice: total / 2, TotalPrice: total},
			},
		})
		return err
	})
	require.NoError(t, err)
	return invoice
}

func TestFinalizeCopiesSettlementVerbatim(t *testing.T) {
	svc, db, node, _ := newTestService(t)

	// The settlement's numbers go onto the invoice untouched, even when a
	// line's quantity and unit price do not multiply back to its total.
	var invoice *domain.Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = svc.Finalize(context.Background(), tx, domain.FinalizeRequest{
			BranchID:    node.Generate(),
			SessionID:   node.Generate(),
			ClientID:    node.Generate(),
			Kind:        domain.InvoiceKindSessionPartial,
			TotalAmount: 12500,
			Items: []domain.FinalizeItem{
				{Kind: domain.LineKindTime, Description: "Time charge (3 persons, 95 min)", Quantity: 3, UnitPrice: 3666, TotalPrice: 11000},
				{Kind: domain.LineKindProduct, Description: "Latte", Quantity: 1, UnitPrice: 1500, TotalPrice: 1500},
			},
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12500), invoice.TotalAmount)
	assert.Equal(t, domain.InvoiceStatusPending, invoice.Status)
	assert.True(t, strings.HasPrefix(invoice.Number, "INV-"))
	assert.Equal(t, testIssuedAt, invoice.IssuedAt)

	stored, err := svc.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, int64(11000), stored.Items[0].TotalPrice)
	assert.Equal(t, int64(3666), stored.Items[0].UnitPrice)
}

func TestFinalizeValidation(t *testing.T) {
	svc, db, node, _ := newTestService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Finalize(context.Background(), tx, domain.FinalizeRequest{
			BranchID: node.Generate(),
			Kind:     "RANDOM",
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Finalize(context.Background(), tx, domain.FinalizeRequest{
			BranchID: node.Generate(),
			Kind:     domain.InvoiceKindSessionFull,
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrEmptyInvoice)
}

func TestApplyPaymentLifecycle(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	ctx := context.Background()
	invoice := finalizeTestInvoice(t, svc, db, node, 10000)

	partial, err := svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{
		Method: domain.PaymentMethodCash,
		Amount: 4000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, partial.Status)
	assert.Equal(t, int64(6000), partial.RemainingBalance())
	assert.Nil(t, partial.PaidAt)

	clk.Advance(5 * time.Minute)
	paid, err := svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{
		Method:         domain.PaymentMethodCard,
		Amount:         6000,
		TransactionRef: "pos-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, int64(0), paid.RemainingBalance())
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, testIssuedAt.Add(5*time.Minute), *paid.PaidAt)
	require.Len(t, paid.Postings, 2)
}

func TestApplyPaymentOverpaymentAllowed(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()
	invoice := finalizeTestInvoice(t, svc, db, node, 5000)

	paid, err := svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{
		Method: domain.PaymentMethodWallet,
		Amount: 7000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, int64(-2000), paid.RemainingBalance())
}

func TestApplyPaymentValidation(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()
	invoice := finalizeTestInvoice(t, svc, db, node, 5000)

	_, err := svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{Method: "CHEQUE", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	_, err = svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{Method: domain.PaymentMethodCash, Amount: -100})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.ApplyPayment(ctx, node.Generate(), domain.ApplyPaymentRequest{Method: domain.PaymentMethodCash, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestApplyPaymentZeroAmountIsNoOp(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()
	invoice := finalizeTestInvoice(t, svc, db, node, 5000)

	posted, err := svc.ApplyPayment(ctx, invoice.ID, domain.ApplyPaymentRequest{
		Method: domain.PaymentMethodCash,
		Amount: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, posted.Status)
	assert.Equal(t, int64(5000), posted.RemainingBalance())
	require.Len(t, posted.Postings, 1)
	assert.Equal(t, int64(0), posted.Postings[0].Amount)
}

func TestListFiltersBySession(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()

	branchID := node.Generate()
	sessionA := node.Generate()
	sessionB := node.Generate()

	for i, sessionID := range []snowflake.ID{sessionA, sessionA, sessionB} {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Finalize(ctx, tx, domain.FinalizeRequest{
				BranchID:    branchID,
				SessionID:   sessionID,
				ClientID:    node.Generate(),
				Kind:        domain.InvoiceKindSessionPartial,
				TotalAmount: int64(1000 * (i + 1)),
				Items: []domain.FinalizeItem{
					{Kind: domain.LineKindTime, Description: "Time charge", Quantity: 1, UnitPrice: 1000, TotalPrice: int64(1000 * (i + 1))},
				},
			})
			return err
		})
		require.NoError(t, err)
	}

	invoices, pageInfo, err := svc.List(ctx, domain.ListInvoiceRequest{
		BranchID:  branchID,
		SessionID: sessionA,
	})
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
	assert.False(t, pageInfo.HasMore)

	invoices, _, err = svc.List(ctx, domain.ListInvoiceRequest{BranchID: branchID})
	require.NoError(t, err)
	assert.Len(t, invoices, 3)
}

func TestReceiptRendersPDF(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	invoice := finalizeTestInvoice(t, svc, db, node, 8000)

	doc, err := svc.Receipt(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.True(t, len(doc) > 0)
	assert.Equal(t, "%PDF", string(doc[:4]))
}
