package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	clientrepository "github.com/shaghafhq/shaghaf/internal/client/repository"
	clientservice "github.com/shaghafhq/shaghaf/internal/client/service"
	"github.com/shaghafhq/shaghaf/internal/clock"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	invoicerepository "github.com/shaghafhq/shaghaf/internal/invoice/repository"
	invoiceservice "github.com/shaghafhq/shaghaf/internal/invoice/service"
	"github.com/shaghafhq/shaghaf/internal/lock"
	"github.com/shaghafhq/shaghaf/internal/pricing"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	productrepository "github.com/shaghafhq/shaghaf/internal/product/repository"
	"github.com/shaghafhq/shaghaf/internal/providers/pdf"
	"github.com/shaghafhq/shaghaf/internal/session/domain"
	sessionrepository "github.com/shaghafhq/shaghaf/internal/session/repository"
)

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	svc      domain.Service
	invoices invoicedomain.Service
	products productdomain.Repository

	branchID string
}

var testStart = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&branchdomain.Branch{},
		&clientdomain.Client{},
		&productdomain.Product{},
		&domain.Session{},
		&domain.Individual{},
		&domain.SessionItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.PaymentPosting{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(testStart)

	clientSvc := clientservice.New(clientservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  clientrepository.Provide(),
	})
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  invoicerepository.Provide(),
		PDF:   pdf.New(),
	})
	productRepo := productrepository.Provide()

	branch := branchdomain.Branch{ID: node.Generate(), Name: "Main", Code: "main"}
	require.NoError(t, db.Create(&branch).Error)

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     sessionrepository.Provide(),
		Clients:  clientSvc,
		Products: productRepo,
		Pricing: pricing.NewStaticHolder(pricing.Policy{
			FirstHourRate:       4000,
			AdditionalHourRate:  3000,
			MaxAdditionalCharge: 10000,
		}),
		Invoices: invoiceSvc,
	})

	return &testEnv{
		db:       db,
		node:     node,
		clk:      clk,
		svc:      svc,
		invoices: invoiceSvc,
		products: productRepo,
		branchID: branch.ID.String(),
	}
}

func (e *testEnv) seedProduct(t *testing.T, name string, unitPrice, stock int64) productdomain.Product {
	t.Helper()
	product := productdomain.Product{
		ID:        e.node.Generate(),
		BranchID:  mustParse(t, e.branchID),
		Name:      name,
		UnitPrice: unitPrice,
		Stock:     stock,
		Active:    true,
	}
	require.NoError(t, e.db.Create(&product).Error)
	return product
}

func (e *testEnv) stockOf(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	var product productdomain.Product
	require.NoError(t, e.db.Where("id = ?", id).Take(&product).Error)
	return product.Stock
}

func (e *testEnv) start(t *testing.T, names ...string) domain.SessionView {
	t.Helper()
	view, err := e.svc.Start(context.Background(), domain.StartSessionRequest{
		BranchID:    e.branchID,
		WalkIn:      &domain.WalkInClient{Name: names[0], Phone: "0100000000"},
		Individuals: names,
	})
	require.NoError(t, err)
	return view
}

func mustParse(t *testing.T, raw string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(raw)
	require.NoError(t, err)
	return id
}

func TestStartSessionSnapshotsPolicy(t *testing.T) {
	env := newTestEnv(t)

	view := env.start(t, "Sara", "Omar")

	assert.Equal(t, domain.SessionStatusActive, view.Session.Status)
	assert.Equal(t, int64(4000), view.Session.FirstHourRate)
	assert.Equal(t, int64(3000), view.Session.AdditionalHourRate)
	assert.Equal(t, int64(10000), view.Session.MaxAdditionalCharge)
	require.Len(t, view.Session.Individuals, 2)
	assert.True(t, view.Session.Individuals[0].IsPrimary)
	assert.False(t, view.Session.Individuals[1].IsPrimary)

	// A walk-in client record is created and linked.
	var cl clientdomain.Client
	require.NoError(t, env.db.Where("id = ?", view.Session.ClientID).Take(&cl).Error)
	assert.True(t, cl.IsWalkIn)
	assert.Equal(t, "Sara", cl.Name)

	// Right after start the full first hour is already owed.
	assert.Equal(t, int64(8000), view.LiveTimeCost)
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Start(ctx, domain.StartSessionRequest{
		BranchID: env.branchID,
		WalkIn:   &domain.WalkInClient{Name: "Sara"},
	})
	assert.ErrorIs(t, err, domain.ErrNoIndividuals)

	_, err = env.svc.Start(ctx, domain.StartSessionRequest{
		BranchID:    env.branchID,
		Individuals: []string{"Sara"},
	})
	assert.ErrorIs(t, err, domain.ErrNoClient)
}

func TestStartSessionFailureLeavesNoWalkInClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Force the individuals insert to fail so the whole start transaction
	// rolls back.
	require.NoError(t, env.db.Migrator().DropTable(&domain.Individual{}))

	_, err := env.svc.Start(ctx, domain.StartSessionRequest{
		BranchID:    env.branchID,
		WalkIn:      &domain.WalkInClient{Name: "Sara", Phone: "0501234567"},
		Individuals: []string{"Sara"},
	})
	require.Error(t, err)

	var clients int64
	require.NoError(t, env.db.Model(&clientdomain.Client{}).Count(&clients).Error)
	assert.Zero(t, clients)

	var sessions int64
	require.NoError(t, env.db.Model(&domain.Session{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}

func TestCompleteSettlesTimeAndProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coffee := env.seedProduct(t, "Coffee", 1500, 10)

	view := env.start(t, "Sara", "Omar")
	sessionID := view.Session.ID.String()

	_, err := env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ProductID: coffee.ID.String(),
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), env.stockOf(t, coffee.ID))

	env.clk.Advance(time.Hour)

	inv, err := env.svc.Complete(ctx, domain.CompleteSessionRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
	})
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceKindSessionFull, inv.Kind)
	assert.Equal(t, int64(11000), inv.TotalAmount)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, invoicedomain.LineKindTime, inv.Items[0].Kind)
	assert.Equal(t, int64(8000), inv.Items[0].TotalPrice)
	assert.Equal(t, int64(3000), inv.Items[1].TotalPrice)

	// The ledger is closed: ended, linked to its invoice, frozen in time.
	after, err := env.svc.Get(ctx, domain.GetSessionRequest{BranchID: env.branchID, SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, after.Session.Status)
	require.NotNil(t, after.Session.FinalInvoiceID)
	assert.Equal(t, inv.ID, *after.Session.FinalInvoiceID)
	frozen := after.ElapsedSeconds
	env.clk.Advance(2 * time.Hour)
	again, err := env.svc.Get(ctx, domain.GetSessionRequest{BranchID: env.branchID, SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, frozen, again.ElapsedSeconds)

	// No further mutation is allowed.
	_, err = env.svc.Complete(ctx, domain.CompleteSessionRequest{BranchID: env.branchID, SessionID: sessionID})
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	_, err = env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ProductID: coffee.ID.String(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestAddItemInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	water := env.seedProduct(t, "Water", 500, 1)

	view := env.start(t, "Sara")

	_, err := env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: view.Session.ID.String(),
		ProductID: water.ID.String(),
		Quantity:  2,
	})
	assert.ErrorIs(t, err, productdomain.ErrInsufficientStock)

	assert.Equal(t, int64(1), env.stockOf(t, water.ID))
	after, err := env.svc.Get(ctx, domain.GetSessionRequest{BranchID: env.branchID, SessionID: view.Session.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, after.Session.Items)
}

func TestAddItemProceedsWhenStockLockUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coffee := env.seedProduct(t, "Coffee", 1500, 5)

	view := env.start(t, "Sara")

	// A locker pointing at a dead Redis must not block the sale; the
	// conditional decrement still guards the stock, and the miss is logged.
	core, logs := observer.New(zap.WarnLevel)
	svc := New(Params{
		DB:       env.db,
		Log:      zap.New(core),
		GenID:    env.node,
		Clock:    env.clk,
		Repo:     sessionrepository.Provide(),
		Products: env.products,
		Pricing: pricing.NewStaticHolder(pricing.Policy{
			FirstHourRate:       4000,
			AdditionalHourRate:  3000,
			MaxAdditionalCharge: 10000,
		}),
		Invoices: env.invoices,
		Locker:   lock.NewLocker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})),
	})

	after, err := svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: view.Session.ID.String(),
		ProductID: coffee.ID.String(),
		Quantity:  2,
	})
	require.NoError(t, err)
	require.Len(t, after.Session.Items, 1)
	assert.Equal(t, int64(3), env.stockOf(t, coffee.ID))
	assert.Equal(t, 1, logs.FilterMessage("stock lock unavailable").Len())
}

func TestRemoveItemRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coffee := env.seedProduct(t, "Coffee", 1500, 5)

	view := env.start(t, "Sara")
	sessionID := view.Session.ID.String()

	added, err := env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ProductID: coffee.ID.String(),
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.stockOf(t, coffee.ID))

	_, err = env.svc.RemoveItem(ctx, domain.RemoveItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ItemID:    added.Session.Items[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), env.stockOf(t, coffee.ID))
}

func TestUpdateItemAdjustsStockByDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coffee := env.seedProduct(t, "Coffee", 1500, 4)

	view := env.start(t, "Sara")
	sessionID := view.Session.ID.String()

	added, err := env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ProductID: coffee.ID.String(),
		Quantity:  2,
	})
	require.NoError(t, err)
	itemID := added.Session.Items[0].ID.String()

	qty := int64(3)
	updated, err := env.svc.UpdateItem(ctx, domain.UpdateItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  &qty,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.stockOf(t, coffee.ID))
	assert.Equal(t, int64(4500), updated.Session.Items[0].TotalPrice)

	qty = 1
	_, err = env.svc.UpdateItem(ctx, domain.UpdateItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  &qty,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.stockOf(t, coffee.ID))

	qty = 100
	_, err = env.svc.UpdateItem(ctx, domain.UpdateItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  &qty,
	})
	assert.ErrorIs(t, err, productdomain.ErrInsufficientStock)
	assert.Equal(t, int64(3), env.stockOf(t, coffee.ID))
}

func TestPartialExitSettlesSubgroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coffee := env.seedProduct(t, "Coffee", 1500, 10)

	view := env.start(t, "Sara", "Omar", "Nour")
	sessionID := view.Session.ID.String()

	added, err := env.svc.AddItem(ctx, domain.AddItemRequest{
		BranchID:  env.branchID,
		SessionID: sessionID,
		ProductID: coffee.ID.String(),
		Quantity:  3,
	})
	require.NoError(t, err)
	itemID := added.Session.Items[0].ID.String()

	env.clk.Advance(90 * time.Minute)

	exiting := view.Session.Individuals[2]
	inv, err := env.svc.PartialExit(ctx, domain.PartialExitRequest{
		BranchID:       env.branchID,
		SessionID:      sessionID,
		IndividualIDs:  []string{exiting.ID.String()},
		ItemQuantities: map[string]int64{itemID: 1},
	})
	require.NoError(t, err)

	// One person, 90 minutes: first hour plus one block, plus one coffee.
	assert.Equal(t, invoicedomain.InvoiceKindSessionPartial, inv.Kind)
	assert.Equal(t, int64(7000+1500), inv.TotalAmount)

	after, err := env.svc.Get(ctx, domain.GetSessionRequest{BranchID: env.branchID, SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, after.Session.Status)
	assert.Equal(t, 2, after.Session.Headcount())
	require.Len(t, after.Session.Items, 1)
	assert.Equal(t, int64(2), after.Session.Items[0].Quantity)
	assert.Equal(t, int64(3000), after.Session.Items[0].TotalPrice)

	// Stock was consumed at AddItem time; exits never touch it.
	assert.Equal(t, int64(7), env.stockOf(t, coffee.ID))

	// Completing afterwards bills the remaining two for the whole stay.
	inv2, err := env.svc.Complete(ctx, domain.CompleteSessionRequest{BranchID: env.branchID, SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, int64(2*4000+2*3000+3000), inv2.TotalAmount)
}

func TestPartialExitRejectsFullGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := env.start(t, "Sara", "Omar")
	ids := []string{
		view.Session.Individuals[0].ID.String(),
		view.Session.Individuals[1].ID.String(),
	}

	_, err := env.svc.PartialExit(ctx, domain.PartialExitRequest{
		BranchID:      env.branchID,
		SessionID:     view.Session.ID.String(),
		IndividualIDs: ids,
	})
	assert.ErrorIs(t, err, domain.ErrFullExitRequired)

	_, err = env.svc.PartialExit(ctx, domain.PartialExitRequest{
		BranchID:      env.branchID,
		SessionID:     view.Session.ID.String(),
		IndividualIDs: []string{env.node.Generate().String()},
	})
	assert.ErrorIs(t, err, domain.ErrIndividualNotFound)
}

func TestAddIndividualsGrowsHeadcount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := env.start(t, "Sara")
	env.clk.Advance(30 * time.Minute)

	after, err := env.svc.AddIndividuals(ctx, domain.AddIndividualsRequest{
		BranchID:  env.branchID,
		SessionID: view.Session.ID.String(),
		Names:     []string{"Omar", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, after.Session.Headcount())
	assert.False(t, after.Session.Individuals[1].IsPrimary)

	// Late joiners are billed from session start, not from joining.
	assert.Equal(t, int64(8000), after.LiveTimeCost)
}

func TestListActiveExcludesCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.start(t, "Sara")
	env.start(t, "Omar")

	_, err := env.svc.Complete(ctx, domain.CompleteSessionRequest{
		BranchID:  env.branchID,
		SessionID: first.Session.ID.String(),
	})
	require.NoError(t, err)

	views, err := env.svc.ListActive(ctx, env.branchID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Omar", views[0].Session.Individuals[0].Name)
}

func TestListActiveOrdersGroupByJoinTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := env.start(t, "Sara", "Omar")

	env.clk.Advance(20 * time.Minute)
	_, err := env.svc.AddIndividuals(ctx, domain.AddIndividualsRequest{
		BranchID:  env.branchID,
		SessionID: view.Session.ID.String(),
		Names:     []string{"Lina"},
	})
	require.NoError(t, err)

	views, err := env.svc.ListActive(ctx, env.branchID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	require.Len(t, views[0].Session.Individuals, 3)
	names := make([]string, 0, 3)
	for _, ind := range views[0].Session.Individuals {
		names = append(names, ind.Name)
	}
	assert.Equal(t, []string{"Sara", "Omar", "Lina"}, names)
	assert.True(t, views[0].Session.Individuals[0].IsPrimary)
}
