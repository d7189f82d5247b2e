package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	"github.com/shaghafhq/shaghaf/internal/clock"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/lock"
	"github.com/shaghafhq/shaghaf/internal/observability/logger"
	"github.com/shaghafhq/shaghaf/internal/observability/metrics"
	"github.com/shaghafhq/shaghaf/internal/pricing"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	"github.com/shaghafhq/shaghaf/internal/session/domain"
	"github.com/shaghafhq/shaghaf/internal/session/settlement"
)

const stockLockTTL = 5 * time.Second

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Clients  clientdomain.Service
	Products productdomain.Repository
	Pricing  *pricing.Holder
	Invoices invoicedomain.Service
	Locker   *lock.Locker     `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	clients  clientdomain.Service
	products productdomain.Repository
	pricing  *pricing.Holder
	invoices invoicedomain.Service
	locker   *lock.Locker
	metrics  *metrics.Metrics

	// sessionMu serializes all mutations of one session. The map is never
	// pruned; entries are two words each and sessions are short-lived.
	sessionMu sync.Map
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("session.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		clients:  p.Clients,
		products: p.Products,
		pricing:  p.Pricing,
		invoices: p.Invoices,
		locker:   p.Locker,
		metrics:  p.Metrics,
	}
}

func (s *Service) lockSession(id snowflake.ID) func() {
	v, _ := s.sessionMu.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) Start(ctx context.Context, req domain.StartSessionRequest) (domain.SessionView, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidBranch
	}

	names := make([]string, 0, len(req.Individuals))
	for _, name := range req.Individuals {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return domain.SessionView{}, domain.ErrNoIndividuals
	}

	var client clientdomain.Client
	if req.ClientID != "" {
		client, err = s.clients.GetByID(ctx, clientdomain.GetClientRequest{
			BranchID: req.BranchID,
			ID:       req.ClientID,
		})
		if err != nil {
			return domain.SessionView{}, err
		}
	} else if req.WalkIn == nil {
		return domain.SessionView{}, domain.ErrNoClient
	}

	now := s.clock.Now()
	policy := s.pricing.Get()
	session := &domain.Session{
		ID:                  s.genID.Generate(),
		BranchID:            branchID,
		ClientID:            client.ID,
		Status:              domain.SessionStatusActive,
		FirstHourRate:       policy.FirstHourRate,
		AdditionalHourRate:  policy.AdditionalHourRate,
		MaxAdditionalCharge: policy.MaxAdditionalCharge,
		StartedAt:           now,
	}
	for i, name := range names {
		session.Individuals = append(session.Individuals, domain.Individual{
			ID:        s.genID.Generate(),
			SessionID: session.ID,
			Name:      name,
			IsPrimary: i == 0,
			JoinedAt:  now,
		})
	}

	// The walk-in client row shares the session transaction so a failed
	// insert leaves no orphan client behind.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ClientID == "" {
			client, err = s.clients.CreateWalkIn(ctx, tx, clientdomain.CreateWalkInRequest{
				BranchID: req.BranchID,
				Name:     req.WalkIn.Name,
				Phone:    req.WalkIn.Phone,
			})
			if err != nil {
				return err
			}
			session.ClientID = client.ID
		}

		individuals := session.Individuals
		session.Individuals = nil
		if err := s.repo.InsertSession(ctx, tx, session); err != nil {
			return err
		}
		session.Individuals = individuals
		return s.repo.InsertIndividuals(ctx, tx, individuals)
	})
	if err != nil {
		return domain.SessionView{}, err
	}

	logger.FromContext(ctx).Info("session started",
		zap.String("session_id", session.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.Int("headcount", len(names)),
	)
	s.metrics.RecordSessionStarted(ctx, req.BranchID)

	return s.view(session), nil
}

func (s *Service) Get(ctx context.Context, req domain.GetSessionRequest) (domain.SessionView, error) {
	session, err := s.load(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return s.view(session), nil
}

func (s *Service) ListActive(ctx context.Context, branchID string) ([]domain.SessionView, error) {
	id, err := parseID(branchID)
	if err != nil {
		return nil, domain.ErrInvalidBranch
	}
	sessions, err := s.repo.ListActive(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	views := make([]domain.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, s.view(session))
	}
	return views, nil
}

func (s *Service) AddIndividuals(ctx context.Context, req domain.AddIndividualsRequest) (domain.SessionView, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}
	names := make([]string, 0, len(req.Names))
	for _, name := range req.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return domain.SessionView{}, domain.ErrNoIndividuals
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}

	now := s.clock.Now()
	joined := make([]domain.Individual, 0, len(names))
	for _, name := range names {
		joined = append(joined, domain.Individual{
			ID:        s.genID.Generate(),
			SessionID: session.ID,
			Name:      name,
			JoinedAt:  now,
		})
	}
	if err := s.repo.InsertIndividuals(ctx, s.db, joined); err != nil {
		return domain.SessionView{}, err
	}
	session.Individuals = append(session.Individuals, joined...)
	return s.view(session), nil
}

func (s *Service) AddItem(ctx context.Context, req domain.AddItemRequest) (domain.SessionView, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}
	productID, err := parseID(req.ProductID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}
	if req.Quantity <= 0 {
		return domain.SessionView{}, domain.ErrInvalidQuantity
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}

	product, err := s.products.FindByID(ctx, s.db, session.BranchID, productID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if product == nil || !product.Active {
		return domain.SessionView{}, productdomain.ErrNotFound
	}

	if unlock := s.lockStock(ctx, productID); unlock != nil {
		defer unlock()
	}

	item := &domain.SessionItem{
		ID:           s.genID.Generate(),
		SessionID:    session.ID,
		ProductID:    product.ID,
		Name:         product.Name,
		Quantity:     req.Quantity,
		UnitPrice:    product.UnitPrice,
		TotalPrice:   req.Quantity * product.UnitPrice,
		AttributedTo: strings.TrimSpace(req.AttributedTo),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.products.DecrementStock(ctx, tx, product.ID, req.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return productdomain.ErrInsufficientStock
		}
		return s.repo.InsertItem(ctx, tx, item)
	})
	if err != nil {
		if err == productdomain.ErrInsufficientStock {
			s.metrics.RecordStockDenied(ctx, req.ProductID)
		}
		return domain.SessionView{}, err
	}

	session.Items = append(session.Items, *item)
	return s.view(session), nil
}

// lockStock takes the per-product Redis lock when a locker is configured.
// Single-instance deployments run without Redis and rely on the conditional
// UPDATE alone. A lock error or contention is logged and the operation
// continues under the same conditional UPDATE guard.
func (s *Service) lockStock(ctx context.Context, productID snowflake.ID) func() {
	if s.locker == nil {
		return nil
	}
	key := "stock:" + productID.String()
	token, ok, err := s.locker.TryLock(ctx, key, stockLockTTL)
	if err != nil {
		s.log.Warn("stock lock unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		s.log.Warn("stock lock contended", zap.String("key", key))
		return nil
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("failed to release stock lock", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Service) UpdateItem(ctx context.Context, req domain.UpdateItemRequest) (domain.SessionView, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	item := findItem(session, itemID)
	if item == nil {
		return domain.SessionView{}, domain.ErrItemNotFound
	}

	updated := *item
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return domain.SessionView{}, domain.ErrInvalidQuantity
		}
		updated.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return domain.SessionView{}, domain.ErrInvalidPrice
		}
		updated.UnitPrice = *req.UnitPrice
	}
	if req.AttributedTo != nil {
		updated.AttributedTo = strings.TrimSpace(*req.AttributedTo)
	}
	updated.TotalPrice = updated.Quantity * updated.UnitPrice

	delta := updated.Quantity - item.Quantity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if delta > 0 {
			ok, err := s.products.DecrementStock(ctx, tx, item.ProductID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return productdomain.ErrInsufficientStock
			}
		} else if delta < 0 {
			if err := s.products.RestoreStock(ctx, tx, item.ProductID, -delta); err != nil {
				return err
			}
		}
		return s.repo.UpdateItem(ctx, tx, &updated)
	})
	if err != nil {
		if err == productdomain.ErrInsufficientStock {
			s.metrics.RecordStockDenied(ctx, item.ProductID.String())
		}
		return domain.SessionView{}, err
	}

	*item = updated
	return s.view(session), nil
}

func (s *Service) RemoveItem(ctx context.Context, req domain.RemoveItemRequest) (domain.SessionView, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return domain.SessionView{}, domain.ErrInvalidID
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	item := findItem(session, itemID)
	if item == nil {
		return domain.SessionView{}, domain.ErrItemNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.products.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		return s.repo.DeleteItem(ctx, tx, session.ID, item.ID)
	})
	if err != nil {
		return domain.SessionView{}, err
	}

	items := session.Items[:0]
	for _, it := range session.Items {
		if it.ID != item.ID {
			items = append(items, it)
		}
	}
	session.Items = items
	return s.view(session), nil
}

func (s *Service) PartialExit(ctx context.Context, req domain.PartialExitRequest) (invoicedomain.Invoice, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return invoicedomain.Invoice{}, domain.ErrInvalidID
	}
	if len(req.IndividualIDs) == 0 {
		return invoicedomain.Invoice{}, domain.ErrNoIndividuals
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	exiting, err := selectIndividuals(session, req.IndividualIDs)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if len(exiting) >= session.Headcount() {
		return invoicedomain.Invoice{}, domain.ErrFullExitRequired
	}

	takes := make(map[snowflake.ID]int64, len(req.ItemQuantities))
	for rawID, qty := range req.ItemQuantities {
		itemID, err := parseID(rawID)
		if err != nil {
			return invoicedomain.Invoice{}, domain.ErrInvalidID
		}
		if findItem(session, itemID) == nil {
			return invoicedomain.Invoice{}, domain.ErrItemNotFound
		}
		if qty < 0 {
			return invoicedomain.Invoice{}, domain.ErrInvalidQuantity
		}
		takes[itemID] = qty
	}

	started := time.Now()
	now := s.clock.Now()
	result := settlement.SettlePartial(session, exiting, takes, now)

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.invoices.Finalize(ctx, tx, invoicedomain.FinalizeRequest{
			BranchID:    session.BranchID,
			SessionID:   session.ID,
			ClientID:    session.ClientID,
			Kind:        invoicedomain.InvoiceKindSessionPartial,
			TotalAmount: result.Total,
			Items:       result.Lines,
		})
		if err != nil {
			return err
		}

		exitingIDs := make([]snowflake.ID, 0, len(exiting))
		for _, ind := range exiting {
			exitingIDs = append(exitingIDs, ind.ID)
		}
		if err := s.repo.DeleteIndividuals(ctx, tx, session.ID, exitingIDs); err != nil {
			return err
		}

		for _, take := range result.Takes {
			item := findItem(session, take.ItemID)
			if take.Remaining == 0 {
				if err := s.repo.DeleteItem(ctx, tx, session.ID, take.ItemID); err != nil {
					return err
				}
				continue
			}
			item.Quantity = take.Remaining
			item.TotalPrice = take.Remaining * item.UnitPrice
			if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.applyPartialExit(session, exiting, result.Takes)

	logger.FromContext(ctx).Info("partial exit settled",
		zap.String("session_id", session.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int("exited", len(exiting)),
		zap.Int64("amount", result.Total),
	)
	s.metrics.RecordPartialExit(ctx, req.BranchID)
	s.metrics.RecordInvoiceIssued(ctx, string(invoicedomain.InvoiceKindSessionPartial))
	s.metrics.RecordSettlementDuration(ctx, "partial", time.Since(started))

	return *invoice, nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteSessionRequest) (invoicedomain.Invoice, error) {
	sessionID, err := parseID(req.SessionID)
	if err != nil {
		return invoicedomain.Invoice{}, domain.ErrInvalidID
	}

	defer s.lockSession(sessionID)()

	session, err := s.loadActive(ctx, s.db, req.BranchID, req.SessionID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	started := time.Now()
	now := s.clock.Now()
	result := settlement.SettleFull(session, now)

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err = s.invoices.Finalize(ctx, tx, invoicedomain.FinalizeRequest{
			BranchID:    session.BranchID,
			SessionID:   session.ID,
			ClientID:    session.ClientID,
			Kind:        invoicedomain.InvoiceKindSessionFull,
			TotalAmount: result.Total,
			Items:       result.Lines,
		})
		if err != nil {
			return err
		}
		session.Status = domain.SessionStatusCompleted
		session.EndedAt = &now
		id := invoice.ID
		session.FinalInvoiceID = &id
		return s.repo.UpdateSession(ctx, tx, session)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	logger.FromContext(ctx).Info("session completed",
		zap.String("session_id", session.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int64("amount", result.Total),
	)
	s.metrics.RecordSessionCompleted(ctx, req.BranchID)
	s.metrics.RecordInvoiceIssued(ctx, string(invoicedomain.InvoiceKindSessionFull))
	s.metrics.RecordSettlementDuration(ctx, "full", time.Since(started))

	return *invoice, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, branchID, sessionID string) (*domain.Session, error) {
	bid, err := parseID(branchID)
	if err != nil {
		return nil, domain.ErrInvalidBranch
	}
	sid, err := parseID(sessionID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	session, err := s.repo.FindByID(ctx, db, bid, sid)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *Service) loadActive(ctx context.Context, db *gorm.DB, branchID, sessionID string) (*domain.Session, error) {
	session, err := s.load(ctx, db, branchID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusActive {
		return nil, domain.ErrSessionCompleted
	}
	return session, nil
}

func (s *Service) view(session *domain.Session) domain.SessionView {
	now := s.clock.Now()
	timeCost := settlement.TimeCost(session, now)
	total := timeCost
	for _, item := range session.Items {
		total += item.TotalPrice
	}
	return domain.SessionView{
		Session:         *session,
		ElapsedSeconds:  session.ElapsedSeconds(now),
		LiveTimeCost:    timeCost,
		LiveTotalAmount: total,
	}
}

func (s *Service) applyPartialExit(session *domain.Session, exited []domain.Individual, takes []settlement.ItemTake) {
	gone := make(map[snowflake.ID]struct{}, len(exited))
	for _, ind := range exited {
		gone[ind.ID] = struct{}{}
	}
	remaining := session.Individuals[:0]
	for _, ind := range session.Individuals {
		if _, ok := gone[ind.ID]; !ok {
			remaining = append(remaining, ind)
		}
	}
	session.Individuals = remaining

	removed := make(map[snowflake.ID]struct{})
	for _, take := range takes {
		if take.Remaining == 0 {
			removed[take.ItemID] = struct{}{}
		}
	}
	items := session.Items[:0]
	for _, item := range session.Items {
		if _, ok := removed[item.ID]; !ok {
			items = append(items, item)
		}
	}
	session.Items = items
}

func selectIndividuals(session *domain.Session, rawIDs []string) ([]domain.Individual, error) {
	byID := make(map[snowflake.ID]domain.Individual, session.Headcount())
	for _, ind := range session.Individuals {
		byID[ind.ID] = ind
	}
	seen := make(map[snowflake.ID]struct{}, len(rawIDs))
	selected := make([]domain.Individual, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		ind, ok := byID[id]
		if !ok {
			return nil, domain.ErrIndividualNotFound
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, ind)
	}
	return selected, nil
}

func findItem(session *domain.Session, itemID snowflake.ID) *domain.SessionItem {
	for i := range session.Items {
		if session.Items[i].ID == itemID {
			return &session.Items[i]
		}
	}
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return id, nil
}
