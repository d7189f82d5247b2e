package service

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	"github.com/shaghafhq/shaghaf/internal/clock"
	"github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/observability/logger"
	"github.com/shaghafhq/shaghaf/internal/observability/metrics"
	"github.com/shaghafhq/shaghaf/internal/providers/pdf"
	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	PDF     pdf.Provider
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	pdf     pdf.Provider
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		pdf:     p.PDF,
		metrics: p.Metrics,
	}
}

func (s *Service) Finalize(ctx context.Context, tx *gorm.DB, req domain.FinalizeRequest) (*domain.Invoice, error) {
	if req.Kind != domain.InvoiceKindSessionFull && req.Kind != domain.InvoiceKindSessionPartial {
		return nil, domain.ErrInvalidKind
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyInvoice
	}

	now := s.clock.Now()
	invoice := &domain.Invoice{
		ID:          s.genID.Generate(),
		BranchID:    req.BranchID,
		SessionID:   req.SessionID,
		ClientID:    req.ClientID,
		Number:      "INV-" + ulid.Make().String(),
		Kind:        req.Kind,
		Status:      domain.InvoiceStatusPending,
		TotalAmount: req.TotalAmount,
		IssuedAt:    now,
	}
	for _, item := range req.Items {
		invoice.Items = append(invoice.Items, domain.InvoiceItem{
			ID:           s.genID.Generate(),
			InvoiceID:    invoice.ID,
			Kind:         item.Kind,
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			AttributedTo: item.AttributedTo,
		})
	}

	if err := s.repo.Insert(ctx, tx, invoice); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("kind", string(invoice.Kind)),
		zap.Int64("total_amount", invoice.TotalAmount),
	)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) ([]domain.Invoice, *pagination.PageInfo, error) {
	filter := domain.ListInvoiceFilter{
		SessionID: req.SessionID,
		Status:    req.Status,
	}
	pageSize := int32(req.PageSize)
	if pageSize <= 0 {
		pageSize = 50
	}
	rows, err := s.repo.List(ctx, s.db, req.BranchID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(inv *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(rows) > int(pageSize) {
		rows = rows[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row)
	}
	return invoices, pageInfo, nil
}

func (s *Service) ApplyPayment(ctx context.Context, id snowflake.ID, req domain.ApplyPaymentRequest) (*domain.Invoice, error) {
	switch req.Method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodWallet:
	default:
		return nil, domain.ErrInvalidMethod
	}
	if req.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}

	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		now := s.clock.Now()
		posting := domain.PaymentPosting{
			ID:             s.genID.Generate(),
			InvoiceID:      invoice.ID,
			Method:         req.Method,
			Amount:         req.Amount,
			TransactionRef: req.TransactionRef,
			ProcessedAt:    now,
		}
		if err := s.repo.InsertPosting(ctx, tx, &posting); err != nil {
			return err
		}
		invoice.Postings = append(invoice.Postings, posting)

		// Overpayment is accepted and left as a negative balance.
		if invoice.RemainingBalance() <= 0 && invoice.Status != domain.InvoiceStatusPaid {
			invoice.Status = domain.InvoiceStatusPaid
			invoice.PaidAt = &now
			return s.repo.UpdateStatus(ctx, tx, invoice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("payment posted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("method", string(req.Method)),
		zap.Int64("amount", req.Amount),
		zap.Int64("remaining", invoice.RemainingBalance()),
	)
	s.metrics.RecordPaymentPosted(ctx, string(req.Method))

	return invoice, nil
}

func (s *Service) Receipt(ctx context.Context, id snowflake.ID) ([]byte, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var branch branchdomain.Branch
	if err := s.db.WithContext(ctx).Where("id = ?", invoice.BranchID).Take(&branch).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	var client clientdomain.Client
	if err := s.db.WithContext(ctx).Where("id = ?", invoice.ClientID).Take(&client).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	data := pdf.ReceiptData{
		BranchName:    branch.Name,
		BranchAddress: branch.Address,
		InvoiceNumber: invoice.Number,
		InvoiceKind:   string(invoice.Kind),
		IssuedAt:      invoice.IssuedAt.Format(time.RFC3339),
		ClientName:    client.Name,
		Total:         pdf.FormatAmount(invoice.TotalAmount),
		Paid:          pdf.FormatAmount(invoice.TotalPaid()),
		Remaining:     pdf.FormatAmount(invoice.RemainingBalance()),
	}
	if invoice.PaidAt != nil {
		data.PaidAt = invoice.PaidAt.Format(time.RFC3339)
	}
	for _, item := range invoice.Items {
		data.Lines = append(data.Lines, pdf.ReceiptLine{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   pdf.FormatAmount(item.UnitPrice),
			Amount:      pdf.FormatAmount(item.TotalPrice),
		})
	}

	reader, err := s.pdf.GenerateReceipt(ctx, data)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
