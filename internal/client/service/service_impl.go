package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/internal/client/domain"
	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	return s.create(ctx, s.db, req.BranchID, req.Name, req.Phone, req.Email, false)
}

// CreateWalkIn registers a walk-in client record for a shared-space session
// with no prior client account. It writes through tx so the record shares
// the caller's transaction.
func (s *Service) CreateWalkIn(ctx context.Context, tx *gorm.DB, req domain.CreateWalkInRequest) (domain.Client, error) {
	if tx == nil {
		tx = s.db
	}
	return s.create(ctx, tx, req.BranchID, req.Name, req.Phone, "", true)
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, branch, name, phone, email string, walkIn bool) (domain.Client, error) {
	branchID, err := parseID(branch)
	if err != nil {
		return domain.Client{}, domain.ErrInvalidBranch
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.Client{}, domain.ErrInvalidPhone
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		BranchID:  branchID,
		Name:      name,
		Phone:     phone,
		Email:     strings.TrimSpace(email),
		IsWalkIn:  walkIn,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, tx, &client); err != nil {
		return domain.Client{}, err
	}

	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.ListClientResponse{}, domain.ErrInvalidBranch
	}

	filter := domain.ListClientFilter{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, branchID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(client *domain.Client) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        client.ID.String(),
			CreatedAt: client.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}

	resp := domain.ListClientResponse{Clients: clients}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetClientRequest) (domain.Client, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.Client{}, domain.ErrInvalidBranch
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Client{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	return *item, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
