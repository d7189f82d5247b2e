package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shaghafhq/shaghaf/internal/branch/domain"
	"github.com/shaghafhq/shaghaf/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("branch.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBranchRequest) (domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	branch := domain.Branch{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      slug.Make(name),
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(&branch).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Branch{}, domain.ErrDuplicate
		}
		return domain.Branch{}, err
	}

	return branch, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Branch, error) {
	var branches []domain.Branch
	err := s.db.WithContext(ctx).
		Order("created_at asc").
		Find(&branches).Error
	if err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Branch, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Branch{}, domain.ErrInvalidID
	}

	var branch domain.Branch
	err = s.db.WithContext(ctx).Where("id = ?", parsed).Take(&branch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Branch{}, domain.ErrNotFound
		}
		return domain.Branch{}, err
	}
	return branch, nil
}
