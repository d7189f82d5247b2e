package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/internal/employee/domain"
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
		log:   p.Log.Named("employee.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEmployeeRequest) (domain.Employee, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.Employee{}, domain.ErrInvalidBranch
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Employee{}, domain.ErrInvalidName
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return domain.Employee{}, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	employee := domain.Employee{
		ID:        s.genID.Generate(),
		BranchID:  branchID,
		Name:      name,
		Role:      role,
		Phone:     strings.TrimSpace(req.Phone),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(&employee).Error; err != nil {
		return domain.Employee{}, err
	}

	return employee, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateEmployeeRequest) (domain.Employee, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.Employee{}, domain.ErrInvalidBranch
	}
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Employee{}, domain.ErrInvalidID
	}

	var employee domain.Employee
	err = s.db.WithContext(ctx).
		Where("branch_id = ? AND id = ?", branchID, id).
		Take(&employee).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Employee{}, domain.ErrNotFound
		}
		return domain.Employee{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Employee{}, domain.ErrInvalidName
		}
		employee.Name = name
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if role == "" {
			return domain.Employee{}, domain.ErrInvalidRole
		}
		employee.Role = role
	}
	if req.Phone != nil {
		employee.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}
	employee.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(&employee).Error; err != nil {
		return domain.Employee{}, err
	}

	return employee, nil
}

func (s *Service) List(ctx context.Context, branchID string) ([]domain.Employee, error) {
	parsed, err := parseID(branchID)
	if err != nil {
		return nil, domain.ErrInvalidBranch
	}

	var employees []domain.Employee
	err = s.db.WithContext(ctx).
		Where("branch_id = ?", parsed).
		Order("created_at asc").
		Find(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Service) GetByID(ctx context.Context, branchID, id string) (domain.Employee, error) {
	parsedBranch, err := parseID(branchID)
	if err != nil {
		return domain.Employee{}, domain.ErrInvalidBranch
	}
	parsedID, err := parseID(id)
	if err != nil {
		return domain.Employee{}, domain.ErrInvalidID
	}

	var employee domain.Employee
	err = s.db.WithContext(ctx).
		Where("branch_id = ? AND id = ?", parsedBranch, parsedID).
		Take(&employee).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Employee{}, domain.ErrNotFound
		}
		return domain.Employee{}, err
	}
	return employee, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
