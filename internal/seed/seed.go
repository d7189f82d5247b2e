// Package seed bootstraps the default branch and a small product catalog so
// a fresh install can open sessions immediately.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
)

const (
	defaultBranchName = "Main"
	defaultBranchCode = "main"
)

var defaultProducts = []struct {
	Name      string
	SKU       string
	UnitPrice int64
	Stock     int64
}{
	{"Coffee", "COF-001", 1500, 100},
	{"Tea", "TEA-001", 1000, 100},
	{"Water", "WTR-001", 500, 200},
}

// EnsureDefaultBranch seeds the default branch for startup bootstrap.
func EnsureDefaultBranch(db *gorm.DB) error {
	return ensure(db, 0)
}

// EnsureDefaultBranchWithID seeds the default branch under a fixed id so
// multi-service deployments agree on it.
func EnsureDefaultBranchWithID(db *gorm.DB, id int64) error {
	return ensure(db, snowflake.ID(id))
}

func ensure(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		branch, err := ensureBranchTx(ctx, tx, node, id)
		if err != nil {
			return err
		}
		return ensureProductsTx(ctx, tx, node, branch.ID)
	})
}

func ensureBranchTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, id snowflake.ID) (*branchdomain.Branch, error) {
	var branch branchdomain.Branch
	err := tx.WithContext(ctx).Where("code = ?", defaultBranchCode).First(&branch).Error
	if err == nil {
		return &branch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id == 0 {
		id = node.Generate()
	}
	now := time.Now().UTC()
	branch = branchdomain.Branch{
		ID:        id,
		Name:      defaultBranchName,
		Code:      defaultBranchCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func ensureProductsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, branchID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&productdomain.Product{}).Where("branch_id = ?", branchID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, p := range defaultProducts {
		product := productdomain.Product{
			ID:        node.Generate(),
			BranchID:  branchID,
			Name:      p.Name,
			SKU:       p.SKU,
			UnitPrice: p.UnitPrice,
			Stock:     p.Stock,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return err
		}
	}
	return nil
}
