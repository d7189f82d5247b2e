package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/internal/product/domain"
)

func newTestDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, stock int64) domain.Product {
	t.Helper()
	product := domain.Product{
		ID:        node.Generate(),
		BranchID:  node.Generate(),
		Name:      "Coffee",
		UnitPrice: 1500,
		Stock:     stock,
		Active:    true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestDecrementStockGuardsAgainstNegative(t *testing.T) {
	db, node := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	product := seedProduct(t, db, node, 3)

	ok, err := repo.DecrementStock(ctx, db, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// More than remains: the conditional update must not fire.
	ok, err = repo.DecrementStock(ctx, db, product.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, db, product.BranchID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Stock)

	// Draining to exactly zero is allowed.
	ok, err = repo.DecrementStock(ctx, db, product.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, db, product.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreStock(t *testing.T) {
	db, node := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	product := seedProduct(t, db, node, 1)

	require.NoError(t, repo.RestoreStock(ctx, db, product.ID, 4))

	stored, err := repo.FindByID(ctx, db, product.BranchID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Stock)
}

func TestFindByIDUnknownReturnsNil(t *testing.T) {
	db, node := newTestDB(t)
	repo := Provide()

	stored, err := repo.FindByID(context.Background(), db, node.Generate(), node.Generate())
	require.NoError(t, err)
	assert.Nil(t, stored)
}
