package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListProductFilter, page pagination.Pagination) ([]*Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	// DecrementStock performs a conditional decrement and reports whether a
	// row was updated. The stock >= quantity guard is what keeps stock from
	// going negative under concurrent sessions.
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int64) (bool, error)
	// RestoreStock adds quantity back, used when a line item is removed or
	// its quantity reduced.
	RestoreStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int64) error
}
