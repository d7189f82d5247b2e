package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	// FindByID loads the session with its individuals and items.
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Session, error)
	ListActive(ctx context.Context, db *gorm.DB, branchID snowflake.ID) ([]*Session, error)
	UpdateSession(ctx context.Context, db *gorm.DB, session *Session) error
	InsertIndividuals(ctx context.Context, db *gorm.DB, individuals []Individual) error
	DeleteIndividuals(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, ids []snowflake.ID) error
	InsertItem(ctx context.Context, db *gorm.DB, item *SessionItem) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *SessionItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, sessionID, itemID snowflake.ID) error
}
