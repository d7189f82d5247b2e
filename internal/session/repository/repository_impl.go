package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/internal/session/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).
		Preload("Individuals", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at asc, id asc")
		}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Where("branch_id = ? AND id = ?", branchID, id).
		Take(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, branchID snowflake.ID) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := db.WithContext(ctx).
		Preload("Individuals", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at asc, id asc")
		}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Where("branch_id = ? AND status = ?", branchID, domain.SessionStatusActive).
		Order("started_at asc, id asc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) UpdateSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":           session.Status,
			"ended_at":         session.EndedAt,
			"final_invoice_id": session.FinalInvoiceID,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *repo) InsertIndividuals(ctx context.Context, db *gorm.DB, individuals []domain.Individual) error {
	if len(individuals) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&individuals).Error
}

func (r *repo) DeleteIndividuals(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("session_id = ? AND id IN ?", sessionID, ids).
		Delete(&domain.Individual{}).Error
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.SessionItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.SessionItem) error {
	return db.WithContext(ctx).
		Model(&domain.SessionItem{}).
		Where("id = ? AND session_id = ?", item.ID, item.SessionID).
		Updates(map[string]any{
			"quantity":      item.Quantity,
			"unit_price":    item.UnitPrice,
			"total_price":   item.TotalPrice,
			"attributed_to": item.AttributedTo,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, sessionID, itemID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("session_id = ? AND id = ?", sessionID, itemID).
		Delete(&domain.SessionItem{}).Error
}
