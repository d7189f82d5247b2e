package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shaghafhq/shaghaf/internal/room/domain"
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
		log:   p.Log.Named("room.service"),
		genID: p.GenID,
	}
}

func (s *Service) CreateRoom(ctx context.Context, req domain.CreateRoomRequest) (domain.Room, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.Room{}, domain.ErrInvalidBranch
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Room{}, domain.ErrInvalidName
	}
	if req.Capacity < 1 {
		return domain.Room{}, domain.ErrInvalidCapacity
	}
	if req.HourlyRate < 0 {
		return domain.Room{}, domain.ErrInvalidRate
	}

	now := time.Now().UTC()
	room := domain.Room{
		ID:         s.genID.Generate(),
		BranchID:   branchID,
		Name:       name,
		Capacity:   req.Capacity,
		HourlyRate: req.HourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *Service) ListRooms(ctx context.Context, branchID string) ([]domain.Room, error) {
	parsed, err := parseID(branchID)
	if err != nil {
		return nil, domain.ErrInvalidBranch
	}

	var rooms []domain.Room
	err = s.db.WithContext(ctx).
		Where("branch_id = ?", parsed).
		Order("created_at asc").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Service) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (domain.Booking, error) {
	branchID, err := parseID(req.BranchID)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidBranch
	}
	roomID, err := parseID(req.RoomID)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidID
	}
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidID
	}
	if !req.EndsAt.After(req.StartsAt) {
		return domain.Booking{}, domain.ErrInvalidRange
	}

	booking := domain.Booking{
		ID:       s.genID.Generate(),
		BranchID: branchID,
		RoomID:   roomID,
		ClientID: clientID,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt.UTC(),
		Status:   domain.BookingStatusConfirmed,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		if err := tx.Where("branch_id = ? AND id = ?", branchID, roomID).Take(&room).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrNotFound
			}
			return err
		}

		var overlapping int64
		err := tx.Model(&domain.Booking{}).
			Where("room_id = ? AND status = ?", roomID, domain.BookingStatusConfirmed).
			Where("starts_at < ? AND ends_at > ?", booking.EndsAt, booking.StartsAt).
			Count(&overlapping).Error
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return domain.ErrOverlap
		}

		now := time.Now().UTC()
		booking.CreatedAt = now
		booking.UpdatedAt = now
		return tx.Create(&booking).Error
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return booking, nil
}

func (s *Service) CancelBooking(ctx context.Context, branchID, id string) (domain.Booking, error) {
	parsedBranch, err := parseID(branchID)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidBranch
	}
	parsedID, err := parseID(id)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidID
	}

	var booking domain.Booking
	err = s.db.WithContext(ctx).
		Where("branch_id = ? AND id = ?", parsedBranch, parsedID).
		Take(&booking).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}

	booking.Status = domain.BookingStatusCancelled
	booking.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(&booking).Error; err != nil {
		return domain.Booking{}, err
	}
	return booking, nil
}

func (s *Service) ListBookings(ctx context.Context, branchID, roomID string) ([]domain.Booking, error) {
	parsedBranch, err := parseID(branchID)
	if err != nil {
		return nil, domain.ErrInvalidBranch
	}

	stmt := s.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("branch_id = ?", parsedBranch)
	if strings.TrimSpace(roomID) != "" {
		parsedRoom, err := parseID(roomID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("room_id = ?", parsedRoom)
	}

	var bookings []domain.Booking
	if err := stmt.Order("starts_at asc").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
