package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Room struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID `gorm:"not null;index" json:"branch_id"`
	Name      string       `gorm:"not null" json:"name"`
	Capacity  int          `gorm:"not null;default:1" json:"capacity"`
	// HourlyRate is in minor currency units.
	HourlyRate int64     `gorm:"not null;default:0" json:"hourly_rate"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	BranchID  snowflake.ID  `gorm:"not null;index" json:"branch_id"`
	RoomID    snowflake.ID  `gorm:"not null;index" json:"room_id"`
	ClientID  snowflake.ID  `gorm:"not null;index" json:"client_id"`
	StartsAt  time.Time     `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time     `gorm:"not null" json:"ends_at"`
	Status    BookingStatus `gorm:"type:text;not null;default:'CONFIRMED'" json:"status"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Booking) TableName() string { return "room_bookings" }

type CreateRoomRequest struct {
	BranchID   string
	Name       string
	Capacity   int
	HourlyRate int64
}

type CreateBookingRequest struct {
	BranchID string
	RoomID   string
	ClientID string
	StartsAt time.Time
	EndsAt   time.Time
}

type Service interface {
	CreateRoom(context.Context, CreateRoomRequest) (Room, error)
	ListRooms(ctx context.Context, branchID string) ([]Room, error)
	CreateBooking(context.Context, CreateBookingRequest) (Booking, error)
	CancelBooking(ctx context.Context, branchID, id string) (Booking, error)
	ListBookings(ctx context.Context, branchID, roomID string) ([]Booking, error)
}

var (
	ErrInvalidBranch   = errors.New("invalid_branch")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCapacity = errors.New("invalid_capacity")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidRange    = errors.New("invalid_time_range")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrOverlap         = errors.New("booking_overlap")
)
