package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/internal/room/domain"
)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Room{}, &domain.Booking{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, Log: zap.NewNop(), GenID: node}), node
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	branchID := node.Generate().String()
	clientID := node.Generate().String()

	room, err := svc.CreateRoom(ctx, domain.CreateRoomRequest{
		BranchID:   branchID,
		Name:       "Meeting Room A",
		Capacity:   6,
		HourlyRate: 20000,
	})
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	first, err := svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: clientID,
		StartsAt: at,
		EndsAt:   at.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, first.Status)

	// Overlapping the middle of an existing booking is rejected.
	_, err = svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: clientID,
		StartsAt: at.Add(time.Hour),
		EndsAt:   at.Add(3 * time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)

	// Back to back is fine.
	_, err = svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: clientID,
		StartsAt: at.Add(2 * time.Hour),
		EndsAt:   at.Add(3 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestCreateBookingValidatesRange(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	branchID := node.Generate().String()

	room, err := svc.CreateRoom(ctx, domain.CreateRoomRequest{
		BranchID: branchID,
		Name:     "Meeting Room B",
		Capacity: 4,
	})
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	_, err = svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: node.Generate().String(),
		StartsAt: at,
		EndsAt:   at,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestCancelBookingFreesSlot(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	branchID := node.Generate().String()
	clientID := node.Generate().String()

	room, err := svc.CreateRoom(ctx, domain.CreateRoomRequest{
		BranchID: branchID,
		Name:     "Focus Booth",
		Capacity: 1,
	})
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	booking, err := svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: clientID,
		StartsAt: at,
		EndsAt:   at.Add(time.Hour),
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(ctx, branchID, booking.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	// The slot is bookable again once the conflicting booking is cancelled.
	_, err = svc.CreateBooking(ctx, domain.CreateBookingRequest{
		BranchID: branchID,
		RoomID:   room.ID.String(),
		ClientID: clientID,
		StartsAt: at,
		EndsAt:   at.Add(time.Hour),
	})
	assert.NoError(t, err)
}
