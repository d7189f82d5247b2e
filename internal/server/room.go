package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/shaghafhq/shaghaf/internal/room/domain"
)

type createRoomRequest struct {
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	HourlyRate int64  `json:"hourly_rate"`
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roomSvc.CreateRoom(c.Request.Context(), roomdomain.CreateRoomRequest{
		BranchID:   branchID(c),
		Name:       strings.TrimSpace(req.Name),
		Capacity:   req.Capacity,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRooms(c *gin.Context) {
	resp, err := s.roomSvc.ListRooms(c.Request.Context(), branchID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createBookingRequest struct {
	RoomID   string `json:"room_id"`
	ClientID string `json:"client_id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		AbortWithError(c, newValidationError("starts_at", "invalid_time_range", "invalid starts_at"))
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		AbortWithError(c, newValidationError("ends_at", "invalid_time_range", "invalid ends_at"))
		return
	}

	resp, err := s.roomSvc.CreateBooking(c.Request.Context(), roomdomain.CreateBookingRequest{
		BranchID: branchID(c),
		RoomID:   req.RoomID,
		ClientID: req.ClientID,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBookings(c *gin.Context) {
	resp, err := s.roomSvc.ListBookings(c.Request.Context(), branchID(c), c.Query("room_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBooking(c *gin.Context) {
	resp, err := s.roomSvc.CancelBooking(c.Request.Context(), branchID(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
