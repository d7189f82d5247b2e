package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/shaghafhq/shaghaf/internal/session/domain"
)

type startSessionRequest struct {
	ClientID    string   `json:"client_id"`
	WalkInName  string   `json:"walk_in_name"`
	WalkInPhone string   `json:"walk_in_phone"`
	Individuals []string `json:"individuals"`
}

func (s *Server) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start := sessiondomain.StartSessionRequest{
		BranchID:    branchID(c),
		ClientID:    strings.TrimSpace(req.ClientID),
		Individuals: req.Individuals,
	}
	if start.ClientID == "" && strings.TrimSpace(req.WalkInName) != "" {
		start.WalkIn = &sessiondomain.WalkInClient{
			Name:  strings.TrimSpace(req.WalkInName),
			Phone: strings.TrimSpace(req.WalkInPhone),
		}
	}

	resp, err := s.sessionSvc.Start(c.Request.Context(), start)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListActiveSessions(c *gin.Context) {
	resp, err := s.sessionSvc.ListActive(c.Request.Context(), branchID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSessionByID(c *gin.Context) {
	resp, err := s.sessionSvc.Get(c.Request.Context(), sessiondomain.GetSessionRequest{
		BranchID:  branchID(c),
		SessionID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addIndividualsRequest struct {
	Names []string `json:"names"`
}

func (s *Server) AddIndividuals(c *gin.Context) {
	var req addIndividualsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.AddIndividuals(c.Request.Context(), sessiondomain.AddIndividualsRequest{
		BranchID:  branchID(c),
		SessionID: c.Param("id"),
		Names:     req.Names,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addItemRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     int64  `json:"quantity"`
	AttributedTo string `json:"attributed_to"`
}

func (s *Server) AddSessionItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.AddItem(c.Request.Context(), sessiondomain.AddItemRequest{
		BranchID:     branchID(c),
		SessionID:    c.Param("id"),
		ProductID:    strings.TrimSpace(req.ProductID),
		Quantity:     req.Quantity,
		AttributedTo: req.AttributedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateItemRequest struct {
	Quantity     *int64  `json:"quantity"`
	UnitPrice    *int64  `json:"unit_price"`
	AttributedTo *string `json:"attributed_to"`
}

func (s *Server) UpdateSessionItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.UpdateItem(c.Request.Context(), sessiondomain.UpdateItemRequest{
		BranchID:     branchID(c),
		SessionID:    c.Param("id"),
		ItemID:       c.Param("itemId"),
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		AttributedTo: req.AttributedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveSessionItem(c *gin.Context) {
	resp, err := s.sessionSvc.RemoveItem(c.Request.Context(), sessiondomain.RemoveItemRequest{
		BranchID:  branchID(c),
		SessionID: c.Param("id"),
		ItemID:    c.Param("itemId"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type partialExitRequest struct {
	IndividualIDs  []string         `json:"individual_ids"`
	ItemQuantities map[string]int64 `json:"item_quantities"`
}

func (s *Server) PartialExit(c *gin.Context) {
	var req partialExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.PartialExit(c.Request.Context(), sessiondomain.PartialExitRequest{
		BranchID:       branchID(c),
		SessionID:      c.Param("id"),
		IndividualIDs:  req.IndividualIDs,
		ItemQuantities: req.ItemQuantities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteSession(c *gin.Context) {
	resp, err := s.sessionSvc.Complete(c.Request.Context(), sessiondomain.CompleteSessionRequest{
		BranchID:  branchID(c),
		SessionID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
