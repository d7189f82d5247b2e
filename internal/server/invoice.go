package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		SessionID string `form:"session_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bid, err := snowflake.ParseString(branchID(c))
	if err != nil {
		AbortWithError(c, newValidationError("branch_id", "invalid_branch", "invalid branch id"))
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		BranchID:   bid,
		Status:     invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(query.Status))),
		Pagination: query.Pagination,
	}
	if raw := strings.TrimSpace(query.SessionID); raw != "" {
		sid, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("session_id", "invalid_id", "invalid session id"))
			return
		}
		req.SessionID = sid
	}

	invoices, pageInfo, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices, "page_info": pageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type applyPaymentRequest struct {
	Method         string `json:"method"`
	Amount         int64  `json:"amount"`
	TransactionRef string `json:"transaction_ref"`
}

func (s *Server) ApplyPayment(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	var req applyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.ApplyPayment(c.Request.Context(), id, invoicedomain.ApplyPaymentRequest{
		Method:         invoicedomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		Amount:         req.Amount,
		TransactionRef: strings.TrimSpace(req.TransactionRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) InvoiceReceipt(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	doc, err := s.invoiceSvc.Receipt(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/pdf", doc)
}
