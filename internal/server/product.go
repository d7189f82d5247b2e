package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	"github.com/shaghafhq/shaghaf/pkg/db/pagination"
)

type createProductRequest struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	UnitPrice int64  `json:"unit_price"`
	Stock     int64  `json:"stock"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		BranchID:  branchID(c),
		Name:      strings.TrimSpace(req.Name),
		SKU:       strings.TrimSpace(req.SKU),
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name   string `form:"name"`
		Active bool   `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		BranchID:   branchID(c),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Name:       strings.TrimSpace(query.Name),
		OnlyActive: query.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), productdomain.GetProductRequest{
		BranchID: branchID(c),
		ID:       c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductRequest struct {
	Name      *string `json:"name"`
	UnitPrice *int64  `json:"unit_price"`
	Stock     *int64  `json:"stock"`
	Active    *bool   `json:"active"`
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateProductRequest{
		BranchID:  branchID(c),
		ID:        c.Param("id"),
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		Active:    req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
