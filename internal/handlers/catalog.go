// internal/handlers/catalog.go
package handlers

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/services"
	"github.com/shopmate/shopmate-backend/internal/utils"
)

type CatalogHandler struct {
	rag     *services.RAGService
	catalog *services.CatalogService
	logger  *logrus.Logger
}

func NewCatalogHandler(rag *services.RAGService, catalog *services.CatalogService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		rag:     rag,
		catalog: catalog,
		logger:  logger,
	}
}

// GetProducts lists the catalog with optional filtering, sorting and
// pagination. Filters mirror the chat pipeline's semantics: inclusive price
// bounds, category substring, free-text search over name and description.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := models.QueryFilter{Category: params.Category}
	if params.Search != "" {
		filter.Keywords = []string{params.Search}
	}
	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.BadRequestResponse(c, "min_price must be a number", nil)
			return
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.BadRequestResponse(c, "max_price must be a number", nil)
			return
		}
		filter.MaxPrice = &v
	}

	products, err := h.rag.Catalog(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read catalog")
		utils.ServiceUnavailableResponse(c, "Product catalog is unavailable")
		return
	}

	matched := services.FilterProducts(products, filter)
	utils.SortProducts(matched, params)

	page := utils.PaginateProducts(matched, params)
	result := utils.CreatePaginationResult(page, int64(len(matched)), params)
	utils.PaginatedResponse(c, result)
}

// GetCategories returns category names with product counts, most populous
// first.
func (h *CatalogHandler) GetCategories(c *gin.Context) {
	products, err := h.rag.Catalog(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read catalog")
		utils.ServiceUnavailableResponse(c, "Product catalog is unavailable")
		return
	}

	stats := models.ComputeStats(products)
	utils.SuccessResponse(c, gin.H{
		"categories": stats.CategoriesByCount(),
	})
}

// GetStats returns aggregate catalog statistics.
func (h *CatalogHandler) GetStats(c *gin.Context) {
	products, err := h.rag.Catalog(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read catalog")
		utils.ServiceUnavailableResponse(c, "Product catalog is unavailable")
		return
	}

	utils.SuccessResponse(c, models.ComputeStats(products))
}

type reseedRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=embeddings synthetic"`
}

// Reseed drops and rebuilds the product collection. Mode defaults to the
// configured seed mode when omitted; an empty body is accepted.
func (h *CatalogHandler) Reseed(c *gin.Context) {
	var req reseedRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	seeded, err := h.catalog.Reseed(c.Request.Context(), req.Mode)
	if err != nil {
		h.logger.WithError(err).Error("Reseed failed")
		utils.InternalErrorResponse(c, "Failed to reseed catalog")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"seeded": seeded,
	})
}
