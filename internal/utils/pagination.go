// internal/utils/pagination.go
package utils

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopmate/shopmate-backend/internal/models"
)

type PaginationParams struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Search   string `json:"search"`
	Category string `json:"category"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sortField := c.DefaultQuery("sort", "id")
	order := c.DefaultQuery("order", "asc")
	search := c.Query("search")
	category := c.Query("category")

	// Validate and set defaults
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if order != "asc" && order != "desc" {
		order = "asc"
	}

	return PaginationParams{
		Page:     page,
		Limit:    limit,
		Sort:     sortField,
		Order:    order,
		Search:   search,
		Category: category,
	}
}

// SortProducts orders products in place by the requested field. Unknown sort
// fields fall back to id.
func SortProducts(products []models.Product, params PaginationParams) {
	less := func(a, b models.Product) bool { return a.ID < b.ID }

	switch params.Sort {
	case "name":
		less = func(a, b models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "price":
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case "category":
		less = func(a, b models.Product) bool { return a.Category < b.Category }
	}

	sort.SliceStable(products, func(i, j int) bool {
		if params.Order == "desc" {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

// PaginateProducts returns the requested page. Pages past the end are empty,
// not an error.
func PaginateProducts(products []models.Product, params PaginationParams) []models.Product {
	start := (params.Page - 1) * params.Limit
	if start >= len(products) {
		return []models.Product{}
	}

	end := start + params.Limit
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
