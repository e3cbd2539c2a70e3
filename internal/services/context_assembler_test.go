// internal/services/context_assembler_test.go
package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
)

func testAssembler() *ContextAssembler {
	return NewContextAssembler(config.RAGConfig{MaxFiltered: 8, MaxFeatured: 5})
}

func TestAssembleFilteredResults(t *testing.T) {
	assembler := testAssembler()
	catalog := DefaultCatalog()

	max := 300.0
	filter := models.QueryFilter{MaxPrice: &max, Category: "electronics"}
	filtered := FilterProducts(catalog, filter)
	require.Len(t, filtered, 1)

	text := assembler.Assemble(filter, models.ComputeStats(catalog), models.ComputeStats(filtered), filtered)

	// Header first, then the filtered section.
	lines := strings.Split(text, "\n")
	assert.Contains(t, lines[0], "The catalog contains 10 products across 6 categories")
	assert.Contains(t, text, "Filtered results: 1 product matches the active filters")
	assert.Contains(t, text, `category "electronics"`)

	// Exact price rendering matters: the model quotes this text verbatim.
	assert.Contains(t, text, "- AirPods Pro | $249.00 | electronics | Wireless noise-cancelling earbuds with adaptive transparency and spatial audio.")

	// Single match carries no price range line.
	assert.NotContains(t, text, "Matching price range")
}

func TestAssemblePriceRangeLine(t *testing.T) {
	assembler := testAssembler()
	catalog := DefaultCatalog()

	filter := models.QueryFilter{Category: "footwear"}
	filtered := FilterProducts(catalog, filter)
	require.Len(t, filtered, 2)

	text := assembler.Assemble(filter, models.ComputeStats(catalog), models.ComputeStats(filtered), filtered)
	assert.Contains(t, text, "Matching price range: $150.00 to $180.00 (average $165.00).")
}

func TestAssembleNoMatches(t *testing.T) {
	assembler := testAssembler()
	catalog := DefaultCatalog()

	max := 5.0
	filter := models.QueryFilter{MaxPrice: &max}
	filtered := FilterProducts(catalog, filter)
	require.Empty(t, filtered)

	text := assembler.Assemble(filter, models.ComputeStats(catalog), models.ComputeStats(filtered), filtered)

	assert.Contains(t, text, "No matching products")
	assert.Contains(t, text, "price <= $5.00")
	assert.Contains(t, text, "suggest loosening the constraints")
	// The header is still present; only the product list is gone.
	assert.Contains(t, text, "The catalog contains 10 products")
	assert.NotContains(t, text, "| $")
}

func TestAssembleOverview(t *testing.T) {
	assembler := testAssembler()
	catalog := DefaultCatalog()

	text := assembler.Assemble(models.QueryFilter{}, models.ComputeStats(catalog), models.ProductStats{}, catalog)

	assert.Contains(t, text, "Category breakdown:")
	assert.Contains(t, text, "- electronics: 3 products")
	assert.Contains(t, text, "- accessories: 1 product")
	assert.Contains(t, text, "Featured products:")

	// Breakdown is ordered by descending count before the featured list.
	breakdownIdx := strings.Index(text, "Category breakdown:")
	electronicsIdx := strings.Index(text, "- electronics:")
	featuredIdx := strings.Index(text, "Featured products:")
	assert.Less(t, breakdownIdx, electronicsIdx)
	assert.Less(t, electronicsIdx, featuredIdx)

	// Featured list is capped.
	assert.Equal(t, 5, strings.Count(text, "| $"))
}

func TestAssembleFilteredTruncation(t *testing.T) {
	assembler := NewContextAssembler(config.RAGConfig{MaxFiltered: 2, MaxFeatured: 5})
	catalog := DefaultCatalog()

	filter := models.QueryFilter{Category: "electronics"}
	filtered := FilterProducts(catalog, filter)
	require.Len(t, filtered, 3)

	text := assembler.Assemble(filter, models.ComputeStats(catalog), models.ComputeStats(filtered), filtered)

	assert.Contains(t, text, "Showing the first 2 of 3 matches.")
	assert.Equal(t, 2, strings.Count(text, "| $"))
}

func TestAssembleCatalogUnavailable(t *testing.T) {
	assembler := testAssembler()

	max := 300.0
	filter := models.QueryFilter{MaxPrice: &max}
	text := assembler.Assemble(filter, models.ProductStats{}, models.ProductStats{}, nil)

	assert.Contains(t, text, "The product catalog is currently unavailable")
	assert.NotContains(t, text, "Filtered results")
	assert.NotContains(t, text, "| $")
}
