// internal/services/context_assembler.go
package services

import (
	"fmt"
	"strings"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
)

// Marker lines the assembled block is built around. The model only ever sees
// product facts through this block, so wording stays explicit about absence.
const (
	noMatchesMarker          = "No matching products"
	catalogUnavailableMarker = "The product catalog is currently unavailable"
)

// ContextAssembler renders the retrieval outcome into the single text block
// the completion prompt is grounded on. Section order is fixed: header, then
// either the filtered-results section (non-empty filter) or the category
// breakdown with featured products (empty filter).
type ContextAssembler struct {
	maxFiltered int
	maxFeatured int
}

func NewContextAssembler(cfg config.RAGConfig) *ContextAssembler {
	return &ContextAssembler{
		maxFiltered: cfg.MaxFiltered,
		maxFeatured: cfg.MaxFeatured,
	}
}

// Assemble builds the context block. An all-zero global count means the
// catalog itself is unavailable (store down, collection absent or empty) and
// produces the explicit degraded block instead of product sections.
func (a *ContextAssembler) Assemble(filter models.QueryFilter, globalStats, filteredStats models.ProductStats, filtered []models.Product) string {
	if globalStats.Count == 0 {
		return catalogUnavailableMarker + ", so no product facts can be shared. " +
			"Answer general questions helpfully, and tell the shopper that live catalog data cannot be shown right now."
	}

	var b strings.Builder

	fmt.Fprintf(&b, "The catalog contains %s across %s: %s.\n",
		plural(globalStats.Count, "product"),
		plural(len(globalStats.Categories), "category"),
		strings.Join(globalStats.CategoryNames(), ", "))

	if !filter.IsEmpty() {
		a.writeFilteredSection(&b, filter, filteredStats, filtered)
	} else {
		a.writeOverviewSection(&b, globalStats, filtered)
	}

	return b.String()
}

func (a *ContextAssembler) writeFilteredSection(b *strings.Builder, filter models.QueryFilter, stats models.ProductStats, filtered []models.Product) {
	if len(filtered) == 0 {
		fmt.Fprintf(b, "\n%s: nothing in the catalog satisfies the active filters (%s). ",
			noMatchesMarker, filter.Describe())
		b.WriteString("Tell the shopper that no product matches and suggest loosening the constraints.\n")
		return
	}

	fmt.Fprintf(b, "\nFiltered results: %s the active filters (%s).\n",
		pluralVerb(len(filtered), "product matches", "products match"),
		filter.Describe())
	if len(filtered) > 1 {
		fmt.Fprintf(b, "Matching price range: $%.2f to $%.2f (average $%.2f).\n",
			stats.MinPrice, stats.MaxPrice, stats.AvgPrice)
	}

	shown := filtered
	if len(shown) > a.maxFiltered {
		shown = shown[:a.maxFiltered]
		fmt.Fprintf(b, "Showing the first %d of %d matches.\n", a.maxFiltered, len(filtered))
	}
	for _, p := range shown {
		b.WriteString(productLine(p))
	}
}

func (a *ContextAssembler) writeOverviewSection(b *strings.Builder, globalStats models.ProductStats, all []models.Product) {
	b.WriteString("\nCategory breakdown:\n")
	for _, row := range globalStats.CategoriesByCount() {
		fmt.Fprintf(b, "- %s: %s\n", row.Name, plural(row.Count, "product"))
	}

	featured := all
	if len(featured) > a.maxFeatured {
		featured = featured[:a.maxFeatured]
	}
	if len(featured) > 0 {
		b.WriteString("\nFeatured products:\n")
		for _, p := range featured {
			b.WriteString(productLine(p))
		}
	}
}

// productLine renders one product as name, price with two decimals, category
// and description.
func productLine(p models.Product) string {
	return fmt.Sprintf("- %s | $%.2f | %s | %s\n", p.Name, p.Price, p.Category, p.Description)
}

func plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	if strings.HasSuffix(singular, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(singular, "y"))
	}
	return fmt.Sprintf("%d %ss", n, singular)
}

func pluralVerb(n int, singularForm, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singularForm)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
