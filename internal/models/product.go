// internal/models/product.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// Product is a catalog entry. Products are immutable once stored: they are
// created at seed time and updated only by full replacement keyed by ID.
type Product struct {
	ID          int     `json:"id" yaml:"id" validate:"required,gt=0"`
	Name        string  `json:"name" yaml:"name" validate:"required"`
	Price       float64 `json:"price" yaml:"price" validate:"gte=0"`
	Category    string  `json:"category" yaml:"category" validate:"required"`
	Description string  `json:"description" yaml:"description"`
}

// Payload returns the vector store payload representation of the product.
func (p Product) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":        p.Name,
		"price":       p.Price,
		"category":    p.Category,
		"description": p.Description,
	}
}

// EmbeddingText is the text embedded for the product at seed time.
func (p Product) EmbeddingText() string {
	return fmt.Sprintf("%s. Category: %s. Price: $%.2f. %s", p.Name, p.Category, p.Price, p.Description)
}

// ProductFromPoint rebuilds a Product from a stored point ID and payload.
// JSON decoding hands numbers back as float64, so both fields are coerced.
func ProductFromPoint(id interface{}, payload map[string]interface{}) (Product, error) {
	pid, ok := toInt(id)
	if !ok {
		return Product{}, fmt.Errorf("point has non-integer id %v", id)
	}

	name, _ := payload["name"].(string)
	if name == "" {
		return Product{}, fmt.Errorf("point %d has no name in payload", pid)
	}

	price, _ := toFloat(payload["price"])
	category, _ := payload["category"].(string)
	description, _ := payload["description"].(string)

	return Product{
		ID:          pid,
		Name:        name,
		Price:       price,
		Category:    category,
		Description: description,
	}, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// QueryFilter holds the structured constraints extracted from one free-text
// query. All fields are optional; an empty filter must not restrict anything.
type QueryFilter struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Category string   `json:"category,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no constraint was extracted.
func (f QueryFilter) IsEmpty() bool {
	return f.MinPrice == nil && f.MaxPrice == nil && f.Category == "" && len(f.Keywords) == 0
}

// Describe renders the active constraints for logs and context text,
// e.g. `price >= $50.00, price <= $300.00, category "electronics"`.
func (f QueryFilter) Describe() string {
	var parts []string
	if f.MinPrice != nil {
		parts = append(parts, fmt.Sprintf("price >= $%.2f", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("price <= $%.2f", *f.MaxPrice))
	}
	if f.Category != "" {
		parts = append(parts, fmt.Sprintf("category %q", f.Category))
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("keywords [%s]", strings.Join(f.Keywords, ", ")))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// ProductMatch pairs a product with a relevance score (higher is better).
// Produced per query, never persisted.
type ProductMatch struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}

// ProductStats aggregates a product list. Stats are recomputed per request
// and never cached across requests, the catalog may change in between.
type ProductStats struct {
	Count      int            `json:"count"`
	Categories map[string]int `json:"categories"`
	MinPrice   float64        `json:"min_price"`
	MaxPrice   float64        `json:"max_price"`
	AvgPrice   float64        `json:"avg_price"`
}

// CategoryCount is one row of a category breakdown.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComputeStats derives aggregate statistics from a product list.
func ComputeStats(products []Product) ProductStats {
	stats := ProductStats{
		Count:      len(products),
		Categories: make(map[string]int),
	}
	if len(products) == 0 {
		return stats
	}

	var sum float64
	stats.MinPrice = products[0].Price
	stats.MaxPrice = products[0].Price
	for _, p := range products {
		stats.Categories[p.Category]++
		sum += p.Price
		if p.Price < stats.MinPrice {
			stats.MinPrice = p.Price
		}
		if p.Price > stats.MaxPrice {
			stats.MaxPrice = p.Price
		}
	}
	stats.AvgPrice = sum / float64(len(products))
	return stats
}

// CategoryNames returns the category names sorted alphabetically.
func (s ProductStats) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoriesByCount returns the breakdown sorted by descending count,
// ties broken by name.
func (s ProductStats) CategoriesByCount() []CategoryCount {
	rows := make([]CategoryCount, 0, len(s.Categories))
	for name, count := range s.Categories {
		rows = append(rows, CategoryCount{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// RagContext carries everything one query produced on its way to the prompt
// builder: the parsed filter, both product sets' statistics, the ranked
// matches, and the assembled context text. It is built exactly once, after
// the retrieval and assembly stages finish, and is never mutated afterwards.
type RagContext struct {
	Query         string
	ContextText   string
	Matches       []ProductMatch
	Categories    []string
	GlobalStats   ProductStats
	FilteredStats ProductStats
	Filter        QueryFilter
	HasResults    bool
	ErrorMessage  string
}
