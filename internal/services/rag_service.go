// internal/services/rag_service.go
package services

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

// RAGService runs the retrieval stages of the pipeline: parse the query,
// fetch the catalog, filter and rank it, and assemble the grounded context.
type RAGService struct {
	store     *vectorstore.Client
	embedder  *EmbeddingService
	parser    *QueryParser
	assembler *ContextAssembler
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewRAGService(store *vectorstore.Client, embedder *EmbeddingService, parser *QueryParser, assembler *ContextAssembler, cfg *config.Config, logger *logrus.Logger) *RAGService {
	return &RAGService{
		store:     store,
		embedder:  embedder,
		parser:    parser,
		assembler: assembler,
		cfg:       cfg,
		logger:    logger,
	}
}

// ParseFilter exposes the query parser to callers outside the chat pipeline.
func (s *RAGService) ParseFilter(query string) models.QueryFilter {
	return s.parser.Parse(query)
}

// Catalog reads the product collection in one bounded scroll page
// (RAG_SCROLL_LIMIT); larger catalogs are truncated, not paginated.
// Malformed points are skipped. Products come back ordered by ID.
func (s *RAGService) Catalog(ctx context.Context) ([]models.Product, error) {
	points, err := s.store.Scroll(ctx, s.cfg.Qdrant.Collection, s.cfg.RAG.ScrollLimit)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(points))
	for _, pt := range points {
		product, err := models.ProductFromPoint(pt.ID, pt.Payload)
		if err != nil {
			s.logger.WithError(err).Warn("Skipping malformed catalog point")
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	return products, nil
}

// Retrieve fetches the catalog and applies the filter. A store failure or
// missing collection yields empty sets rather than an error: callers
// distinguish that from zero matches via the readiness predicate.
func (s *RAGService) Retrieve(ctx context.Context, filter models.QueryFilter) (all, filtered []models.Product) {
	all, err := s.Catalog(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Catalog retrieval failed, continuing without grounded facts")
		return nil, nil
	}

	filtered = FilterProducts(all, filter)
	if len(filtered) > 1 {
		rankByPrice(filtered)
	}

	s.logger.WithFields(logrus.Fields{
		"total":    len(all),
		"filtered": len(filtered),
		"filter":   filter.Describe(),
	}).Debug("Catalog retrieved")

	return all, filtered
}

// FilterProducts applies the filter as a conjunction of its set fields:
// price bounds inclusive on both ends, category by case-insensitive
// substring, keywords against name or description with any keyword
// sufficing. An empty filter restricts nothing. min > max simply matches
// nothing. Applying the same filter twice yields the same set.
func FilterProducts(products []models.Product, filter models.QueryFilter) []models.Product {
	if filter.IsEmpty() {
		return products
	}

	var matched []models.Product
	for _, p := range products {
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(filter.Category)) {
			continue
		}
		if len(filter.Keywords) > 0 && !matchesAnyKeyword(p, filter.Keywords) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func matchesAnyKeyword(p models.Product, keywords []string) bool {
	name := strings.ToLower(p.Name)
	description := strings.ToLower(p.Description)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(name, kw) || strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// rankByPrice orders matches by ascending price as a cheap relevance proxy.
// Ties keep catalog (ID) order.
func rankByPrice(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Price < products[j].Price
	})
}

// BuildContext runs parse, retrieve, rank and assemble for one query and
// returns the finished RagContext. The value is constructed exactly once
// here; no stage mutates a shared aggregate.
func (s *RAGService) BuildContext(ctx context.Context, query string) models.RagContext {
	filter := s.parser.Parse(query)

	all, filtered := s.Retrieve(ctx, filter)

	if s.cfg.RAG.SemanticRerank && len(filtered) > 1 {
		filtered = s.rerankBySimilarity(ctx, query, filtered)
	}

	globalStats := models.ComputeStats(all)
	filteredStats := models.ComputeStats(filtered)
	contextText := s.assembler.Assemble(filter, globalStats, filteredStats, filtered)

	matches := make([]models.ProductMatch, len(filtered))
	for i, p := range filtered {
		matches[i] = models.ProductMatch{
			Product: p,
			Score:   1 - float64(i)/float64(len(filtered)),
		}
	}

	var errorMessage string
	if globalStats.Count == 0 {
		errorMessage = "product catalog unavailable"
	}

	return models.RagContext{
		Query:         query,
		ContextText:   contextText,
		Matches:       matches,
		Categories:    globalStats.CategoryNames(),
		GlobalStats:   globalStats,
		FilteredStats: filteredStats,
		Filter:        filter,
		HasResults:    len(filtered) > 0,
		ErrorMessage:  errorMessage,
	}
}

// rerankBySimilarity reorders the filtered set by vector similarity to the
// query. Any failure falls back to the existing price order.
func (s *RAGService) rerankBySimilarity(ctx context.Context, query string, filtered []models.Product) []models.Product {
	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.WithError(err).Warn("Query embedding failed, keeping price order")
		return filtered
	}

	vec32 := make([]float32, len(vec))
	for i, v := range vec {
		vec32[i] = float32(v)
	}

	scored, err := s.store.Search(ctx, s.cfg.Qdrant.Collection, vec32, s.cfg.RAG.ScrollLimit, s.cfg.RAG.ScoreThreshold)
	if err != nil {
		s.logger.WithError(err).Warn("Similarity search failed, keeping price order")
		return filtered
	}

	rankByID := make(map[int]int, len(scored))
	for rank, sp := range scored {
		if id, ok := pointIDToInt(sp.ID); ok {
			rankByID[id] = rank
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		ri, iok := rankByID[filtered[i].ID]
		rj, jok := rankByID[filtered[j].ID]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
	return filtered
}

func pointIDToInt(v interface{}) (int, bool) {
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
