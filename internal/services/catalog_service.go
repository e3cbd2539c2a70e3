// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/utils"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

// defaultCatalog is the built-in seed fixture, used when no seed file is
// configured. The query parser's category and keyword vocabularies align
// with it.
var defaultCatalog = []models.Product{
	{ID: 1, Name: "AirPods Pro", Price: 249.00, Category: "electronics", Description: "Wireless noise-cancelling earbuds with adaptive transparency and spatial audio."},
	{ID: 2, Name: "MacBook Air M3", Price: 1299.00, Category: "electronics", Description: "13-inch laptop with the M3 chip, 16GB unified memory and all-day battery life."},
	{ID: 3, Name: "Sony WH-1000XM5", Price: 399.99, Category: "electronics", Description: "Over-ear wireless headphones with industry-leading noise cancellation."},
	{ID: 4, Name: "Nike Air Max 270", Price: 150.00, Category: "footwear", Description: "Lifestyle sneakers with a large Air unit for all-day comfort."},
	{ID: 5, Name: "Adidas Ultraboost 22", Price: 180.00, Category: "footwear", Description: "Running shoes with responsive Boost cushioning and a knit upper."},
	{ID: 6, Name: "Levi's 501 Original Jeans", Price: 89.50, Category: "clothing", Description: "Classic straight-fit denim jeans with the original button fly."},
	{ID: 7, Name: "Patagonia Better Sweater", Price: 139.00, Category: "clothing", Description: "Fleece jacket knit from recycled polyester, warm and breathable."},
	{ID: 8, Name: "Instant Pot Duo 7-in-1", Price: 99.95, Category: "kitchen", Description: "Electric pressure cooker that also slow cooks, steams and makes yogurt."},
	{ID: 9, Name: "Dyson V15 Detect", Price: 649.99, Category: "home", Description: "Cordless vacuum with laser dust detection and up to 60 minutes of runtime."},
	{ID: 10, Name: "Yeti Rambler 26 oz", Price: 45.00, Category: "accessories", Description: "Insulated stainless-steel water bottle that keeps drinks cold all day."},
}

// DefaultCatalog returns a copy of the built-in fixture.
func DefaultCatalog() []models.Product {
	products := make([]models.Product, len(defaultCatalog))
	copy(products, defaultCatalog)
	return products
}

// CatalogService owns the product collection lifecycle: creating it and
// seeding it with embedded products. Real embeddings are the canonical seed
// path; synthetic deterministic vectors exist for environments without an
// embedding model and must be requested by name.
type CatalogService struct {
	store    *vectorstore.Client
	embedder *EmbeddingService
	cfg      *config.Config
	logger   *logrus.Logger
}

func NewCatalogService(store *vectorstore.Client, embedder *EmbeddingService, cfg *config.Config, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoadSeedProducts returns the products to seed: the configured YAML file if
// set, the built-in fixture otherwise. Every product is validated; a bad
// seed file is a configuration error and fails the whole load.
func (s *CatalogService) LoadSeedProducts() ([]models.Product, error) {
	products := DefaultCatalog()

	if path := s.cfg.Catalog.SeedFile; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}

		var seedFile struct {
			Products []models.Product `yaml:"products"`
		}
		if err := yaml.Unmarshal(data, &seedFile); err != nil {
			return nil, fmt.Errorf("failed to parse seed file: %w", err)
		}
		if len(seedFile.Products) == 0 {
			return nil, fmt.Errorf("seed file %s contains no products", path)
		}
		products = seedFile.Products
	}

	for i, p := range products {
		if err := utils.ValidateStruct(p); err != nil {
			return nil, fmt.Errorf("seed product %d (%s) is invalid: %w", i, p.Name, err)
		}
	}
	return products, nil
}

// EnsureCollection creates the products collection if it does not exist.
func (s *CatalogService) EnsureCollection(ctx context.Context) error {
	exists, err := s.store.CollectionExists(ctx, s.cfg.Qdrant.Collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.store.CreateCollection(ctx, s.cfg.Qdrant.Collection, s.cfg.Qdrant.VectorDim, s.cfg.Qdrant.Distance)
}

// Seed loads the seed products, vectorizes them per mode, and upserts them.
// In embeddings mode one product's failed embedding skips that product only;
// the rest of the batch still lands. Returns how many products were seeded.
func (s *CatalogService) Seed(ctx context.Context, mode string) (int, error) {
	products, err := s.LoadSeedProducts()
	if err != nil {
		return 0, err
	}

	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	var points []vectorstore.Point

	switch mode {
	case config.SeedModeEmbeddings:
		texts := make([]string, len(products))
		for i, p := range products {
			texts[i] = p.EmbeddingText()
		}

		vectors, errs := s.embedder.EmbedBatch(ctx, texts, s.cfg.Catalog.EmbedConcurrency)
		for i, p := range products {
			if errs[i] != nil {
				s.logger.WithError(errs[i]).WithField("product", p.Name).Warn("Skipping product, embedding failed")
				continue
			}
			points = append(points, vectorstore.Point{
				ID:      p.ID,
				Vector:  toFloat32(vectors[i]),
				Payload: p.Payload(),
			})
		}

	case config.SeedModeSynthetic:
		for _, p := range products {
			points = append(points, vectorstore.Point{
				ID:      p.ID,
				Vector:  syntheticVector(p.ID, s.cfg.Qdrant.VectorDim),
				Payload: p.Payload(),
			})
		}

	default:
		return 0, fmt.Errorf("unknown seed mode %q", mode)
	}

	if len(points) == 0 {
		return 0, errors.New("no products could be vectorized, nothing to seed")
	}

	if err := s.store.UpsertPoints(ctx, s.cfg.Qdrant.Collection, points); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"collection": s.cfg.Qdrant.Collection,
		"mode":       mode,
		"seeded":     len(points),
		"skipped":    len(products) - len(points),
	}).Info("Catalog seeded")

	return len(points), nil
}

// EnsureSeeded seeds the catalog at startup when the collection is absent or
// empty; an already-populated collection is left untouched.
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	exists, err := s.store.CollectionExists(ctx, s.cfg.Qdrant.Collection)
	if err != nil {
		return err
	}

	if exists {
		count, err := s.store.CountPoints(ctx, s.cfg.Qdrant.Collection)
		if err != nil {
			return err
		}
		if count > 0 {
			s.logger.WithField("count", count).Info("Catalog already seeded")
			return nil
		}
	}

	_, err = s.Seed(ctx, s.cfg.Catalog.SeedMode)
	return err
}

// Reseed drops the collection and seeds it from scratch. An empty mode uses
// the configured default.
func (s *CatalogService) Reseed(ctx context.Context, mode string) (int, error) {
	if mode == "" {
		mode = s.cfg.Catalog.SeedMode
	}

	exists, err := s.store.CollectionExists(ctx, s.cfg.Qdrant.Collection)
	if err != nil {
		return 0, err
	}
	if exists {
		if err := s.store.DeleteCollection(ctx, s.cfg.Qdrant.Collection); err != nil {
			return 0, err
		}
	}

	return s.Seed(ctx, mode)
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// syntheticVector builds a deterministic unit vector from the product ID, so
// repeated synthetic seeds are stable across runs.
func syntheticVector(seed, dim int) []float32 {
	rng := rand.New(rand.NewSource(int64(seed)))

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
