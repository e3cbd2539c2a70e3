// internal/services/rag_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

// fakeCatalogStore serves the store endpoints the pipeline reads: scroll,
// collection info and count.
func fakeCatalogStore(t *testing.T, products []models.Product) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/scroll"):
			points := make([]map[string]interface{}, len(products))
			for i, p := range products {
				points[i] = map[string]interface{}{"id": p.ID, "payload": p.Payload()}
			}
			writeJSON(w, map[string]interface{}{
				"result": map[string]interface{}{"points": points},
			})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/count"):
			writeJSON(w, map[string]interface{}{
				"result": map[string]interface{}{"count": len(products)},
			})

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/collections/"):
			writeJSON(w, map[string]interface{}{"result": map[string]interface{}{"status": "green"}})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestConfig(storeURL string) *config.Config {
	return &config.Config{
		Environment: "test",
		Qdrant: config.QdrantConfig{
			URL:        storeURL,
			Collection: "products",
			VectorDim:  4,
			Distance:   "Cosine",
			Timeout:    5,
		},
		Ollama: config.OllamaConfig{
			URL:        "http://localhost:11434",
			ChatModel:  "llama3.2",
			EmbedModel: "nomic-embed-text",
			Timeout:    5,
		},
		RAG: config.RAGConfig{
			ScrollLimit: 100,
			MaxFiltered: 8,
			MaxFeatured: 5,
		},
	}
}

func newTestRAG(t *testing.T, cfg *config.Config) *RAGService {
	t.Helper()

	store, err := vectorstore.NewClient(&vectorstore.Config{
		URL:     cfg.Qdrant.URL,
		Timeout: 5 * time.Second,
	}, testLogger())
	require.NoError(t, err)

	embedder := NewEmbeddingService(cfg.Ollama, cfg.Qdrant.VectorDim, testLogger())
	return NewRAGService(store, embedder, NewQueryParser(testLogger()), NewContextAssembler(cfg.RAG), cfg, testLogger())
}

func TestFilterProducts(t *testing.T) {
	catalog := DefaultCatalog()
	min, max := 100.0, 300.0

	t.Run("empty filter restricts nothing", func(t *testing.T) {
		assert.Len(t, FilterProducts(catalog, models.QueryFilter{}), len(catalog))
	})

	t.Run("price bounds are inclusive", func(t *testing.T) {
		exact := 249.0
		matched := FilterProducts(catalog, models.QueryFilter{MinPrice: &exact, MaxPrice: &exact})
		require.Len(t, matched, 1)
		assert.Equal(t, "AirPods Pro", matched[0].Name)
	})

	t.Run("category is case-insensitive substring", func(t *testing.T) {
		matched := FilterProducts(catalog, models.QueryFilter{Category: "ELECTRON"})
		assert.Len(t, matched, 3)
	})

	t.Run("keyword matches name or description", func(t *testing.T) {
		byName := FilterProducts(catalog, models.QueryFilter{Keywords: []string{"macbook"}})
		require.Len(t, byName, 1)
		assert.Equal(t, "MacBook Air M3", byName[0].Name)

		byDescription := FilterProducts(catalog, models.QueryFilter{Keywords: []string{"vacuum"}})
		require.Len(t, byDescription, 1)
		assert.Equal(t, "Dyson V15 Detect", byDescription[0].Name)
	})

	t.Run("any keyword suffices", func(t *testing.T) {
		matched := FilterProducts(catalog, models.QueryFilter{Keywords: []string{"airpods", "macbook"}})
		assert.Len(t, matched, 2)
	})

	t.Run("fields combine as a conjunction", func(t *testing.T) {
		matched := FilterProducts(catalog, models.QueryFilter{
			MinPrice: &min,
			MaxPrice: &max,
			Category: "electronics",
		})
		require.Len(t, matched, 1)
		assert.Equal(t, "AirPods Pro", matched[0].Name)
	})

	t.Run("inverted bounds match nothing", func(t *testing.T) {
		lo, hi := 300.0, 100.0
		assert.Empty(t, FilterProducts(catalog, models.QueryFilter{MinPrice: &lo, MaxPrice: &hi}))
	})

	t.Run("filtering is idempotent", func(t *testing.T) {
		filter := models.QueryFilter{Category: "electronics", MaxPrice: &max}
		once := FilterProducts(catalog, filter)
		twice := FilterProducts(once, filter)
		assert.Equal(t, once, twice)
	})
}

func TestRetrieve(t *testing.T) {
	server := fakeCatalogStore(t, DefaultCatalog())
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	max := 300.0
	all, filtered := rag.Retrieve(context.Background(), models.QueryFilter{MaxPrice: &max, Category: "electronics"})

	assert.Len(t, all, 10)
	require.Len(t, filtered, 1)
	assert.Equal(t, "AirPods Pro", filtered[0].Name)

	// The full set comes back ordered by ID.
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestRetrieveRanksByPrice(t *testing.T) {
	server := fakeCatalogStore(t, DefaultCatalog())
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	_, filtered := rag.Retrieve(context.Background(), models.QueryFilter{Category: "electronics"})
	require.Len(t, filtered, 3)
	assert.Equal(t, "AirPods Pro", filtered[0].Name)
	assert.Equal(t, "Sony WH-1000XM5", filtered[1].Name)
	assert.Equal(t, "MacBook Air M3", filtered[2].Name)
}

func TestRetrieveStoreDownYieldsEmptySets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	all, filtered := rag.Retrieve(context.Background(), models.QueryFilter{})
	assert.Empty(t, all)
	assert.Empty(t, filtered)
}

func TestRetrieveSkipsMalformedPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"result": map[string]interface{}{
				"points": []map[string]interface{}{
					{"id": 1, "payload": map[string]interface{}{"name": "Good", "price": 10.0, "category": "kitchen"}},
					{"id": 2, "payload": map[string]interface{}{"price": 20.0}}, // no name
					{"id": "not-numeric", "payload": map[string]interface{}{"name": "Bad ID"}},
				},
			},
		})
	}))
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	all, _ := rag.Retrieve(context.Background(), models.QueryFilter{})
	require.Len(t, all, 1)
	assert.Equal(t, "Good", all[0].Name)
}

func TestBuildContext(t *testing.T) {
	server := fakeCatalogStore(t, DefaultCatalog())
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	ragCtx := rag.BuildContext(context.Background(), "show me electronics under $300")

	assert.True(t, ragCtx.HasResults)
	assert.Empty(t, ragCtx.ErrorMessage)
	assert.Equal(t, 10, ragCtx.GlobalStats.Count)
	assert.Equal(t, "electronics", ragCtx.Filter.Category)
	require.NotNil(t, ragCtx.Filter.MaxPrice)
	assert.Equal(t, 300.0, *ragCtx.Filter.MaxPrice)

	require.Len(t, ragCtx.Matches, 1)
	assert.Equal(t, "AirPods Pro", ragCtx.Matches[0].Product.Name)
	assert.Equal(t, 1.0, ragCtx.Matches[0].Score)

	// The context text carries the exact price string the reply quotes.
	assert.Contains(t, ragCtx.ContextText, "$249.00")
	assert.Contains(t, ragCtx.ContextText, "AirPods Pro")
}

func TestBuildContextScoresDescend(t *testing.T) {
	server := fakeCatalogStore(t, DefaultCatalog())
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	ragCtx := rag.BuildContext(context.Background(), "show me footwear")
	require.Len(t, ragCtx.Matches, 2)

	assert.Equal(t, "Nike Air Max 270", ragCtx.Matches[0].Product.Name)
	assert.Equal(t, 1.0, ragCtx.Matches[0].Score)
	assert.Equal(t, "Adidas Ultraboost 22", ragCtx.Matches[1].Product.Name)
	assert.Equal(t, 0.5, ragCtx.Matches[1].Score)
}

func TestBuildContextNoMatches(t *testing.T) {
	server := fakeCatalogStore(t, DefaultCatalog())
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	ragCtx := rag.BuildContext(context.Background(), "electronics under $5")

	assert.False(t, ragCtx.HasResults)
	assert.Empty(t, ragCtx.ErrorMessage)
	assert.Contains(t, ragCtx.ContextText, "No matching products")
}

func TestBuildContextDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rag := newTestRAG(t, newTestConfig(server.URL))

	ragCtx := rag.BuildContext(context.Background(), "show me electronics under $300")

	assert.False(t, ragCtx.HasResults)
	assert.Equal(t, "product catalog unavailable", ragCtx.ErrorMessage)
	assert.Contains(t, ragCtx.ContextText, "The product catalog is currently unavailable")
	assert.Empty(t, ragCtx.Matches)
}
