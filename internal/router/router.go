// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/handlers"
	"github.com/shopmate/shopmate-backend/internal/middleware"
	"github.com/shopmate/shopmate-backend/internal/services"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

// Initialize wires services, handlers and routes. The catalog service is
// returned alongside the engine so main can run seed-on-start before
// accepting traffic.
func Initialize(store *vectorstore.Client, cfg *config.Config, logger *logrus.Logger) (*gin.Engine, *services.CatalogService) {
	// Initialize services
	embeddingService := services.NewEmbeddingService(cfg.Ollama, cfg.Qdrant.VectorDim, logger)
	queryParser := services.NewQueryParser(logger)
	contextAssembler := services.NewContextAssembler(cfg.RAG)
	ragService := services.NewRAGService(store, embeddingService, queryParser, contextAssembler, cfg, logger)
	completionService := services.NewCompletionService(store, cfg, logger)
	streamRelay := services.NewStreamRelay(logger)
	chatService := services.NewChatService(ragService, completionService, streamRelay, logger)
	catalogService := services.NewCatalogService(store, embeddingService, cfg, logger)

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(ragService, catalogService, logger)
	chatHandler := handlers.NewChatHandler(chatService, cfg, logger)
	healthHandler := handlers.NewHealthHandler(store, completionService, logger)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Metrics())
	r.Use(middleware.GeneralRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	// Health check and metrics scrape
	r.GET("/health", healthHandler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Chat websocket
	r.GET("/ws/chat", chatHandler.HandleWS)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/products", catalogHandler.GetProducts)
			catalog.GET("/categories", catalogHandler.GetCategories)
			catalog.GET("/stats", catalogHandler.GetStats)
		}

		chat := v1.Group("/chat")
		{
			chat.GET("/readiness", healthHandler.GetReadiness)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRateLimit())
		{
			admin.POST("/catalog/reseed", catalogHandler.Reseed)
		}
	}

	return r, catalogService
}
