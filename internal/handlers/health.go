// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/services"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

type HealthHandler struct {
	store      *vectorstore.Client
	completion *services.CompletionService
	logger     *logrus.Logger
}

func NewHealthHandler(store *vectorstore.Client, completion *services.CompletionService, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		store:      store,
		completion: completion,
		logger:     logger,
	}
}

// GetHealth probes both upstream dependencies. A down dependency degrades
// the report and the status code but never panics or blocks for long.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	components := gin.H{
		"vector_store": "up",
		"llm":          "up",
	}
	healthy := true

	if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.WithError(err).Warn("Vector store health check failed")
		components["vector_store"] = "down"
		healthy = false
	}
	if err := h.completion.HealthCheck(ctx); err != nil {
		h.logger.WithError(err).Warn("LLM health check failed")
		components["llm"] = "down"
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// GetReadiness reports whether chat replies can be grounded in catalog
// facts. Readiness is a state, not an error: the response is always 200.
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	ready := h.completion.Ready(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"ready": ready,
	})
}
