// internal/services/completion_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/vectorstore"
)

// systemPrompt encodes the grounding contract: the context block is the only
// permitted source of product facts for the generated answer.
const systemPrompt = "You are ShopMate, a friendly shopping assistant for an online store. " +
	"A catalog context block accompanies every shopper question; it is your ONLY source of product facts. " +
	"Never invent products, prices, categories, or availability. " +
	"If the context does not contain the information needed, say so explicitly instead of guessing. " +
	"When the context says no products match or that the catalog is unavailable, tell the shopper exactly that. " +
	"Keep answers concise."

// CompletionService builds the grounded prompt and dispatches the streaming
// completion request. It also owns the readiness predicate the rest of the
// system branches on.
type CompletionService struct {
	store      *vectorstore.Client
	cfg        *config.Config
	httpClient *http.Client
	logger     *logrus.Logger
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  chatOptions          `json:"options"`
}

// chatOptions are the sampling knobs sent with every completion. Defaults
// favor determinism and factual grounding over creativity.
type chatOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

func NewCompletionService(store *vectorstore.Client, cfg *config.Config, logger *logrus.Logger) *CompletionService {
	return &CompletionService{
		store: store,
		cfg:   cfg,
		httpClient: &http.Client{
			// Bounds the whole streamed completion, not just the dial.
			Timeout: time.Duration(cfg.Ollama.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// Ready reports whether grounded answers are currently possible: the
// products collection must exist AND contain at least one point. An
// existing-but-empty collection is not ready. Failures are logged and read
// as not ready, never raised.
func (s *CompletionService) Ready(ctx context.Context) bool {
	exists, err := s.store.CollectionExists(ctx, s.cfg.Qdrant.Collection)
	if err != nil {
		s.logger.WithError(err).Warn("Readiness check could not reach the vector store")
		return false
	}
	if !exists {
		return false
	}

	count, err := s.store.CountPoints(ctx, s.cfg.Qdrant.Collection)
	if err != nil {
		s.logger.WithError(err).Warn("Readiness check could not count catalog points")
		return false
	}
	return count > 0
}

// BuildMessages produces the fixed two-message prompt: the grounding system
// instruction and a user message combining the assembled context with the
// literal shopper question.
func (s *CompletionService) BuildMessages(ragCtx models.RagContext) []models.ChatMessage {
	user := fmt.Sprintf("%s\n\nShopper question: %s", ragCtx.ContextText, ragCtx.Query)
	return []models.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// StreamChat dispatches the completion request and hands the line-delimited
// response body to the caller, who owns closing it. Transport failures and
// non-success statuses return an error; there is no retry here.
func (s *CompletionService) StreamChat(ctx context.Context, messages []models.ChatMessage) (io.ReadCloser, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:    s.cfg.Ollama.ChatModel,
		Messages: messages,
		Stream:   true,
		Options: chatOptions{
			Temperature:   s.cfg.Ollama.Temperature,
			TopP:          s.cfg.Ollama.TopP,
			RepeatPenalty: s.cfg.Ollama.RepeatPenalty,
			NumPredict:    s.cfg.Ollama.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := s.cfg.Ollama.URL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.WithFields(logrus.Fields{
		"model":    s.cfg.Ollama.ChatModel,
		"messages": len(messages),
	}).Debug("Completion stream opened")

	return resp.Body, nil
}

// HealthCheck verifies the inference server answers at all.
func (s *CompletionService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Ollama.URL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}
	return nil
}
