// internal/services/embedding_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shopmate/shopmate-backend/internal/config"
)

// EmbeddingService turns text into fixed-dimension vectors via the Ollama
// embeddings endpoint.
type EmbeddingService struct {
	cfg        config.OllamaConfig
	vectorDim  int
	httpClient *http.Client
	logger     *logrus.Logger
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewEmbeddingService(cfg config.OllamaConfig, vectorDim int, logger *logrus.Logger) *EmbeddingService {
	return &EmbeddingService{
		cfg:       cfg,
		vectorDim: vectorDim,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// EmbedText embeds a single text. Empty input is rejected before the network
// call; a dimension mismatch with the configured store is an error because
// the resulting vector could never be upserted or searched.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	reqBody, err := json.Marshal(embeddingRequest{
		Model:  s.cfg.EmbedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := s.cfg.URL + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("embedding endpoint returned an empty vector")
	}
	if s.vectorDim > 0 && len(embResp.Embedding) != s.vectorDim {
		return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(embResp.Embedding), s.vectorDim)
	}

	return embResp.Embedding, nil
}

// EmbedBatch embeds texts concurrently. Failures are isolated per item: the
// returned slices are index-aligned with the input, a nil vector at i pairs
// with a non-nil error at i, and one bad item never aborts the batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, concurrency int) ([][]float64, []error) {
	vectors := make([][]float64, len(texts))
	errs := make([]error, len(texts))

	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		i, text := i, text // per-iteration copies: required under go <1.22 loop semantics
		g.Go(func() error {
			vec, err := s.EmbedText(gctx, text)
			if err != nil {
				errs[i] = err
				s.logger.WithError(err).WithField("index", i).Warn("Embedding failed for batch item")
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}

	// Goroutines always return nil, so the only possible error is context
	// cancellation surfacing through gctx inside EmbedText.
	_ = g.Wait()

	return vectors, errs
}

// HealthCheck verifies the inference server answers at all.
func (s *EmbeddingService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"/api/tags", nil)
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
