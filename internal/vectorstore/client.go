// internal/vectorstore/client.go
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Client talks to a Qdrant-style vector store over its REST interface.
// It is safe for concurrent use; all state lives on the remote side.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// StatusError is returned for non-2xx responses so callers can distinguish
// a missing collection from a transport failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vector store returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Point is one stored vector with its payload. IDs are numeric for catalog
// points; the field stays untyped because JSON hands numbers back as float64.
type Point struct {
	ID      interface{}            `json:"id"`
	Vector  []float32              `json:"vector,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ScoredPoint is one similarity search result.
type ScoredPoint struct {
	ID      interface{}            `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewClient validates the configuration and returns a ready client.
func NewClient(config *Config, logger *logrus.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vector store config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// HealthCheck hits the root endpoint. Qdrant serves version info there on
// every release line, unlike /health which newer versions dropped.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector store unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	url := c.config.BaseURL() + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// ListCollections returns the names of all collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var response struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	names := make([]string, len(response.Result.Collections))
	for i, col := range response.Result.Collections {
		names[i] = col.Name
	}
	return names, nil
}

// CollectionExists checks for a collection. A 404 means it does not exist;
// any other failure is reported as an error.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return true, nil
}

// CreateCollection creates a collection with the given vector size and
// distance metric.
func (c *Client) CreateCollection(ctx context.Context, name string, vectorDim int, distance string) error {
	reqBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorDim,
			"distance": distance,
		},
	}

	if _, err := c.doRequest(ctx, http.MethodPut, "/collections/"+name, reqBody); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"collection": name,
		"dim":        vectorDim,
		"distance":   distance,
	}).Info("Collection created")
	return nil
}

// DeleteCollection removes a collection and all its points.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/collections/"+name, nil); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	c.logger.WithField("collection", name).Info("Collection deleted")
	return nil
}

// UpsertPoints inserts or fully replaces points keyed by their IDs.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	reqBody := map[string]interface{}{
		"points": points,
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	if _, err := c.doRequest(ctx, http.MethodPut, path, reqBody); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"collection": collection,
		"count":      len(points),
	}).Debug("Points upserted")
	return nil
}

// Scroll enumerates up to limit points with payloads, without vectors.
// One bounded page only: catalogs beyond the limit are intentionally
// truncated rather than paginated.
func (c *Client) Scroll(ctx context.Context, collection string, limit int) ([]Point, error) {
	reqBody := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", collection)
	respBody, err := c.doRequest(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	var response struct {
		Result struct {
			Points []Point `json:"points"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return response.Result.Points, nil
}

// Search runs a similarity query and returns scored payloads.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	reqBody := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		reqBody["score_threshold"] = scoreThreshold
	}

	path := fmt.Sprintf("/collections/%s/points/search", collection)
	respBody, err := c.doRequest(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var response struct {
		Result []ScoredPoint `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return response.Result, nil
}

// CountPoints returns the exact number of points in a collection.
func (c *Client) CountPoints(ctx context.Context, collection string) (int, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", collection), map[string]interface{}{
		"exact": true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	var response struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	return response.Result.Count, nil
}
