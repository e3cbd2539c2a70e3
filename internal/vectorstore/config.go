// internal/vectorstore/config.go
package vectorstore

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds connection settings for the vector store.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns settings for a local Qdrant instance.
func DefaultConfig() *Config {
	return &Config{
		URL:     "http://localhost:6333",
		Timeout: 10 * time.Second,
	}
}

// Validate checks the configuration at construction time so a bad base URL
// fails startup instead of the first request.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("vector store URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid vector store URL %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("vector store URL must use http or https, got %q", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("vector store URL has no host: %q", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("vector store timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// BaseURL returns the URL without a trailing slash, ready for path joining.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.URL, "/")
}
