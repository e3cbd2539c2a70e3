// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Qdrant      QdrantConfig
	Ollama      OllamaConfig
	RAG         RAGConfig
	Chat        ChatConfig
	Catalog     CatalogConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorDim  int
	Distance   string
	Timeout    int // seconds
}

type OllamaConfig struct {
	URL           string
	ChatModel     string
	EmbedModel    string
	Timeout       int // seconds, bounds one completion request
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	MaxTokens     int
}

type RAGConfig struct {
	ScrollLimit    int
	MaxFiltered    int
	MaxFeatured    int
	SemanticRerank bool
	ScoreThreshold float64
}

type ChatConfig struct {
	MessagesPerMinute int
	ReadLimitBytes    int64
	PongWaitSeconds   int
}

type CatalogConfig struct {
	SeedMode         string
	SeedOnStart      bool
	SeedFile         string
	EmbedConcurrency int
}

// Seed modes. Real embeddings are the canonical path; synthetic vectors are
// a deterministic fallback for environments without an embedding model.
const (
	SeedModeEmbeddings = "embeddings"
	SeedModeSynthetic  = "synthetic"
)

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "products"),
			VectorDim:  getEnvAsInt("QDRANT_VECTOR_DIM", 768),
			Distance:   getEnv("QDRANT_DISTANCE", "Cosine"),
			Timeout:    getEnvAsInt("QDRANT_TIMEOUT_SECONDS", 10),
		},
		Ollama: OllamaConfig{
			URL:           getEnv("OLLAMA_URL", "http://localhost:11434"),
			ChatModel:     getEnv("OLLAMA_CHAT_MODEL", "llama3.2"),
			EmbedModel:    getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			Timeout:       getEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 120),
			Temperature:   getEnvAsFloat("OLLAMA_TEMPERATURE", 0.2),
			TopP:          getEnvAsFloat("OLLAMA_TOP_P", 0.9),
			RepeatPenalty: getEnvAsFloat("OLLAMA_REPEAT_PENALTY", 1.15),
			MaxTokens:     getEnvAsInt("OLLAMA_MAX_TOKENS", 1024),
		},
		RAG: RAGConfig{
			ScrollLimit:    getEnvAsInt("RAG_SCROLL_LIMIT", 100),
			MaxFiltered:    getEnvAsInt("RAG_MAX_FILTERED", 8),
			MaxFeatured:    getEnvAsInt("RAG_MAX_FEATURED", 5),
			SemanticRerank: getEnvAsBool("RAG_SEMANTIC_RERANK", false),
			ScoreThreshold: getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.0),
		},
		Chat: ChatConfig{
			MessagesPerMinute: getEnvAsInt("CHAT_MESSAGES_PER_MINUTE", 20),
			ReadLimitBytes:    int64(getEnvAsInt("CHAT_READ_LIMIT_BYTES", 4096)),
			PongWaitSeconds:   getEnvAsInt("CHAT_PONG_WAIT_SECONDS", 60),
		},
		Catalog: CatalogConfig{
			SeedMode:         getEnv("CATALOG_SEED_MODE", SeedModeEmbeddings),
			SeedOnStart:      getEnvAsBool("CATALOG_SEED_ON_START", true),
			SeedFile:         getEnv("CATALOG_SEED_FILE", ""),
			EmbedConcurrency: getEnvAsInt("CATALOG_EMBED_CONCURRENCY", 4),
		},
	}

	return config, config.Validate()
}

// Validate fails fast on configuration that would otherwise surface as a
// confusing error on first use.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Server.Port)
	}

	if err := validateBaseURL("QDRANT_URL", c.Qdrant.URL); err != nil {
		return err
	}
	if err := validateBaseURL("OLLAMA_URL", c.Ollama.URL); err != nil {
		return err
	}

	if c.Qdrant.Collection == "" {
		return fmt.Errorf("QDRANT_COLLECTION must not be empty")
	}
	if c.Qdrant.VectorDim <= 0 {
		return fmt.Errorf("QDRANT_VECTOR_DIM must be positive, got %d", c.Qdrant.VectorDim)
	}

	switch c.Catalog.SeedMode {
	case SeedModeEmbeddings, SeedModeSynthetic:
	default:
		return fmt.Errorf("CATALOG_SEED_MODE must be %q or %q, got %q",
			SeedModeEmbeddings, SeedModeSynthetic, c.Catalog.SeedMode)
	}
	if c.Catalog.EmbedConcurrency < 1 {
		return fmt.Errorf("CATALOG_EMBED_CONCURRENCY must be at least 1, got %d", c.Catalog.EmbedConcurrency)
	}

	if c.RAG.ScrollLimit < 1 {
		return fmt.Errorf("RAG_SCROLL_LIMIT must be at least 1, got %d", c.RAG.ScrollLimit)
	}

	return nil
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
