package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Store      StoreConfig
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Completion CompletionConfig
	Chunking   ChunkingConfig
	Storage    StorageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig selects and tunes the vector store backend.
// Backend is "supabase" (hosted, PostgREST wire protocol) or "pgvector"
// (self-hosted Postgres reached through the database pool).
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Table       string `yaml:"table"`
	BatchSize   int    `yaml:"batch_size"`
	SupabaseURL string `yaml:"-"`
	SupabaseKey string `yaml:"-"`
}

type LLMConfig struct {
	OpenAIKey      string
	AnthropicKey   string
	OllamaURL      string
	HuggingFaceKey string
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BatchSize int           `yaml:"batch_size"`
	CacheTTL  time.Duration `yaml:"-"`
}

type CompletionConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"-"`
	TimeoutSecs int           `yaml:"timeout_secs"`
}

type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

type StorageConfig struct {
	Bucket string
}

// fileConfig is the optional YAML overlay (RAG_CONFIG_FILE, default
// config.yaml). Only tuning knobs live here; credentials stay in the
// environment.
type fileConfig struct {
	Store      *StoreConfig      `yaml:"store"`
	Embedding  *EmbeddingConfig  `yaml:"embedding"`
	Completion *CompletionConfig `yaml:"completion"`
	Chunking   *ChunkingConfig   `yaml:"chunking"`
}

// Load builds the configuration from the environment. A .env file in the
// working directory is folded in first; an optional YAML file overrides
// the tuning sections last.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	batchSize, err := getEnvInt("STORE_BATCH_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_BATCH_SIZE: %w", err)
	}
	embedBatch, err := getEnvInt("EMBED_BATCH_SIZE", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_BATCH_SIZE: %w", err)
	}
	cacheTTL, err := getEnvInt("EMBED_CACHE_TTL_SECS", 3600)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_CACHE_TTL_SECS: %w", err)
	}
	completionTimeout, err := getEnvInt("COMPLETION_TIMEOUT_SECS", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_TIMEOUT_SECS: %w", err)
	}
	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}
	overlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", "supabase"),
			Table:       getEnv("STORE_TABLE", "embeddings"),
			BatchSize:   batchSize,
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_KEY", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
			HuggingFaceKey: getEnv("HF_API_KEY", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BatchSize: embedBatch,
			CacheTTL:  time.Duration(cacheTTL) * time.Second,
		},
		Completion: CompletionConfig{
			Provider:    getEnv("COMPLETION_PROVIDER", "huggingface"),
			Model:       getEnv("COMPLETION_MODEL", "meta-llama/Llama-2-7b-chat-hf"),
			MaxTokens:   512,
			Temperature: 0.2,
			Timeout:     time.Duration(completionTimeout) * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize: chunkSize,
			Overlap:   overlap,
		},
		Storage: StorageConfig{
			Bucket: getEnv("STORAGE_BUCKET", "documents"),
		},
	}

	if err := applyFile(cfg, getEnv("RAG_CONFIG_FILE", "config.yaml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Store != nil {
		if fc.Store.Backend != "" {
			cfg.Store.Backend = fc.Store.Backend
		}
		if fc.Store.Table != "" {
			cfg.Store.Table = fc.Store.Table
		}
		if fc.Store.BatchSize > 0 {
			cfg.Store.BatchSize = fc.Store.BatchSize
		}
	}
	if fc.Embedding != nil {
		if fc.Embedding.Provider != "" {
			cfg.Embedding.Provider = fc.Embedding.Provider
		}
		if fc.Embedding.Model != "" {
			cfg.Embedding.Model = fc.Embedding.Model
		}
		if fc.Embedding.BatchSize > 0 {
			cfg.Embedding.BatchSize = fc.Embedding.BatchSize
		}
	}
	if fc.Completion != nil {
		if fc.Completion.Provider != "" {
			cfg.Completion.Provider = fc.Completion.Provider
		}
		if fc.Completion.Model != "" {
			cfg.Completion.Model = fc.Completion.Model
		}
		if fc.Completion.MaxTokens > 0 {
			cfg.Completion.MaxTokens = fc.Completion.MaxTokens
		}
		if fc.Completion.TimeoutSecs > 0 {
			cfg.Completion.Timeout = time.Duration(fc.Completion.TimeoutSecs) * time.Second
		}
	}
	if fc.Chunking != nil {
		if fc.Chunking.ChunkSize > 0 {
			cfg.Chunking.ChunkSize = fc.Chunking.ChunkSize
		}
		if fc.Chunking.Overlap > 0 {
			cfg.Chunking.Overlap = fc.Chunking.Overlap
		}
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Store.Backend == "supabase" {
		if c.Store.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.Store.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_KEY")
		}
	}
	if c.Store.Backend == "pgvector" && c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
