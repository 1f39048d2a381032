package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Ingest      IngestConfig    `toml:"ingest"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
	GCSchedule     string `toml:"gc_schedule"`              // Cron schedule for value-log garbage collection
}

type FilesystemConfig struct {
	Uploads string `toml:"uploads" validate:"required"` // Directory for raw uploaded files
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// IngestConfig controls the upload pipeline: parsing, chunking and embedding.
type IngestConfig struct {
	ChunkSize      int   `toml:"chunk_size" validate:"gt=0"`                       // Max characters per chunk
	ChunkOverlap   int   `toml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"` // Characters carried between adjacent chunks
	EmbedBatchSize int   `toml:"embed_batch_size" validate:"gt=0"`                 // Max texts per embedding provider call
	MaxUploadBytes int64 `toml:"max_upload_bytes" validate:"gt=0"`                 // Upload size limit
	Workers        int   `toml:"workers" validate:"gt=0"`                          // Concurrent chunk writers per document
}

// RetrievalConfig controls similarity search behavior.
type RetrievalConfig struct {
	TopK         int     `toml:"top_k" validate:"gt=0"`             // Max chunks returned per query
	Threshold    float32 `toml:"threshold" validate:"gte=-1,lte=1"` // Minimum cosine similarity
	HistoryLimit int     `toml:"history_limit" validate:"gte=0"`    // Max prior messages passed to generation (0 = all)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey             string  `toml:"api_key"`             // Google Gemini API key
	Model              string  `toml:"model"`               // Model for chat generation (default: "gemini-2.0-flash")
	EmbeddingModel     string  `toml:"embedding_model"`     // Model for embeddings (default: "text-embedding-004")
	EmbeddingDimension int     `toml:"embedding_dimension"` // Output vector size (default: 768)
	Timeout            string  `toml:"timeout"`             // Operation timeout as duration string (default: "2m")
	RateLimit          string  `toml:"rate_limit"`          // Minimum interval between calls (default: "4s" for 15 RPM)
	Temperature        float32 `toml:"temperature"`         // Chat completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for chat generation (default: "claude-3-5-haiku-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generation provider. Embeddings always use Gemini.
type LLMConfig struct {
	Provider LLMProvider `toml:"provider" validate:"oneof=gemini claude"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in docquery.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCSchedule: "0 */30 * * * *", // Every 30 minutes (cron with seconds)
			},
			Filesystem: FilesystemConfig{
				Uploads: "./data/uploads",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Ingest: IngestConfig{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			EmbedBatchSize: 100, // Provider hard limit per request
			MaxUploadBytes: 25 * 1024 * 1024,
			Workers:        4,
		},
		Retrieval: RetrievalConfig{
			TopK:         5,
			Threshold:    0.7,
			HistoryLimit: 20,
		},
		Gemini: GeminiConfig{
			APIKey:             "", // User must provide API key (no fallback)
			Model:              "gemini-2.0-flash",
			EmbeddingModel:     "text-embedding-004",
			EmbeddingDimension: 768,
			Timeout:            "2m",
			RateLimit:          "4s", // Default to 4s (15 RPM) for free tier
			Temperature:        0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			Provider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files, later files
// overriding earlier files. Priority: CLI flags > env vars > last file >
// ... > first file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: DOCQUERY_ENV, fallback: GO_ENV)
	if env := os.Getenv("DOCQUERY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DOCQUERY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCQUERY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("DOCQUERY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uploads := os.Getenv("DOCQUERY_UPLOADS_DIR"); uploads != "" {
		config.Storage.Filesystem.Uploads = uploads
	}
	if gcSchedule := os.Getenv("DOCQUERY_BADGER_GC_SCHEDULE"); gcSchedule != "" {
		config.Storage.Badger.GCSchedule = gcSchedule
	}

	// Logging configuration
	if level := os.Getenv("DOCQUERY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DOCQUERY_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("DOCQUERY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Ingest configuration
	if chunkSize := os.Getenv("DOCQUERY_INGEST_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Ingest.ChunkSize = cs
		}
	}
	if chunkOverlap := os.Getenv("DOCQUERY_INGEST_CHUNK_OVERLAP"); chunkOverlap != "" {
		if co, err := strconv.Atoi(chunkOverlap); err == nil {
			config.Ingest.ChunkOverlap = co
		}
	}
	if batchSize := os.Getenv("DOCQUERY_INGEST_EMBED_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Ingest.EmbedBatchSize = bs
		}
	}
	if maxUpload := os.Getenv("DOCQUERY_INGEST_MAX_UPLOAD_BYTES"); maxUpload != "" {
		if mu, err := strconv.ParseInt(maxUpload, 10, 64); err == nil {
			config.Ingest.MaxUploadBytes = mu
		}
	}
	if workers := os.Getenv("DOCQUERY_INGEST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Ingest.Workers = w
		}
	}

	// Retrieval configuration
	if topK := os.Getenv("DOCQUERY_RETRIEVAL_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = k
		}
	}
	if threshold := os.Getenv("DOCQUERY_RETRIEVAL_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 32); err == nil {
			config.Retrieval.Threshold = float32(t)
		}
	}
	if historyLimit := os.Getenv("DOCQUERY_RETRIEVAL_HISTORY_LIMIT"); historyLimit != "" {
		if hl, err := strconv.Atoi(historyLimit); err == nil {
			config.Retrieval.HistoryLimit = hl
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("DOCQUERY_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("DOCQUERY_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if embModel := os.Getenv("DOCQUERY_GEMINI_EMBEDDING_MODEL"); embModel != "" {
		config.Gemini.EmbeddingModel = embModel
	}
	if embDim := os.Getenv("DOCQUERY_GEMINI_EMBEDDING_DIMENSION"); embDim != "" {
		if d, err := strconv.Atoi(embDim); err == nil {
			config.Gemini.EmbeddingDimension = d
		}
	}
	if timeout := os.Getenv("DOCQUERY_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("DOCQUERY_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("DOCQUERY_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCQUERY_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // DOCQUERY_ prefix takes priority
	}
	if model := os.Getenv("DOCQUERY_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("DOCQUERY_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("DOCQUERY_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("DOCQUERY_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("DOCQUERY_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("DOCQUERY_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
