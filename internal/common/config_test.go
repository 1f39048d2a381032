package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 100, cfg.Ingest.EmbedBatchSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.7, float64(cfg.Retrieval.Threshold), 1e-6)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "text-embedding-004", cfg.Gemini.EmbeddingModel)
	assert.Equal(t, 768, cfg.Gemini.EmbeddingDimension)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docquery.toml")
	content := `
environment = "production"

[server]
port = 9090

[ingest]
chunk_size = 500
chunk_overlap = 50

[llm]
provider = "claude"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.Provider)
	assert.True(t, cfg.IsProduction())

	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 100, cfg.Ingest.EmbedBatchSize)
}

func TestLoadFromFiles_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.toml")
	second := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(first, []byte("[server]\nport = 9001\nhost = \"0.0.0.0\"\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 9002\n"), 0644))

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)

	assert.Equal(t, 9002, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "values only the first file sets survive")
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docquery.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0644))

	t.Setenv("DOCQUERY_SERVER_PORT", "7070")
	t.Setenv("DOCQUERY_RETRIEVAL_TOP_K", "9")
	t.Setenv("DOCQUERY_LLM_PROVIDER", "claude")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Retrieval.TopK)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.Provider)
}

func TestApplyEnvOverrides_APIKeyPrecedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "bare-gemini")
	t.Setenv("ANTHROPIC_API_KEY", "bare-anthropic")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, "bare-gemini", cfg.Gemini.APIKey)
	assert.Equal(t, "bare-anthropic", cfg.Claude.APIKey)

	// Prefixed variables beat the bare provider variables
	t.Setenv("DOCQUERY_GEMINI_API_KEY", "prefixed-gemini")
	t.Setenv("DOCQUERY_CLAUDE_API_KEY", "prefixed-claude")

	cfg = NewDefaultConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, "prefixed-gemini", cfg.Gemini.APIKey)
	assert.Equal(t, "prefixed-claude", cfg.Claude.APIKey)
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"PRODUCTION", true},
		{" production ", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := NewDefaultConfig()
		cfg.Environment = tt.environment
		assert.Equal(t, tt.want, cfg.IsProduction(), "environment %q", tt.environment)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize // must be strictly smaller
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.LLM.Provider = "openai"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Retrieval.Threshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 9999, "0.0.0.0")
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Zero values leave the config untouched
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
