package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SAGE_GEMINI_API_KEY", "dummy")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dummy", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "llama3", cfg.OllamaModel)
	assert.False(t, cfg.UseLocalOnlyLLM)
	assert.Empty(t, cfg.CacheDir)
	assert.Equal(t, 20*time.Second, cfg.RankingTimeout)
	assert.Equal(t, 5.0, cfg.RankingRPS)
	assert.Equal(t, 20, cfg.RankingMaxCandidates)
	assert.Equal(t, uint32(5), cfg.BreakerFailThreshold)
	assert.Equal(t, 3, cfg.Overfetch)
	assert.Equal(t, 10, cfg.DefaultLimit)
	assert.Equal(t, 50, cfg.MaxLimit)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTLRich)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTLResult)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLDegraded)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("SAGE_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SAGE_CATALOG_DSN", "file:/data/catalog.db")
	t.Setenv("SAGE_CACHE_DIR", "/var/cache/booksage")
	t.Setenv("SAGE_USE_LOCAL_ONLY_LLM", "true")
	t.Setenv("SAGE_OLLAMA_MODEL", "qwen2")
	t.Setenv("SAGE_RANKING_TIMEOUT_SEC", "45")
	t.Setenv("SAGE_RANKING_RPS", "2.5")
	t.Setenv("SAGE_MAX_LIMIT", "100")
	t.Setenv("SAGE_CACHE_TTL_DEGRADED_SEC", "60")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "file:/data/catalog.db", cfg.CatalogDSN)
	assert.Equal(t, "/var/cache/booksage", cfg.CacheDir)
	assert.True(t, cfg.UseLocalOnlyLLM)
	assert.Equal(t, "qwen2", cfg.OllamaModel)
	assert.Equal(t, 45*time.Second, cfg.RankingTimeout)
	assert.Equal(t, 2.5, cfg.RankingRPS)
	assert.Equal(t, 100, cfg.MaxLimit)
	assert.Equal(t, time.Minute, cfg.CacheTTLDegraded)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booksage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("use_local_only_llm: true\ndefault_limit: 5\nollama_model: mistral\n"), 0o600))
	t.Setenv("SAGE_OLLAMA_MODEL", "phi3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DefaultLimit)
	// environment overrides the file
	assert.Equal(t, "phi3", cfg.OllamaModel)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			CatalogDSN:           "file::memory:",
			UseLocalOnlyLLM:      true,
			RankingTimeout:       time.Second,
			RankingMaxCandidates: 20,
			Overfetch:            3,
			DefaultLimit:         10,
			MaxLimit:             50,
			CacheTTLResult:       15 * time.Minute,
			CacheTTLDegraded:     5 * time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing gemini key", mutate: func(c *Config) { c.UseLocalOnlyLLM = false }, wantErr: "SAGE_GEMINI_API_KEY"},
		{name: "gemini key present", mutate: func(c *Config) { c.UseLocalOnlyLLM = false; c.GeminiAPIKey = "k" }},
		{name: "missing dsn", mutate: func(c *Config) { c.CatalogDSN = "" }, wantErr: "SAGE_CATALOG_DSN"},
		{name: "zero limit", mutate: func(c *Config) { c.DefaultLimit = 0 }, wantErr: "must be positive"},
		{name: "default above max", mutate: func(c *Config) { c.DefaultLimit = 60 }, wantErr: "exceeds SAGE_MAX_LIMIT"},
		{name: "zero overfetch", mutate: func(c *Config) { c.Overfetch = 0 }, wantErr: "SAGE_OVERFETCH"},
		{name: "zero timeout", mutate: func(c *Config) { c.RankingTimeout = 0 }, wantErr: "SAGE_RANKING_TIMEOUT_SEC"},
		{name: "degraded ttl too long", mutate: func(c *Config) { c.CacheTTLDegraded = time.Hour }, wantErr: "degraded TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SAGE_GEMINI_API_KEY", "")
	t.Setenv("SAGE_USE_LOCAL_ONLY_LLM", "false")

	_, err := Load("")
	assert.ErrorContains(t, err, "SAGE_GEMINI_API_KEY")
}
