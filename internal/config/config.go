package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. SAGE_HTTP_ADDR.
const EnvPrefix = "SAGE"

// Config holds all environmentally dependent settings for the recommendation service.
type Config struct {
	HTTPAddr   string
	CatalogDSN string
	// CacheDir is the badger directory; empty keeps the cache in memory.
	CacheDir string

	GeminiAPIKey    string
	GeminiModel     string
	OllamaHost      string
	OllamaModel     string
	UseLocalOnlyLLM bool

	RankingTimeout       time.Duration
	RankingRPS           float64
	RankingMaxCandidates int
	BreakerFailThreshold uint32
	BreakerOpenTimeout   time.Duration

	Overfetch    int
	DefaultLimit int
	MaxLimit     int

	CacheTTLRich     time.Duration
	CacheTTLResult   time.Duration
	CacheTTLDegraded time.Duration

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"http_addr":                ":8080",
	"catalog_dsn":              "file:booksage.db?cache=shared",
	"cache_dir":                "",
	"gemini_api_key":           "",
	"gemini_model":             "gemini-1.5-flash",
	"ollama_host":              "http://localhost:11434",
	"ollama_model":             "llama3",
	"use_local_only_llm":       false,
	"ranking_timeout_sec":      20,
	"ranking_rps":              5.0,
	"ranking_max_candidates":   20,
	"breaker_fail_threshold":   5,
	"breaker_open_timeout_sec": 30,
	"overfetch":                3,
	"default_limit":            10,
	"max_limit":                50,
	"cache_ttl_rich_sec":       1800,
	"cache_ttl_result_sec":     900,
	"cache_ttl_degraded_sec":   300,
	"log_level":                "info",
	"log_format":               "console",
}

// Load reads settings from SAGE_* environment variables, then from the
// optional YAML/TOML/JSON file at path. Environment values win.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPAddr:   v.GetString("http_addr"),
		CatalogDSN: v.GetString("catalog_dsn"),
		CacheDir:   v.GetString("cache_dir"),

		GeminiAPIKey:    v.GetString("gemini_api_key"),
		GeminiModel:     v.GetString("gemini_model"),
		OllamaHost:      v.GetString("ollama_host"),
		OllamaModel:     v.GetString("ollama_model"),
		UseLocalOnlyLLM: v.GetBool("use_local_only_llm"),

		RankingTimeout:       seconds(v, "ranking_timeout_sec"),
		RankingRPS:           v.GetFloat64("ranking_rps"),
		RankingMaxCandidates: v.GetInt("ranking_max_candidates"),
		BreakerFailThreshold: v.GetUint32("breaker_fail_threshold"),
		BreakerOpenTimeout:   seconds(v, "breaker_open_timeout_sec"),

		Overfetch:    v.GetInt("overfetch"),
		DefaultLimit: v.GetInt("default_limit"),
		MaxLimit:     v.GetInt("max_limit"),

		CacheTTLRich:     seconds(v, "cache_ttl_rich_sec"),
		CacheTTLResult:   seconds(v, "cache_ttl_result_sec"),
		CacheTTLDegraded: seconds(v, "cache_ttl_degraded_sec"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// Validate ensures that all required configuration is present and consistent.
func (c *Config) Validate() error {
	var errs []error
	if !c.UseLocalOnlyLLM && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("SAGE_GEMINI_API_KEY is required when SAGE_USE_LOCAL_ONLY_LLM is false"))
	}
	if c.CatalogDSN == "" {
		errs = append(errs, errors.New("SAGE_CATALOG_DSN is required"))
	}
	if c.DefaultLimit <= 0 || c.MaxLimit <= 0 {
		errs = append(errs, fmt.Errorf("limits must be positive (default %d, max %d)", c.DefaultLimit, c.MaxLimit))
	} else if c.DefaultLimit > c.MaxLimit {
		errs = append(errs, fmt.Errorf("SAGE_DEFAULT_LIMIT %d exceeds SAGE_MAX_LIMIT %d", c.DefaultLimit, c.MaxLimit))
	}
	if c.Overfetch <= 0 || c.RankingMaxCandidates <= 0 {
		errs = append(errs, errors.New("SAGE_OVERFETCH and SAGE_RANKING_MAX_CANDIDATES must be positive"))
	}
	if c.RankingTimeout <= 0 {
		errs = append(errs, errors.New("SAGE_RANKING_TIMEOUT_SEC must be positive"))
	}
	if c.CacheTTLDegraded > c.CacheTTLResult {
		errs = append(errs, fmt.Errorf("degraded TTL %s exceeds result TTL %s", c.CacheTTLDegraded, c.CacheTTLResult))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
