package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Documents   DocumentsConfig `toml:"documents"`
	Extractor   ExtractorConfig `toml:"extractor"`
	Index       IndexConfig     `toml:"index"`
	Cache       CacheConfig     `toml:"cache"`
	Reconcile   ReconcileConfig `toml:"reconcile"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port" validate:"min=1,max=65535"`
	StaticDir string `toml:"static_dir"`
}

// DocumentsConfig describes the document tree to discover and classify.
// Level1/Level2 restrict discovery to the named category branches; empty
// means no restriction. MaxDocuments truncates a batch pass early (0 = all).
type DocumentsConfig struct {
	Root              string   `toml:"root" validate:"required"`
	AllowedExtensions []string `toml:"allowed_extensions" validate:"min=1"`
	Level1            []string `toml:"level1"`
	Level2            []string `toml:"level2"`
	MaxDocuments      int      `toml:"max_documents" validate:"min=0"`
	MaxExtractMB      int      `toml:"max_extract_mb" validate:"min=0"`
}

// ExtractorConfig contains the Tika extraction service settings.
// The metadata call is quick; the text call can OCR large scans, hence
// the separate, much longer timeout. RequestsPerSecond of 0 disables
// client-side rate limiting.
type ExtractorConfig struct {
	URL                    string  `toml:"url" validate:"required,url"`
	MetadataTimeoutSeconds int     `toml:"metadata_timeout_seconds" validate:"min=1"`
	TextTimeoutSeconds     int     `toml:"text_timeout_seconds" validate:"min=1"`
	RequestsPerSecond      float64 `toml:"requests_per_second" validate:"min=0"`
}

// IndexConfig contains the OpenSearch index service settings.
// MappingFile points at the JSON index definition used when the index
// has to be created; when the file is missing a minimal mapping is used.
type IndexConfig struct {
	URL                   string `toml:"url" validate:"required,url"`
	Name                  string `toml:"name" validate:"required"`
	MappingFile           string `toml:"mapping_file"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" validate:"min=1"`
	UpsertTimeoutSeconds  int    `toml:"upsert_timeout_seconds" validate:"min=1"`
}

// CacheConfig controls the local extraction cache. Entries are keyed by
// content hash, so the cache never changes what ends up in the index,
// it only skips repeat extraction calls for unchanged bytes.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ReconcileConfig controls the scheduled disk-vs-index reconciliation run.
type ReconcileConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in impensa.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8085,
			StaticDir: "web/static",
		},
		Documents: DocumentsConfig{
			Root:              "data/Note de frais",
			AllowedExtensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"},
			Level1:            nil,
			Level2:            nil,
			MaxDocuments:      0,
			MaxExtractMB:      30,
		},
		Extractor: ExtractorConfig{
			URL:                    "http://localhost:9998",
			MetadataTimeoutSeconds: 120,
			TextTimeoutSeconds:     300,
			RequestsPerSecond:      0,
		},
		Index: IndexConfig{
			URL:                   "http://localhost:9200",
			Name:                  "ndf-docs",
			MappingFile:           "deployments/opensearch-index.json",
			RequestTimeoutSeconds: 30,
			UpsertTimeoutSeconds:  60,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./data/extraction-cache",
		},
		Reconcile: ReconcileConfig{
			Enabled:  true,
			Schedule: "0 * * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: IMPENSA_ENV, fallback: GO_ENV)
	if env := os.Getenv("IMPENSA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("IMPENSA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("IMPENSA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if staticDir := os.Getenv("IMPENSA_SERVER_STATIC_DIR"); staticDir != "" {
		config.Server.StaticDir = staticDir
	}

	// Documents configuration
	if root := os.Getenv("IMPENSA_DOCUMENTS_ROOT"); root != "" {
		config.Documents.Root = root
	}
	if level1 := os.Getenv("IMPENSA_DOCUMENTS_LEVEL1"); level1 != "" {
		config.Documents.Level1 = parseListValue(level1)
	}
	if level2 := os.Getenv("IMPENSA_DOCUMENTS_LEVEL2"); level2 != "" {
		config.Documents.Level2 = parseListValue(level2)
	}
	if maxDocs := os.Getenv("IMPENSA_DOCUMENTS_MAX_DOCUMENTS"); maxDocs != "" {
		if m, err := strconv.Atoi(maxDocs); err == nil {
			config.Documents.MaxDocuments = m
		}
	}
	if maxExtract := os.Getenv("IMPENSA_DOCUMENTS_MAX_EXTRACT_MB"); maxExtract != "" {
		if m, err := strconv.Atoi(maxExtract); err == nil {
			config.Documents.MaxExtractMB = m
		}
	}

	// Extractor configuration
	if url := os.Getenv("IMPENSA_EXTRACTOR_URL"); url != "" {
		config.Extractor.URL = url
	}
	if rps := os.Getenv("IMPENSA_EXTRACTOR_REQUESTS_PER_SECOND"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Extractor.RequestsPerSecond = r
		}
	}

	// Index configuration
	if url := os.Getenv("IMPENSA_INDEX_URL"); url != "" {
		config.Index.URL = url
	}
	if name := os.Getenv("IMPENSA_INDEX_NAME"); name != "" {
		config.Index.Name = name
	}
	if mappingFile := os.Getenv("IMPENSA_INDEX_MAPPING_FILE"); mappingFile != "" {
		config.Index.MappingFile = mappingFile
	}

	// Cache configuration
	if enabled := os.Getenv("IMPENSA_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = b
		}
	}
	if path := os.Getenv("IMPENSA_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}

	// Reconcile configuration
	if enabled := os.Getenv("IMPENSA_RECONCILE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Reconcile.Enabled = b
		}
	}
	if schedule := os.Getenv("IMPENSA_RECONCILE_SCHEDULE"); schedule != "" {
		config.Reconcile.Schedule = schedule
	}

	// Logging configuration
	if level := os.Getenv("IMPENSA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
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

// parseListValue splits a comma-separated environment value into a list,
// trimming whitespace and dropping empty entries.
func parseListValue(value string) []string {
	parts := splitString(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := trimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
