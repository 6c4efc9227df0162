package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the resourcelink API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Availability AvailabilityConfig `yaml:"availability"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Ranking      RankingConfig      `yaml:"ranking"`
	Geocoder     GeocoderConfig     `yaml:"geocoder"`
	Auth         AuthConfig         `yaml:"auth"`
	Audit        AuditConfig        `yaml:"audit"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the administrative write-path token.
type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the availability backing store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// CatalogConfig holds the resource catalog source settings.
type CatalogConfig struct {
	Path              string `yaml:"path"`
	ReloadIntervalSec int    `yaml:"reload_interval_sec"`
}

// AvailabilityConfig holds availability join settings.
type AvailabilityConfig struct {
	CacheTTLSec       int `yaml:"cache_ttl_sec"`       // read cache invalidation window
	DefaultTTLMinutes int `yaml:"default_ttl_minutes"` // staleness TTL for upserts
}

// ClassifierConfig holds the LLM classification collaborator settings.
type ClassifierConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds the query embedding provider settings (hybrid ranking).
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RankingConfig holds ranking mode defaults.
type RankingConfig struct {
	Mode             string  `yaml:"mode"` // distance, hybrid
	MaxRadiusMiles   float64 `yaml:"max_radius_miles"`
	SimilarityWeight float64 `yaml:"similarity_weight"` // w in [0,1]
}

// GeocoderConfig holds the postal-code lookup collaborator settings.
type GeocoderConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AuditConfig holds the append-only match log settings.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "resourcelink:"
	}
	if c.Catalog.ReloadIntervalSec <= 0 {
		c.Catalog.ReloadIntervalSec = 300
	}
	if c.Availability.CacheTTLSec <= 0 {
		c.Availability.CacheTTLSec = 30
	}
	if c.Availability.DefaultTTLMinutes <= 0 {
		c.Availability.DefaultTTLMinutes = 120
	}
	if c.Classifier.TimeoutSec <= 0 {
		c.Classifier.TimeoutSec = 5
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 5
	}
	if c.Ranking.Mode == "" {
		c.Ranking.Mode = "distance"
	}
	if c.Ranking.MaxRadiusMiles <= 0 {
		c.Ranking.MaxRadiusMiles = 30
	}
	if c.Geocoder.TimeoutSec <= 0 {
		c.Geocoder.TimeoutSec = 3
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "data/match_log.jsonl"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Ranking.Mode {
	case "distance", "hybrid":
	default:
		return fmt.Errorf("ranking.mode must be \"distance\" or \"hybrid\", got %q", c.Ranking.Mode)
	}
	if c.Ranking.SimilarityWeight < 0 || c.Ranking.SimilarityWeight > 1 {
		return fmt.Errorf("ranking.similarity_weight must be in [0,1], got %v", c.Ranking.SimilarityWeight)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
