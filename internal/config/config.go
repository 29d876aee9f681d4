package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Database      DatabaseConfig
	AI            AIConfig
	Query         QueryConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type QueryConfig struct {
	TopK             int
	MaxAttempts      int
	SchemaSampleRows int
}

// ObjectStoreConfig holds the S3-compatible endpoint used for s3:// Parquet
// sources. The bucket comes from each source location.
type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	// Prefix is prepended to every object key.
	Prefix string
}

type ObservabilityConfig struct {
	LogLevel    slog.Level
	LogJSON     bool
	MetricsAddr string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

// LoadDotEnv populates the process environment from .env files without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SQLASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SQLASK_DATABASE_URL", &cfg.Database.URL) },
		func() error { return applyInt(lookup, "SQLASK_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "SQLASK_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error { return applyDuration(lookup, "SQLASK_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime) },
		func() error { return applyString(lookup, "SQLASK_AI_BASE_URL", &cfg.AI.BaseURL) },
		// GROQ_API_KEY is honored so existing Groq setups keep working; the
		// SQLASK_ key wins when both are present.
		func() error { return applyString(lookup, "GROQ_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SQLASK_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SQLASK_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SQLASK_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyInt(lookup, "SQLASK_AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyDuration(lookup, "SQLASK_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyInt(lookup, "SQLASK_QUERY_TOP_K", &cfg.Query.TopK) },
		func() error { return applyInt(lookup, "SQLASK_QUERY_MAX_ATTEMPTS", &cfg.Query.MaxAttempts) },
		func() error { return applyInt(lookup, "SQLASK_SCHEMA_SAMPLE_ROWS", &cfg.Query.SchemaSampleRows) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "SQLASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error { return applyString(lookup, "SQLASK_METRICS_ADDR", &cfg.Observability.MetricsAddr) },
		func() error { return applyBool(lookup, "SQLASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SQLASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("query top_k must be > 0")
	}
	if c.Query.MaxAttempts <= 0 {
		return fmt.Errorf("query max attempts must be > 0")
	}
	if c.Query.SchemaSampleRows < 0 {
		return fmt.Errorf("schema sample rows must be >= 0")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlask"},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		AI: AIConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama3-8b-8192",
			Temperature: 0,
			Timeout:     60 * time.Second,
		},
		Query: QueryConfig{
			TopK:             10,
			MaxAttempts:      3,
			SchemaSampleRows: 3,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
			UseSSL:   false,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
