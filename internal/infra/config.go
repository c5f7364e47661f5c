package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	LogLevel           string
	Port               string
	DatabaseURL        string
	DBMaxConns         int32
	SchemaFile         string
	StoragePath        string
	StorageBaseURL     string
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	Pipeline           PipelineConfig
}

// PipelineConfig holds the package generation knobs. They can be set in the
// YAML file named by PIPELINE_CONFIG_FILE; environment variables win over
// the file.
type PipelineConfig struct {
	PackageTimeout    time.Duration `yaml:"package_timeout"`
	VectorTimeout     time.Duration `yaml:"vector_timeout"`
	CancelGrace       time.Duration `yaml:"cancel_grace"`
	FinalizeTimeout   time.Duration `yaml:"finalize_timeout"`
	UploadMaxInFlight int           `yaml:"upload_max_in_flight"`
	SizeWorkers       int           `yaml:"size_workers"`
	TraceCommand      string        `yaml:"trace_command"`
	ConvertCommand    string        `yaml:"convert_command"`
	WorkspaceDir      string        `yaml:"workspace_dir"`
}

// DefaultPipelineConfig returns the built-in pipeline settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PackageTimeout:    120 * time.Second,
		VectorTimeout:     30 * time.Second,
		CancelGrace:       5 * time.Second,
		FinalizeTimeout:   30 * time.Second,
		UploadMaxInFlight: 4,
		SizeWorkers:       4,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         int32(getEnvInt("DB_MAX_CONNS", 10)),
		SchemaFile:         os.Getenv("SCHEMA_FILE"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"), "/"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	pipeline := DefaultPipelineConfig()
	if path := os.Getenv("PIPELINE_CONFIG_FILE"); path != "" {
		if err := loadPipelineFile(path, &pipeline); err != nil {
			return nil, err
		}
	}
	pipeline.PackageTimeout = getEnvSeconds("PACKAGE_TIMEOUT_SECONDS", pipeline.PackageTimeout)
	pipeline.VectorTimeout = getEnvSeconds("VECTOR_TIMEOUT_SECONDS", pipeline.VectorTimeout)
	pipeline.CancelGrace = getEnvSeconds("CANCEL_GRACE_SECONDS", pipeline.CancelGrace)
	pipeline.FinalizeTimeout = getEnvSeconds("FINALIZE_TIMEOUT_SECONDS", pipeline.FinalizeTimeout)
	pipeline.UploadMaxInFlight = getEnvInt("UPLOAD_MAX_IN_FLIGHT", pipeline.UploadMaxInFlight)
	pipeline.SizeWorkers = getEnvInt("SIZE_WORKERS", pipeline.SizeWorkers)
	pipeline.TraceCommand = getEnv("VECTOR_TRACE_CMD", pipeline.TraceCommand)
	pipeline.ConvertCommand = getEnv("VECTOR_CONVERT_CMD", pipeline.ConvertCommand)
	pipeline.WorkspaceDir = getEnv("WORKSPACE_DIR", pipeline.WorkspaceDir)
	cfg.Pipeline = pipeline

	if cfg.Pipeline.PackageTimeout <= 0 {
		return nil, fmt.Errorf("package timeout must be positive")
	}
	if cfg.Pipeline.VectorTimeout <= 0 {
		return nil, fmt.Errorf("vector timeout must be positive")
	}
	if cfg.Pipeline.CancelGrace <= 0 {
		return nil, fmt.Errorf("cancel grace must be positive")
	}
	if cfg.Pipeline.FinalizeTimeout <= 0 {
		return nil, fmt.Errorf("finalize timeout must be positive")
	}

	return cfg, nil
}

// RequireDatabase reports an error when DATABASE_URL is not configured.
func (c *Config) RequireDatabase() error {
	if c == nil || c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func loadPipelineFile(path string, into *PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
