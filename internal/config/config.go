package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the objbrowse API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Browse   BrowseConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details for the operation
// history trail. When disabled the engine keeps no trail.
type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries object-store connection information. Backend selects
// between the real client and the in-memory one ("minio" or "memory").
type MinIOConfig struct {
	Backend         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// BrowseConfig tunes the browsing engine's simulated timing.
type BrowseConfig struct {
	UploadStepDelay time.Duration
	UploadPause     time.Duration
	MemoryLatency   time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// LogConfig groups logging settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("OBJBROWSE_API_HOST", "0.0.0.0"),
			Port:         getInt("OBJBROWSE_API_PORT", 8080),
			ReadTimeout:  getDuration("OBJBROWSE_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("OBJBROWSE_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("OBJBROWSE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Enabled:  getBool("POSTGRES_ENABLED", false),
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "objbrowse_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "objbrowse"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Backend:         strings.ToLower(getString("OBJBROWSE_BACKEND", "minio")),
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "objbrowse"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Browse: BrowseConfig{
			UploadStepDelay: getDuration("OBJBROWSE_UPLOAD_STEP_DELAY", 50*time.Millisecond),
			UploadPause:     getDuration("OBJBROWSE_UPLOAD_PAUSE", 300*time.Millisecond),
			MemoryLatency:   getDuration("OBJBROWSE_MEMORY_LATENCY", 100*time.Millisecond),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("OBJBROWSE_METRICS_PATH", "/metrics"),
		},
		Log: LogConfig{
			Level:  getString("OBJBROWSE_LOG_LEVEL", "info"),
			Pretty: getBool("OBJBROWSE_LOG_PRETTY", false),
		},
	}

	if cfg.MinIO.Backend != "minio" && cfg.MinIO.Backend != "memory" {
		return Config{}, fmt.Errorf("unsupported backend %q", cfg.MinIO.Backend)
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
