package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App         AppConfig
	MCP         MCPConfig
	Paths       PathsConfig
	Database    DatabaseConfig
	Integration IntegrationConfig
	WorkerPool  WorkerPoolConfig
	Security    SecurityConfig
	Log         LogConfig
	Monitor     MonitorConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	NodeID             string
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	HistoryURI      string // database/sql DSN for the test history table
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// IntegrationConfig tunes the connection lifecycle.
type IntegrationConfig struct {
	ValidationTimeout time.Duration
	TestTimeout       time.Duration
	HealthSchedule    string
	EmbedScriptURL    string
	EmbedVersion      string
	GraphAPIBaseURL   string
	TelegramAPIURL    string
	WebhookURLs       []string
	WebhookSecret     string
	WebhookTimeout    time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SecurityConfig struct {
	SecretKey string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MonitorConfig struct {
	BufferSize int
	TTL        time.Duration
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false)

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		NodeID:             getEnv("NODE_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "connect.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		HistoryURI:      getEnv("DB_HISTORY_URI", "file:"+filepath.Join(pathsCfg.Storages, "history.db")+"?_journal_mode=WAL"),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azconnect:"),
	}

	var webhooks []string
	if v := os.Getenv("INTEGRATION_WEBHOOK_URLS"); v != "" {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				webhooks = append(webhooks, u)
			}
		}
	}

	integrationCfg := IntegrationConfig{
		ValidationTimeout: getEnvDuration("INTEGRATION_VALIDATION_TIMEOUT", 10*time.Second),
		TestTimeout:       getEnvDuration("INTEGRATION_TEST_TIMEOUT", 5*time.Second),
		HealthSchedule:    getEnv("INTEGRATION_HEALTH_SCHEDULE", "@every 10m"),
		EmbedScriptURL:    getEnv("INTEGRATION_EMBED_SCRIPT_URL", "https://cdn.azconnect.io/widget/v1/widget.js"),
		EmbedVersion:      getEnv("INTEGRATION_EMBED_VERSION", "v1"),
		GraphAPIBaseURL:   getEnv("INTEGRATION_GRAPH_API_URL", "https://graph.facebook.com/v19.0"),
		TelegramAPIURL:    getEnv("INTEGRATION_TELEGRAM_API_URL", "https://api.telegram.org"),
		WebhookURLs:       webhooks,
		WebhookSecret:     getEnv("INTEGRATION_WEBHOOK_SECRET", ""),
		WebhookTimeout:    getEnvDuration("INTEGRATION_WEBHOOK_TIMEOUT", 10*time.Second),
	}

	cfg := &Config{
		App:         appCfg,
		MCP:         MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:       pathsCfg,
		Database:    dbCfg,
		Integration: integrationCfg,
		WorkerPool:  WorkerPoolConfig{Size: getEnvInt("WORKER_POOL_SIZE", 8), QueueSize: getEnvInt("WORKER_QUEUE_SIZE", 500)},
		Security:    SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "")},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		},
		Monitor: MonitorConfig{
			BufferSize: getEnvInt("MONITOR_BUFFER", 200),
			TTL:        getEnvDuration("MONITOR_TTL", 0),
		},
	}

	Global = cfg
	return cfg, nil
}
