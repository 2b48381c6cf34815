package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Admin detection modes for AuthConfig.AdminMatch.
const (
	AdminMatchExact     = "exact"
	AdminMatchSubstring = "substring"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Lifecycle    LifecycleConfig
	Export       ExportConfig
	Realtime     RealtimeConfig
	Tracing      TracingConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminMatch            string
}

// LifecycleConfig tunes ticket status handling.
type LifecycleConfig struct {
	StrictTransitions bool
}

// ExportConfig controls spreadsheet rendering.
type ExportConfig struct {
	Timezone string
}

// RealtimeConfig configures the live ticket feed.
type RealtimeConfig struct {
	Host           string
	Port           string
	Channel        string
	RefreshTimeout time.Duration
}

// TracingConfig configures OTLP export. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint string
	Insecure bool
}

// NotificationConfig holds the outbound webhook settings. An empty URL
// disables delivery.
type NotificationConfig struct {
	WebhookURL     string
	WebhookToken   string
	WebhookTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminMatch := strings.ToLower(getEnv("AUTH_ADMIN_MATCH", AdminMatchExact))
	if adminMatch != AdminMatchExact && adminMatch != AdminMatchSubstring {
		return nil, fmt.Errorf("invalid AUTH_ADMIN_MATCH %q: want %q or %q", adminMatch, AdminMatchExact, AdminMatchSubstring)
	}

	exportTZ := getEnv("EXPORT_TIMEZONE", "Local")
	if _, err := time.LoadLocation(exportTZ); err != nil {
		return nil, fmt.Errorf("invalid EXPORT_TIMEZONE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "maintenance-tickets"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 12*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            strings.ToLower(getEnv("AUTH_ADMIN_EMAIL", "admin@example.com")),
			AdminMatch:            adminMatch,
		},
		Lifecycle: LifecycleConfig{
			StrictTransitions: getEnvAsBool("LIFECYCLE_STRICT_TRANSITIONS", false),
		},
		Export: ExportConfig{
			Timezone: exportTZ,
		},
		Realtime: RealtimeConfig{
			Host:           getEnv("REALTIME_HOST", "0.0.0.0"),
			Port:           getEnv("REALTIME_PORT", "8081"),
			Channel:        getEnv("REALTIME_CHANNEL", "tickets:changed"),
			RefreshTimeout: time.Duration(getEnvAsInt("REALTIME_REFRESH_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Notification: NotificationConfig{
			WebhookURL:     strings.TrimSpace(getEnv("NOTIFY_WEBHOOK_URL", "")),
			WebhookToken:   os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
			WebhookTimeout: time.Duration(getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addr returns the realtime listener bind address.
func (r RealtimeConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Location resolves the export time zone.
func (e ExportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
