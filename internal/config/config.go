package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway backends.
const (
	BackendMemory   = "memory"
	BackendAirtable = "airtable"
	BackendBaserow  = "baserow"
	BackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Gateway      GatewayConfig
	Airtable     AirtableConfig
	Baserow      BaserowConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Workspace    WorkspaceConfig
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

// GatewayConfig selects the record backend.
type GatewayConfig struct {
	Backend        string
	TimeoutSeconds int
	ColumnsFile    string
}

// AirtableConfig holds Airtable base coordinates.
type AirtableConfig struct {
	APIURL       string
	Token        string
	BaseID       string
	TicketsTable string
	UsersTable   string
	View         string
}

// BaserowConfig holds Baserow table coordinates.
type BaserowConfig struct {
	APIURL         string
	Token          string
	TicketsTableID string
	UsersTableID   string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
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
	AdminPassword         string
}

// WorkspaceConfig tunes per-operator workspaces.
type WorkspaceConfig struct {
	SearchDebounceMillis int
	IdleMinutes          int
	SweepSeconds         int
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom    string
	WebhookURL   string
	RedisChannel string
}

// Load reads configuration from environment variables, applying defaults
// where possible. envFiles are loaded first; a missing default .env is ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Gateway: GatewayConfig{
			Backend:        strings.ToLower(getEnv("GATEWAY_BACKEND", BackendMemory)),
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 15),
			ColumnsFile:    os.Getenv("GATEWAY_COLUMNS_FILE"),
		},
		Airtable: AirtableConfig{
			APIURL:       getEnv("AIRTABLE_API_URL", "https://api.airtable.com/v0"),
			Token:        os.Getenv("AIRTABLE_TOKEN"),
			BaseID:       os.Getenv("AIRTABLE_BASE_ID"),
			TicketsTable: getEnv("AIRTABLE_TICKETS_TABLE", "tbase"),
			UsersTable:   getEnv("AIRTABLE_USERS_TABLE", "Users"),
			View:         getEnv("AIRTABLE_VIEW", "All Tickets"),
		},
		Baserow: BaserowConfig{
			APIURL:         getEnv("BASEROW_API_URL", "https://api.baserow.io/api/database/rows"),
			Token:          os.Getenv("BASEROW_TOKEN"),
			TicketsTableID: os.Getenv("BASEROW_TICKETS_TABLE_ID"),
			UsersTableID:   os.Getenv("BASEROW_USERS_TABLE_ID"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Workspace: WorkspaceConfig{
			SearchDebounceMillis: getEnvAsInt("WORKSPACE_SEARCH_DEBOUNCE_MS", 300),
			IdleMinutes:          getEnvAsInt("WORKSPACE_IDLE_MINUTES", 30),
			SweepSeconds:         getEnvAsInt("WORKSPACE_SWEEP_SECONDS", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "ticket-desk:notifications"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Gateway.Backend {
	case BackendMemory:
	case BackendAirtable:
		if c.Airtable.Token == "" || c.Airtable.BaseID == "" {
			return fmt.Errorf("airtable backend requires AIRTABLE_TOKEN and AIRTABLE_BASE_ID")
		}
	case BackendBaserow:
		if c.Baserow.Token == "" || c.Baserow.TicketsTableID == "" {
			return fmt.Errorf("baserow backend requires BASEROW_TOKEN and BASEROW_TICKETS_TABLE_ID")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres backend requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown GATEWAY_BACKEND %q", c.Gateway.Backend)
	}
	return nil
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

// Timeout returns the per-call gateway timeout.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// SearchDebounce returns the search re-projection delay.
func (w WorkspaceConfig) SearchDebounce() time.Duration {
	return time.Duration(w.SearchDebounceMillis) * time.Millisecond
}

// IdleTTL returns how long an untouched workspace is kept.
func (w WorkspaceConfig) IdleTTL() time.Duration {
	return time.Duration(w.IdleMinutes) * time.Minute
}

// SweepInterval returns how often idle workspaces are evicted.
func (w WorkspaceConfig) SweepInterval() time.Duration {
	if w.SweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.SweepSeconds) * time.Second
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
