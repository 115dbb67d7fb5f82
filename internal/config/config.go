package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Server      ServerConfig
	Auth        AuthConfig
	Email       EmailConfig
	ProfileSync ProfileSyncConfig
	Marketing   MarketingConfig
	LLM         LLMConfig
	Documents   DocumentsConfig
	Outbox      OutboxConfig
	Bootstrap   BootstrapConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	FrontendURL    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string

	// AuthRateLimit caps login, register and password reset calls per client IP per minute.
	AuthRateLimit int
	// UserRateLimit caps authenticated calls per user per minute.
	UserRateLimit int
}

type AuthConfig struct {
	JWTSecret            string
	SessionExpiry        time.Duration
	AdminRegistrationKey string
	ResetTokenExpiry     time.Duration
	CleanupInterval      time.Duration
	CookieSecure         bool
	CookieSameSite       http.SameSite
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// ProfileSyncConfig points at the customer-data platform. An empty BaseURL disables sync.
type ProfileSyncConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// MarketingConfig points at the marketing-automation tool. An empty BaseURL disables it.
type MarketingConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type DocumentsConfig struct {
	Bucket     string
	Region     string
	KeyPrefix  string
	PresignTTL time.Duration
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	StaleAfter   time.Duration
	Retention    time.Duration
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	awsRegion := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "claimsdesk"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsSlice("TRUSTED_PROXIES"),
			AuthRateLimit:  getEnvAsInt("AUTH_RATE_LIMIT", 10),
			UserRateLimit:  getEnvAsInt("USER_RATE_LIMIT", 120),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			SessionExpiry:        getEnvAsDuration("SESSION_EXPIRY", 2*time.Hour),
			AdminRegistrationKey: getEnv("ADMIN_SECRET_KEY", ""),
			ResetTokenExpiry:     getEnvAsDuration("RESET_TOKEN_EXPIRY", 1*time.Hour),
			CleanupInterval:      getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			CookieSecure:         getEnvAsBool("COOKIE_SECURE", env == "production"),
			CookieSameSite:       parseSameSite(getEnv("COOKIE_SAMESITE", "lax")),
		},
		Email: EmailConfig{
			AWSRegion:   awsRegion,
			FromAddress: getEnv("EMAIL_FROM", "noreply@example.com"),
		},
		ProfileSync: ProfileSyncConfig{
			BaseURL:  strings.TrimRight(getEnv("UNOMI_API_URL", ""), "/"),
			Username: getEnv("UNOMI_USERNAME", "karaf"),
			Password: getEnv("UNOMI_PASSWORD", ""),
			Timeout:  getEnvAsDuration("UNOMI_TIMEOUT", 10*time.Second),
		},
		Marketing: MarketingConfig{
			BaseURL:  strings.TrimRight(getEnv("MAUTIC_BASE_URL", ""), "/"),
			Username: getEnv("MAUTIC_USERNAME", ""),
			Password: getEnv("MAUTIC_PASSWORD", ""),
			Timeout:  getEnvAsDuration("MAUTIC_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 20*time.Second),
		},
		Documents: DocumentsConfig{
			Bucket:     getEnv("DOCUMENTS_BUCKET", ""),
			Region:     getEnv("DOCUMENTS_REGION", awsRegion),
			KeyPrefix:  strings.Trim(getEnv("DOCUMENTS_PREFIX", "claims"), "/"),
			PresignTTL: getEnvAsDuration("DOCUMENTS_PRESIGN_TTL", 15*time.Minute),
		},
		Outbox: OutboxConfig{
			PollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 8),
			BaseBackoff:  getEnvAsDuration("OUTBOX_BASE_BACKOFF", 5*time.Second),
			StaleAfter:   getEnvAsDuration("OUTBOX_STALE_AFTER", 5*time.Minute),
			Retention:    getEnvAsDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Outbox.BatchSize <= 0 || cfg.Outbox.MaxAttempts <= 0 {
		return nil, fmt.Errorf("OUTBOX_BATCH_SIZE and OUTBOX_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled reports whether profile sync has somewhere to send data.
func (c ProfileSyncConfig) Enabled() bool { return c.BaseURL != "" }

func (c MarketingConfig) Enabled() bool { return c.BaseURL != "" }

func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

func (c DocumentsConfig) Enabled() bool { return c.Bucket != "" }

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsSlice("ALLOWED_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
