package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSessionSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	OAuth    OAuthConfig
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
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
}

// AuthConfig defines session parameters.
type AuthConfig struct {
	SessionSecret      string
	SessionIssuer      string
	SessionMaxAgeHours int
	BcryptCost         int
	CookieName         string
	CookieSecure       bool
}

// OAuthConfig describes the third-party identity provider client.
type OAuthConfig struct {
	ClientID                string
	ClientSecret            string
	AuthURL                 string
	TokenURL                string
	IssuerURL               string
	RedirectURL             string
	Scopes                  []string
	RefreshTimeoutSeconds   int
	RefreshCacheTTLSeconds  int
	DefaultAccessTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hotel-booking"),
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
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			SessionSecret:      getEnv("AUTH_SESSION_SECRET", devSessionSecret),
			SessionIssuer:      getEnv("AUTH_SESSION_ISSUER", "hotel-booking"),
			SessionMaxAgeHours: getEnvAsInt("AUTH_SESSION_MAX_AGE_HOURS", 24),
			BcryptCost:         getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CookieName:         getEnv("AUTH_COOKIE_NAME", "hotel_session"),
			CookieSecure:       getEnvAsBool("AUTH_COOKIE_SECURE", false),
		},
		OAuth: OAuthConfig{
			ClientID:                os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret:            os.Getenv("OAUTH_CLIENT_SECRET"),
			AuthURL:                 getEnv("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:                getEnv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			IssuerURL:               getEnv("OAUTH_ISSUER_URL", "https://accounts.google.com"),
			RedirectURL:             getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/oauth/callback"),
			Scopes:                  getEnvAsList("OAUTH_SCOPES", []string{"openid", "email", "profile"}),
			RefreshTimeoutSeconds:   getEnvAsInt("OAUTH_REFRESH_TIMEOUT_SECONDS", 10),
			RefreshCacheTTLSeconds:  getEnvAsInt("OAUTH_REFRESH_CACHE_TTL_SECONDS", 30),
			DefaultAccessTTLSeconds: getEnvAsInt("OAUTH_DEFAULT_ACCESS_TTL_SECONDS", 3600),
		},
	}

	cfg.Logger.Service = cfg.App.Name

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		return errors.New("AUTH_SESSION_SECRET must not be empty")
	}
	if c.Auth.SessionSecret == devSessionSecret && !c.App.IsDevelopment() {
		return errors.New("AUTH_SESSION_SECRET must be set outside development")
	}
	if c.Auth.SessionMaxAgeHours <= 0 {
		return fmt.Errorf("invalid AUTH_SESSION_MAX_AGE_HOURS: %d", c.Auth.SessionMaxAgeHours)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in a development environment.
func (a AppConfig) IsDevelopment() bool {
	switch strings.ToLower(a.Env) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionMaxAge returns the absolute session lifetime.
func (a AuthConfig) SessionMaxAge() time.Duration {
	return time.Duration(a.SessionMaxAgeHours) * time.Hour
}

// Enabled reports whether an external identity provider is configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// RefreshTimeout bounds a single token-endpoint round trip.
func (o OAuthConfig) RefreshTimeout() time.Duration {
	if o.RefreshTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.RefreshTimeoutSeconds) * time.Second
}

// RefreshCacheTTL is how long a refresh result may be reused; zero disables caching.
func (o OAuthConfig) RefreshCacheTTL() time.Duration {
	if o.RefreshCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(o.RefreshCacheTTLSeconds) * time.Second
}

// DefaultAccessTTL applies when the provider omits expires_in.
func (o OAuthConfig) DefaultAccessTTL() time.Duration {
	if o.DefaultAccessTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(o.DefaultAccessTTLSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
