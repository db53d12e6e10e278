package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ecoroute/crm-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Storage      StorageConfig
	Auth         AuthConfig
	Secrets      SecretsConfig
	Logging      LoggingConfig
	Server       ServerConfig
	CORS         CORSConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
	Dashboard    DashboardConfig
	ActivitySink ActivitySinkConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// PublicBaseURL prefixes locally signed download links
	PublicBaseURL string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// StatementTimeout bounds every query on the server side (milliseconds, 0 disables)
	StatementTimeout int
}

// RedisConfig configures the optional dashboard report cache.
// An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL int // seconds
}

type StorageConfig struct {
	// Mode selects the backend: "local", "azure" or "s3"
	Mode            string
	LocalBasePath   string
	LocalSigningKey string

	CloudConnectionString string
	CloudContainer        string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// PresignTTLSeconds is the lifetime of download links
	PresignTTLSeconds int
}

// AuthConfig configures bearer token validation and the service API key
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	APIKey    string
	// RefreshFromDB reloads role and active flag from the users table on each request
	RefreshFromDB bool
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// DashboardConfig tunes the dashboard aggregation
type DashboardConfig struct {
	UpcomingEventsLimit int
	RecentActivityLimit int
	// QueryTimeout bounds the whole fan-out (seconds)
	QueryTimeout int
	// CacheRefreshCron invalidates cached reports on a schedule; empty disables the job
	CacheRefreshCron string
}

// ActivitySinkConfig tunes the best-effort activity log writer
type ActivitySinkConfig struct {
	BufferSize int
	// WriteTimeout bounds each insert (milliseconds)
	WriteTimeout int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	if d.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", d.StatementTimeout)
	}
	return dsn
}

// URL builds a postgres:// URL for tools that do not take key/value DSNs
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// CacheTTLDuration returns the report cache lifetime
func (r *RedisConfig) CacheTTLDuration() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

// Enabled reports whether a Redis address is configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// PresignTTL returns the download link lifetime
func (s *StorageConfig) PresignTTL() time.Duration {
	return time.Duration(s.PresignTTLSeconds) * time.Second
}

// QueryTimeoutDuration returns the dashboard fan-out deadline
func (d *DashboardConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(d.QueryTimeout) * time.Second
}

// WriteTimeoutDuration returns the per-insert deadline for the activity sink
func (a *ActivitySinkConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(a.WriteTimeout) * time.Millisecond
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only reaches keys viper already knows about
	for _, key := range unsetKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case "local", "azure", "s3":
	default:
		return fmt.Errorf("invalid storage.mode %q: must be local, azure or s3", c.Storage.Mode)
	}
	if c.Storage.PresignTTLSeconds <= 0 {
		return fmt.Errorf("storage.presignTTLSeconds must be positive")
	}
	if c.Dashboard.UpcomingEventsLimit <= 0 || c.Dashboard.RecentActivityLimit <= 0 {
		return fmt.Errorf("dashboard limits must be positive")
	}
	if c.ActivitySink.BufferSize <= 0 {
		return fmt.Errorf("activitySink.bufferSize must be positive")
	}
	return nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
//
// Key Vault is used when BOTH conditions are met:
// 1. USE_AZURE_KEY_VAULT environment variable is set to "true"
// 2. Environment is "staging" or "production"
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if err := applySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// SecretSource resolves a named secret, falling back to an environment variable
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error)
}

type secretBinding struct {
	secret string
	env    string
	target func(*Config) *string
}

var secretBindings = []secretBinding{
	{"POSTGRES-MAIN-HOST", "DATABASE_HOST", func(c *Config) *string { return &c.Database.Host }},
	{"POSTGRES-MAIN-USER", "DATABASE_USER", func(c *Config) *string { return &c.Database.User }},
	{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", func(c *Config) *string { return &c.Database.Password }},
	{"jwt-secret", "JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"admin-api-key", "ADMIN_API_KEY", func(c *Config) *string { return &c.Auth.APIKey }},
	{"redis-password", "REDIS_PASSWORD", func(c *Config) *string { return &c.Redis.Password }},
	{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", func(c *Config) *string { return &c.Storage.CloudConnectionString }},
	{"storage-local-signing-key", "STORAGE_LOCALSIGNINGKEY", func(c *Config) *string { return &c.Storage.LocalSigningKey }},
	{"s3-access-key-id", "STORAGE_S3ACCESSKEYID", func(c *Config) *string { return &c.Storage.S3AccessKeyID }},
	{"s3-secret-access-key", "STORAGE_S3SECRETACCESSKEY", func(c *Config) *string { return &c.Storage.S3SecretAccessKey }},
}

// applySecrets overlays every non-empty secret onto cfg
func applySecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	for _, b := range secretBindings {
		value, err := src.GetSecretOrEnv(ctx, b.secret, b.env)
		if err != nil {
			continue
		}
		if value != "" {
			*b.target(cfg) = value
		}
	}

	// Database name and SSL mode vary per environment and are not stored in the vault
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	if cfg.Auth.JWTSecret == "" && cfg.Auth.APIKey == "" {
		return fmt.Errorf("neither jwt-secret nor admin-api-key could be resolved")
	}
	return nil
}

// unsetKeys have no default, usually because they hold credentials
var unsetKeys = []string{
	"redis.password",
	"auth.jwtSecret",
	"auth.apiKey",
	"secrets.keyVaultName",
	"storage.localSigningKey",
	"storage.cloudConnectionString",
	"storage.s3Bucket",
	"storage.s3Endpoint",
	"storage.s3AccessKeyID",
	"storage.s3SecretAccessKey",
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "EcoRoute CRM API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicBaseURL", "http://localhost:8080")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ecoroute")
	v.SetDefault("database.user", "ecoroute")
	v.SetDefault("database.password", "ecoroute")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.statementTimeout", 0)

	// Redis defaults (cache disabled unless addr is set)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cacheTTL", 60)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Auth defaults
	v.SetDefault("auth.jwtIssuer", "ecoroute-crm")
	v.SetDefault("auth.refreshFromDB", true)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "crm-files")
	v.SetDefault("storage.s3Region", "us-east-1")
	v.SetDefault("storage.presignTTLSeconds", 900)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/metrics"})

	// Dashboard defaults
	v.SetDefault("dashboard.upcomingEventsLimit", 5)
	v.SetDefault("dashboard.recentActivityLimit", 5)
	v.SetDefault("dashboard.queryTimeout", 10)
	v.SetDefault("dashboard.cacheRefreshCron", "*/15 * * * *")

	// Activity sink defaults
	v.SetDefault("activitySink.bufferSize", 256)
	v.SetDefault("activitySink.writeTimeout", 2000)
}
