// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/pkg/fetch"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Nutrition  NutritionConfig  `mapstructure:"nutrition"`
	Export     ExportConfig     `mapstructure:"export"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Firestore  FirestoreConfig  `mapstructure:"firestore"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AuthConfig contains bearer token verification settings
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	Issuer        string `mapstructure:"issuer"`
	SessionHeader string `mapstructure:"session_header"`
}

// StorageConfig selects the backend of each store
type StorageConfig struct {
	Quota   string `mapstructure:"quota"`
	Recipes string `mapstructure:"recipes"`
	Stages  string `mapstructure:"stages"`
}

// QuotaConfig contains daily quota settings
type QuotaConfig struct {
	GuestLimit         int           `mapstructure:"guest_limit"`
	AuthenticatedLimit int           `mapstructure:"authenticated_limit"`
	AdminLimit         int           `mapstructure:"admin_limit"`
	Timezone           string        `mapstructure:"timezone"`
	FailOpen           bool          `mapstructure:"fail_open"`
	RecordTTL          time.Duration `mapstructure:"record_ttl"`
}

// ExtractionConfig contains vision model settings
type ExtractionConfig struct {
	Provider         string        `mapstructure:"provider"`
	Endpoint         string        `mapstructure:"endpoint"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxImageBytes    int64         `mapstructure:"max_image_bytes"`
	AllowedMIMETypes []string      `mapstructure:"allowed_mime_types"`
	CuisineTypes     []string      `mapstructure:"cuisine_types"`
	MealCategories   []string      `mapstructure:"meal_categories"`
	MergeStrategy    string        `mapstructure:"merge_strategy"`
}

// NutritionConfig contains nutrition lookup settings
type NutritionConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	PageSize          int           `mapstructure:"page_size"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ExportConfig contains shopping list export settings
type ExportConfig struct {
	StageTTL time.Duration `mapstructure:"stage_ttl"`
}

// DatabaseConfig contains SQL database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// FirestoreConfig contains Cloud Firestore configuration
type FirestoreConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	QuotaCollection  string `mapstructure:"quota_collection"`
	RecipeCollection string `mapstructure:"recipe_collection"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/intake")
	}

	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alchemorsel-intake")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "110s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 40<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("auth.issuer", "alchemorsel")
	v.SetDefault("auth.session_header", "X-Session-ID")

	v.SetDefault("storage.quota", "memory")
	v.SetDefault("storage.recipes", "memory")
	v.SetDefault("storage.stages", "memory")

	v.SetDefault("quota.guest_limit", 5)
	v.SetDefault("quota.authenticated_limit", 20)
	v.SetDefault("quota.admin_limit", 1000)
	v.SetDefault("quota.timezone", "Europe/Berlin")
	v.SetDefault("quota.fail_open", true)
	v.SetDefault("quota.record_ttl", "48h")

	v.SetDefault("extraction.provider", "openai")
	v.SetDefault("extraction.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("extraction.model", "gpt-4o-mini")
	v.SetDefault("extraction.temperature", 0.1)
	v.SetDefault("extraction.max_tokens", 2048)
	v.SetDefault("extraction.timeout", "90s")
	v.SetDefault("extraction.max_image_bytes", 10<<20)
	v.SetDefault("extraction.allowed_mime_types", []string{
		"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif",
	})
	v.SetDefault("extraction.merge_strategy", "exact")

	v.SetDefault("nutrition.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("nutrition.user_agent", "alchemorsel-intake/1.0")
	v.SetDefault("nutrition.page_size", 5)
	v.SetDefault("nutrition.max_attempts", 3)
	v.SetDefault("nutrition.backoff_base", "500ms")
	v.SetDefault("nutrition.requests_per_second", 2.0)
	v.SetDefault("nutrition.timeout", "10s")

	v.SetDefault("export.stage_ttl", "10m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "intake.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "intake")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "intake:")

	v.SetDefault("firestore.quota_collection", "quota")
	v.SetDefault("firestore.recipe_collection", "recipes")

	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.sampling_rate", 0.1)
}

var (
	quotaBackends  = map[string]bool{"memory": true, "sql": true, "redis": true, "firestore": true}
	recipeBackends = map[string]bool{"memory": true, "sql": true, "firestore": true}
	stageBackends  = map[string]bool{"memory": true, "redis": true}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}

	if !quotaBackends[c.Storage.Quota] {
		return fmt.Errorf("storage.quota %q is not supported", c.Storage.Quota)
	}
	if !recipeBackends[c.Storage.Recipes] {
		return fmt.Errorf("storage.recipes %q is not supported", c.Storage.Recipes)
	}
	if !stageBackends[c.Storage.Stages] {
		return fmt.Errorf("storage.stages %q is not supported", c.Storage.Stages)
	}
	if (c.Storage.Quota == "firestore" || c.Storage.Recipes == "firestore") && c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required for firestore storage")
	}

	if _, err := c.QuotaPolicy(); err != nil {
		return err
	}

	switch c.Extraction.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("extraction.provider %q is not supported", c.Extraction.Provider)
	}
	if c.Extraction.Temperature < 0 || c.Extraction.Temperature > 1 {
		return fmt.Errorf("extraction.temperature must be between 0 and 1")
	}
	if c.Extraction.MaxImageBytes <= 0 {
		return fmt.Errorf("extraction.max_image_bytes must be positive")
	}
	switch c.Extraction.MergeStrategy {
	case "exact", "fuzzy":
	default:
		return fmt.Errorf("extraction.merge_strategy must be exact or fuzzy")
	}

	if c.Nutrition.MaxAttempts < 1 {
		return fmt.Errorf("nutrition.max_attempts must be at least 1")
	}
	if c.Export.StageTTL <= 0 {
		return fmt.Errorf("export.stage_ttl must be positive")
	}

	return nil
}

// QuotaPolicy builds the immutable quota policy
func (c *Config) QuotaPolicy() (quota.Policy, error) {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return quota.Policy{}, fmt.Errorf("quota.timezone: %w", err)
	}
	p := quota.Policy{
		Limits: map[quota.Tier]int{
			quota.TierGuest:         c.Quota.GuestLimit,
			quota.TierAuthenticated: c.Quota.AuthenticatedLimit,
			quota.TierAdmin:         c.Quota.AdminLimit,
		},
		Location: loc,
		FailOpen: c.Quota.FailOpen,
	}
	return p, p.Validate()
}

// FetchPolicy builds the retry policy for nutrition lookups
func (c *Config) FetchPolicy() fetch.Policy {
	return fetch.Policy{
		MaxAttempts: c.Nutrition.MaxAttempts,
		BaseDelay:   c.Nutrition.BackoffBase,
	}
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis host:port
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
