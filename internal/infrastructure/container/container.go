// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/alchemorsel/intake/internal/application/export"
	"github.com/alchemorsel/intake/internal/application/extraction"
	"github.com/alchemorsel/intake/internal/application/importer"
	"github.com/alchemorsel/intake/internal/application/ingredients"
	"github.com/alchemorsel/intake/internal/application/merge"
	appnutrition "github.com/alchemorsel/intake/internal/application/nutrition"
	appquota "github.com/alchemorsel/intake/internal/application/quota"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/infrastructure/ai"
	"github.com/alchemorsel/intake/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/intake/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/intake/internal/infrastructure/config"
	"github.com/alchemorsel/intake/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/intake/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/intake/internal/infrastructure/monitoring"
	"github.com/alchemorsel/intake/internal/infrastructure/nutrition/openfoodfacts"
	firestorestore "github.com/alchemorsel/intake/internal/infrastructure/persistence/firestore"
	gormstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/postgres"
	redisstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/alchemorsel/intake/pkg/fetch"
	"github.com/alchemorsel/intake/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	purgeInterval      = time.Hour
)

// Module provides all dependency injection modules
var Module = fx.Options(
	LoggerModule,
	ObservabilityModule,
	StorageModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule loads configuration from path; an empty path searches the default locations
func ConfigModule(path string) fx.Option {
	return fx.Provide(func() (*config.Config, error) {
		return config.Load(path)
	})
}

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Service:     cfg.App.Name,
		})
	},
)

// ObservabilityModule provides metrics, tracing and health checks
var ObservabilityModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(m *monitoring.MetricsCollector) outbound.MetricsRecorder { return m },
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       !cfg.IsProduction(),
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
	func(log *zap.Logger) *monitoring.HealthCheckManager {
		return monitoring.NewHealthCheckManager(5*time.Second, log)
	},
)

// Backends holds the storage clients opened for the configured backends; unused ones are nil
type Backends struct {
	SQL       *gorm.DB
	Redis     goredis.UniversalClient
	Firestore *firestore.Client
	Stages    *memory.StageStore
}

// StorageModule provides the quota, recipe and stage stores
var StorageModule = fx.Provide(
	NewBackends,
	NewQuotaStore,
	NewRecipeStore,
	NewStageStore,
)

// NewBackends opens every client the storage selection needs and registers its shutdown
func NewBackends(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *monitoring.HealthCheckManager) (*Backends, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := &Backends{}
	uses := func(backend string) bool {
		return cfg.Storage.Quota == backend || cfg.Storage.Recipes == backend || cfg.Storage.Stages == backend
	}

	if uses("sql") {
		db, err := openSQL(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.SQL = db
		health.RegisterCheck("database", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}})
	}

	if uses("redis") {
		client, err := redisstore.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		b.Redis = client
		health.RegisterCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
	}

	if uses("firestore") {
		client, err := firestorestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, err
		}
		b.Firestore = client
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
	}

	if cfg.Storage.Stages == "memory" {
		b.Stages = memory.NewStageStore()
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			b.Stages.Close()
			return nil
		}})
	}

	log.Info("Storage backends ready",
		zap.String("quota", cfg.Storage.Quota),
		zap.String("recipes", cfg.Storage.Recipes),
		zap.String("stages", cfg.Storage.Stages),
	)
	return b, nil
}

func openSQL(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.Open(ctx, cfg, log)
	case "sqlite", "":
		db, err := sqlite.SetupDatabase(cfg.Database.Path, gormstore.NewLogger(log, cfg.App.LogLevel, slowQueryThreshold))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
		return db, nil
	default:
		return nil, fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}
}

// NewQuotaStore selects the quota store backend
func NewQuotaStore(cfg *config.Config, b *Backends) outbound.QuotaStore {
	switch cfg.Storage.Quota {
	case "sql":
		return gormstore.NewQuotaStore(b.SQL)
	case "redis":
		return redisstore.NewQuotaStore(b.Redis, cfg.Redis.KeyPrefix, cfg.Quota.RecordTTL)
	case "firestore":
		return firestorestore.NewQuotaStore(b.Firestore, cfg.Firestore.QuotaCollection)
	default:
		return memory.NewQuotaStore()
	}
}

// NewRecipeStore selects the recipe store backend
func NewRecipeStore(cfg *config.Config, b *Backends) outbound.RecipeStore {
	switch cfg.Storage.Recipes {
	case "sql":
		return gormstore.NewRecipeStore(b.SQL)
	case "firestore":
		return firestorestore.NewRecipeStore(b.Firestore, cfg.Firestore.RecipeCollection)
	default:
		return memory.NewRecipeStore()
	}
}

// NewStageStore selects the stage store backend
func NewStageStore(cfg *config.Config, b *Backends) outbound.StageStore {
	if cfg.Storage.Stages == "redis" {
		return redisstore.NewStageStore(b.Redis, cfg.Redis.KeyPrefix)
	}
	return b.Stages
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	NewVisionModel,
	NewNutritionSource,
	func(store outbound.QuotaStore, cfg *config.Config, metrics outbound.MetricsRecorder, log *zap.Logger) (*appquota.Gate, error) {
		policy, err := cfg.QuotaPolicy()
		if err != nil {
			return nil, err
		}
		return appquota.NewGate(store, policy, log, appquota.WithMetrics(metrics)), nil
	},
	func(g *appquota.Gate) inbound.QuotaService { return g },
	func(model outbound.VisionModel, cfg *config.Config, metrics outbound.MetricsRecorder, log *zap.Logger) *extraction.Client {
		return extraction.NewClient(model, ExtractionConfig(cfg), log, extraction.WithMetrics(metrics))
	},
	func(gate inbound.QuotaService, client *extraction.Client, cfg *config.Config, metrics outbound.MetricsRecorder, log *zap.Logger) (inbound.ImportService, error) {
		icfg, err := ImporterConfig(cfg)
		if err != nil {
			return nil, err
		}
		return importer.NewService(gate, client, icfg, metrics, log), nil
	},
	func(source outbound.NutritionSource, cfg *config.Config, metrics outbound.MetricsRecorder, log *zap.Logger) inbound.NutritionService {
		ncfg := appnutrition.DefaultConfig()
		if cfg.Nutrition.PageSize > 0 {
			ncfg.Candidates = cfg.Nutrition.PageSize
		}
		return appnutrition.NewAggregator(source, ncfg, log, appnutrition.WithMetrics(metrics))
	},
	ingredients.NewResolver,
	func(resolver *ingredients.Resolver, stages outbound.StageStore, cfg *config.Config, log *zap.Logger) inbound.ExportService {
		ecfg := export.DefaultConfig()
		ecfg.StageTTL = cfg.Export.StageTTL
		return export.NewService(resolver, stages, ecfg, log)
	},
)

// ExtractionConfig derives the extraction client settings
func ExtractionConfig(cfg *config.Config) extraction.Config {
	ecfg := extraction.DefaultConfig()
	ecfg.MaxImageBytes = cfg.Extraction.MaxImageBytes
	ecfg.Temperature = cfg.Extraction.Temperature
	if cfg.Extraction.MaxTokens > 0 {
		ecfg.MaxTokens = cfg.Extraction.MaxTokens
	}
	if len(cfg.Extraction.AllowedMIMETypes) > 0 {
		ecfg.AllowedMIMETypes = cfg.Extraction.AllowedMIMETypes
	}
	if len(cfg.Extraction.CuisineTypes) > 0 {
		ecfg.Defaults.CuisineTypes = cfg.Extraction.CuisineTypes
	}
	if len(cfg.Extraction.MealCategories) > 0 {
		ecfg.Defaults.MealCategories = cfg.Extraction.MealCategories
	}
	return ecfg
}

// ImporterConfig derives the import service settings
func ImporterConfig(cfg *config.Config) (importer.Config, error) {
	icfg := importer.DefaultConfig()
	strategy, err := merge.ParseStrategy(cfg.Extraction.MergeStrategy, merge.StrategyExact)
	if err != nil {
		return icfg, fmt.Errorf("extraction.merge_strategy: %w", err)
	}
	icfg.DefaultStrategy = strategy
	ecfg := ExtractionConfig(cfg)
	icfg.DefaultOptions = recipe.EnumOptions{
		CuisineTypes:   ecfg.Defaults.CuisineTypes,
		MealCategories: ecfg.Defaults.MealCategories,
	}
	return icfg, nil
}

// NewVisionModel selects the model adapter and registers its health check
func NewVisionModel(cfg *config.Config, log *zap.Logger, health *monitoring.HealthCheckManager) outbound.VisionModel {
	var model outbound.VisionModel
	switch cfg.Extraction.Provider {
	case "ollama":
		model = ollama.NewClient(ollama.Config{
			BaseURL: cfg.Extraction.Endpoint,
			Model:   cfg.Extraction.Model,
			Timeout: cfg.Extraction.Timeout,
		}, log)
	default:
		model = openai.NewClient(openai.Config{
			Endpoint: cfg.Extraction.Endpoint,
			APIKey:   cfg.Extraction.APIKey,
			Model:    cfg.Extraction.Model,
			Timeout:  cfg.Extraction.Timeout,
		}, log)
	}
	health.RegisterCheck("model", ai.NewHealthChecker(model, log).Check)
	return model
}

// NewNutritionSource builds the Open Food Facts client behind the retrying, rate-limited fetcher
func NewNutritionSource(cfg *config.Config, log *zap.Logger) outbound.NutritionSource {
	client := &http.Client{
		Timeout:   cfg.Nutrition.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	opts := []fetch.Option{fetch.WithLogger(log)}
	if cfg.Nutrition.RequestsPerSecond > 0 {
		opts = append(opts, fetch.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Nutrition.RequestsPerSecond), 1)))
	}

	return openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:   cfg.Nutrition.BaseURL,
		UserAgent: cfg.Nutrition.UserAgent,
	}, fetch.New(client, cfg.FetchPolicy(), opts...), log)
}

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(imports inbound.ImportService, quota inbound.QuotaService, cfg *config.Config, log *zap.Logger) *handlers.ImportHandlers {
		return handlers.NewImportHandlers(imports, quota, cfg.Server.AllowedOrigins, log)
	},
	handlers.NewNutritionHandlers,
	handlers.NewShoppingListHandlers,
	func(checks *monitoring.HealthCheckManager, cfg *config.Config, log *zap.Logger) *handlers.HealthHandler {
		return handlers.NewHealthHandler(checks, cfg.App.Name, cfg.App.Version, log)
	},
	func(
		cfg *config.Config,
		log *zap.Logger,
		imports *handlers.ImportHandlers,
		nutrition *handlers.NutritionHandlers,
		shopping *handlers.ShoppingListHandlers,
		health *handlers.HealthHandler,
		metrics *monitoring.MetricsCollector,
	) *apiserver.Server {
		h := apiserver.Handlers{
			Imports:      imports,
			Nutrition:    nutrition,
			ShoppingList: shopping,
			Health:       health,
		}
		if cfg.Monitoring.EnableMetrics {
			h.Metrics = metrics.Handler()
			h.Observer = metrics
		}
		return apiserver.NewServer(cfg, log, h)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
	RegisterQuotaPurge,
)

// RegisterLifecycleHooks starts and stops the HTTP server with the application
func RegisterLifecycleHooks(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, server *apiserver.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting intake service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("model_provider", cfg.Extraction.Provider),
			)

			go func() {
				if err := server.Start(); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down intake service")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}

// quotaPurger is implemented by quota stores that keep expired days until purged
type quotaPurger interface {
	PurgeBefore(ctx context.Context, date string) (int64, error)
}

// RegisterQuotaPurge deletes counters from previous days for stores without native expiry
func RegisterQuotaPurge(lc fx.Lifecycle, store outbound.QuotaStore, cfg *config.Config, log *zap.Logger) error {
	purger, ok := store.(quotaPurger)
	if !ok {
		return nil
	}
	policy, err := cfg.QuotaPolicy()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runQuotaPurge(ctx, purger, policy, purgeInterval, log)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return nil
}

func runQuotaPurge(ctx context.Context, purger quotaPurger, policy quota.Policy, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Keep yesterday so a request straddling midnight still sees its record
		cutoff := policy.Date(time.Now().AddDate(0, 0, -1))
		n, err := purger.PurgeBefore(ctx, cutoff)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("Quota purge failed", zap.Error(err))
		case n > 0:
			log.Info("Purged expired quota records", zap.Int64("deleted", n), zap.String("before", cutoff))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
