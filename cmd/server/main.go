package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clientapp "github.com/estudiomd/backoffice/internal/application/client"
	"github.com/estudiomd/backoffice/internal/application/dashboard"
	financeapp "github.com/estudiomd/backoffice/internal/application/finance"
	identityapp "github.com/estudiomd/backoffice/internal/application/identity"
	operationalapp "github.com/estudiomd/backoffice/internal/application/operational"
	taskapp "github.com/estudiomd/backoffice/internal/application/task"
	"github.com/estudiomd/backoffice/internal/infrastructure/auth"
	"github.com/estudiomd/backoffice/internal/infrastructure/cache"
	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/estudiomd/backoffice/internal/infrastructure/event"
	"github.com/estudiomd/backoffice/internal/infrastructure/logger"
	"github.com/estudiomd/backoffice/internal/infrastructure/migration"
	"github.com/estudiomd/backoffice/internal/infrastructure/persistence"
	"github.com/estudiomd/backoffice/internal/infrastructure/scheduler"
	"github.com/estudiomd/backoffice/internal/infrastructure/storage"
	"github.com/estudiomd/backoffice/internal/infrastructure/telemetry"
	"github.com/estudiomd/backoffice/internal/interfaces/http/handler"
	"github.com/estudiomd/backoffice/internal/interfaces/http/middleware"
	"github.com/estudiomd/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, appVersion, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	if cfg.Telemetry.LogsEnabled {
		otelCore := providers.ZapCore(logger.ParseLevel(cfg.Log.Level))
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelCore)
		}))
	}

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	metrics, err := telemetry.NewBusinessMetrics(providers.Meter("backoffice"))
	if err != nil {
		log.Fatal("Failed to register business metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugins(telemetry.GormPlugins(cfg.Telemetry, cfg.Database.Driver, log)...))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(db, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Repositories
	clientRepo := persistence.NewGormClientRepository(db.DB)
	financeRepo := persistence.NewGormClientFinanceRepository(db.DB)
	collectionRepo := persistence.NewGormCollectionRecordRepository(db.DB)
	operationalRepo := persistence.NewGormOperationalControlRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Cache, token blacklist and snapshot cache share one backend
	readyChecks := map[string]handler.Pinger{"database": db}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		readyChecks["redis"] = redisPinger{redisClient}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	backend := cfg.Dashboard.CacheBackend
	if backend == "" && redisClient != nil {
		backend = cache.BackendRedis
	}
	store, err := cache.New(backend, redisClient, "backoffice:", cfg.Dashboard.CacheTTL, log)
	if err != nil {
		log.Fatal("Failed to create cache", zap.Error(err))
	}
	blacklist := auth.NewCacheTokenBlacklist(store)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)

	documents, serveDocuments := openDocumentStorage(cfg, log)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, identityapp.AuthServiceConfigFrom(cfg.JWT), log)
	clientService := clientapp.NewClientService(clientRepo, eventBus, log)
	financeService := financeapp.NewFinanceService(financeRepo, clientRepo, eventBus, log,
		financeapp.WithOperationalYears(operationalRepo),
		financeapp.WithUserDirectory(userRepo),
		financeapp.WithPaymentMetrics(metrics),
	)
	collectionService := financeapp.NewCollectionService(collectionRepo, clientRepo, log)
	operationalService := operationalapp.NewOperationalService(operationalRepo, clientRepo, documents, eventBus, log)
	taskService := taskapp.NewTaskService(taskRepo, userRepo, eventBus, log)

	aggregator := dashboard.NewAggregator(clientRepo, financeRepo, operationalRepo, userRepo, dashboard.AggregatorConfig{
		Concurrency:    cfg.Dashboard.Concurrency,
		ActivityWindow: cfg.Dashboard.ActivityWindow,
		ActivityLimit:  cfg.Dashboard.ActivityLimit,
		FetchTimeout:   cfg.Dashboard.FetchTimeout,
	}, log)
	dashboardState := dashboard.NewState(aggregator, store, cfg.Dashboard.CacheTTL, log,
		dashboard.WithTaskStats(taskRepo),
		dashboard.WithRefreshMetrics(metrics),
	)

	// Event handlers
	eventBus.Subscribe(dashboardState)
	eventBus.Subscribe(metrics)
	if cfg.Broker.Enabled {
		forwarder, err := event.DialAMQPForwarder(cfg.Broker.URL, cfg.Broker.Exchange, log)
		if err != nil {
			log.Fatal("Failed to connect to message broker", zap.Error(err))
		}
		defer forwarder.Close()
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding domain events", zap.String("exchange", cfg.Broker.Exchange))
	}
	log.Info("Event handlers registered",
		zap.Strings("dashboard_events", dashboardState.EventTypes()),
		zap.Strings("metrics_events", metrics.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Dashboard.WarmInterval > 0 {
		warmerConfig := scheduler.DefaultWarmerConfig()
		warmerConfig.Interval = cfg.Dashboard.WarmInterval
		warmer, err := scheduler.NewWarmer(warmerConfig, dashboardState, log)
		if err != nil {
			log.Fatal("Failed to configure dashboard warmer", zap.Error(err))
		}
		if err := warmer.Start(context.Background()); err != nil {
			log.Fatal("Failed to start dashboard warmer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := warmer.Stop(ctx); err != nil {
				log.Error("Error stopping dashboard warmer", zap.Error(err))
			}
		}()
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. Recovery - Catch panics
	// 2. RequestID - Generate/propagate request ID
	// 3. Tracing - Server span per request
	// 4. Logger - Log requests
	// 5. Metrics - Request counters and latency
	// 6. Security, CORS, BodyLimit, RateLimit
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.TracingEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log, "/health", "/ready"))
	if cfg.Telemetry.MetricsEnabled {
		engine.Use(middleware.HTTPMetrics(providers.Meter("backoffice/http")))
	}
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(max(cfg.HTTP.MaxBodySize, cfg.HTTP.MaxUploadSize)))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	if serveDocuments != nil {
		engine.GET("/documents/*key", serveDocuments)
	}

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log

	routes := router.RegisterAPI(router.NewRouter(engine, router.WithAPIVersion("v1")), router.Handlers{
		System:      handler.NewSystemHandler(cfg.App.Name, appVersion, readyChecks),
		Auth:        handler.NewAuthHandler(authService),
		Client:      handler.NewClientHandler(clientService),
		Finance:     handler.NewFinanceHandler(financeService),
		Collection:  handler.NewCollectionHandler(collectionService),
		Operational: handler.NewOperationalHandler(operationalService),
		Task:        handler.NewTaskHandler(taskService),
		Dashboard:   handler.NewDashboardHandler(dashboardState),
	}, router.Guards{
		Authenticate: middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		AuthLimiter:  middleware.AuthRateLimit(middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)),
	})
	log.Info("API routes mounted", zap.Int("count", len(routes)))
	log.Debug("Route table", zap.Strings("routes", routes))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations on postgres and the
// model schema on sqlite
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver() != config.DriverPostgres {
		return migration.AutoMigrate(db.DB, log)
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// openDocumentStorage returns the S3 store when configured. Otherwise it
// falls back to process memory and a handler serving its objects.
func openDocumentStorage(cfg *config.Config, log *zap.Logger) (operationalapp.DocumentStorage, gin.HandlerFunc) {
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3DocumentStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to configure document storage", zap.Error(err))
		}
		if cfg.Storage.CreateBucket {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s3Store.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to prepare document bucket", zap.Error(err))
			}
		}
		log.Info("Document storage ready", zap.String("bucket", s3Store.Bucket()))
		return s3Store, nil
	}

	base := strings.TrimRight(cfg.App.PublicURL, "/")
	if base == "" {
		base = "http://localhost:" + cfg.App.Port
	}
	mem := storage.NewMemoryDocumentStorage(base + "/documents")
	log.Warn("Object storage disabled, keeping documents in memory")

	return mem, func(c *gin.Context) {
		data, contentType, ok := mem.Object(strings.TrimPrefix(c.Param("key"), "/"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
