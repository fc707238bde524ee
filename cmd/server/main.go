package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/erp/invoicing/internal/application/document"
	eventapp "github.com/erp/invoicing/internal/application/event"
	identityapp "github.com/erp/invoicing/internal/application/identity"
	inventoryapp "github.com/erp/invoicing/internal/application/inventory"
	invoiceapp "github.com/erp/invoicing/internal/application/invoice"
	partnerapp "github.com/erp/invoicing/internal/application/partner"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/event"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/internal/infrastructure/printing"
	"github.com/erp/invoicing/internal/infrastructure/scheduler"
	"github.com/erp/invoicing/internal/infrastructure/storage"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/erp/invoicing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/erp/invoicing/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Invoicing API
//	@version		1.0
//	@description	Invoice, client and inventory administration backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const (
	// lowStockThreshold is the available quantity at or below which an item counts as low
	lowStockThreshold int64 = 5
	// stockMetricsInterval is how often per-tenant stock gauges are refreshed
	stockMetricsInterval       = 5 * time.Minute
	slowQueryThreshold         = 200 * time.Millisecond
	outboxHousekeepingInterval = time.Hour
	shutdownTimeout            = 30 * time.Second
	readinessTimeout           = 2 * time.Second
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// Telemetry: traces, then logs (so everything after is bridged), then metrics and profiles
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	if loggerProvider.IsEnabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		log = telemetry.NewBridgedLogger(log.Core(), telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    serviceName,
			LoggerProvider: loggerProvider,
			Level:          level,
		}), zap.AddCaller())
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: serviceName,
		Profiles:        cfg.Telemetry.Profiles,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:         logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: slowQueryThreshold,
		LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
	})
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: slowQueryThreshold,
		DBSystem:        dbSystem,
	}, log)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = slowQueryThreshold
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Redis backs the token blacklist, the lookup cache and idempotency keys when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	}

	var idempotencyStore shared.IdempotencyStore = cache.NewMemoryIdempotencyStore()
	if redisClient != nil {
		idempotencyStore = cache.NewRedisIdempotencyStore(redisClient, cfg.App.Name+":idempotency:")
	}

	lookupCache := newLookupCache(ctx, cfg, redisClient, log)
	defer func() {
		if closer, ok := lookupCache.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryItemRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	recordSource := persistence.NewGormRecordSource(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Application services
	txScope := persistence.NewGormTransactionScope(db.DB)
	var submitter invoiceapp.Submitter
	switch cfg.Invoice.SubmitMode {
	case "saga":
		submitter = invoiceapp.NewSagaSubmitter(invoiceRepo, inventoryRepo, log)
	default:
		submitter = invoiceapp.NewTransactionalSubmitter(txScope)
	}
	invoiceService := invoiceapp.NewInvoiceService(invoiceRepo, inventoryRepo, clientRepo, submitter, log, invoiceapp.ServiceConfig{
		NumberPrefix:   cfg.Invoice.NumberPrefix,
		IdempotencyTTL: cfg.Invoice.IdempotencyTTL,
	})
	invoiceService.SetIdempotencyStore(idempotencyStore)

	inventoryService := inventoryapp.NewInventoryService(inventoryRepo, log)
	inventoryService.SetLookupCache(lookupCache, cfg.Redis.CacheTTL)

	clientService := partnerapp.NewClientService(clientRepo, log)
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	profileService := partnerapp.NewProfileService(profileRepo, hasher, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(profileRepo, hasher, jwtService, blacklist, log)

	location, err := time.LoadLocation(cfg.Browser.TimeZone)
	if err != nil {
		log.Fatal("Invalid browser time zone", zap.Error(err))
	}
	money := browser.NewRenderer(location)
	browserService := browser.NewService(recordSource, browser.DefaultRegistry(), money, log)

	documentService := newDocumentService(ctx, cfg, invoiceRepo, clientRepo, money, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Events: the stock alert handler always listens on the in-process bus.
	// With outbox delivery, services write to the outbox and the relay job feeds the bus.
	eventBus := event.NewInMemoryEventBus(log)
	stockHandler := inventoryapp.NewStockEventHandler(inventoryService, lowStockThreshold, log).
		WithNotifier(inventoryapp.NewLoggingStockAlertNotifier(log))
	eventBus.Subscribe(
		event.Deduplicate("stock_alerts", stockHandler, idempotencyStore, event.DefaultDedupTTL, log),
		stockHandler.EventTypes()...,
	)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer shutdown(log, "event bus", eventBus.Stop)

	jobs := scheduler.New(scheduler.DefaultConfig(), log)
	var triggers []*scheduler.IntervalTrigger

	var publisher shared.EventPublisher = eventBus
	if cfg.Events.Delivery == "outbox" {
		codec := event.DomainCodec()
		outbox := event.NewOutboxPublisher(db.DB, codec)
		publisher = outbox
		// transactional submissions write their events in the submit transaction
		txScope.WithOutbox(func(tx *gorm.DB) shared.EventPublisher { return outbox.WithTx(tx) })
		relay := event.NewOutboxRelay(outboxRepo, eventBus, codec, event.OutboxRelayConfig{
			BatchSize: cfg.Events.OutboxBatchSize,
			Retention: cfg.Events.OutboxRetention,
		}, log)

		// a failed relay run is retried by the next tick
		jobs.Register(scheduler.JobOutboxRelay, scheduler.NewOutboxRelayExecutor(relay, log), scheduler.WithRetries(0, 0))
		jobs.Register(scheduler.JobOutboxHousekeeping, scheduler.NewOutboxHousekeepingExecutor(relay))
		triggers = append(triggers,
			scheduler.NewIntervalTrigger(scheduler.JobOutboxRelay, cfg.Events.OutboxPollInterval, true, jobs, log),
			scheduler.NewIntervalTrigger(scheduler.JobOutboxHousekeeping, outboxHousekeepingInterval, false, jobs, log),
		)
	}
	invoiceService.SetEventPublisher(publisher)
	inventoryService.SetEventPublisher(publisher)
	log.Info("Event handlers registered",
		zap.String("delivery", cfg.Events.Delivery),
		zap.Strings("stock_alert_events", stockHandler.EventTypes()),
	)

	if meterProvider.IsEnabled() {
		invoiceMetrics, err := telemetry.NewInvoiceMetrics(telemetry.InvoiceMetricsConfig{
			Meter:             meterProvider.Meter("invoicing"),
			Logger:            log,
			Census:            telemetry.NewGormStockCensus(db.DB),
			LowStockThreshold: lowStockThreshold,
		})
		if err != nil {
			log.Warn("Invoice metrics unavailable", zap.Error(err))
		} else {
			invoiceService.SetInvoiceMetrics(invoiceMetrics)
			jobs.Register(scheduler.JobStockGauges, scheduler.NewStockGaugeExecutor(invoiceMetrics), scheduler.WithRetries(0, 0))
			triggers = append(triggers,
				scheduler.NewIntervalTrigger(scheduler.JobStockGauges, stockMetricsInterval, true, jobs, log))
		}
	}

	// Background jobs
	jobs.Register(scheduler.JobOverdueSweep, scheduler.NewOverdueSweepExecutor(invoiceService, log))
	triggers = append(triggers,
		scheduler.NewIntervalTrigger(scheduler.JobOverdueSweep, cfg.Invoice.OverdueSweepInterval, true, jobs, log))
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer shutdown(log, "scheduler", jobs.Stop)
	for _, trigger := range triggers {
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start job trigger", zap.Error(err))
		}
		defer shutdown(log, "job trigger", trigger.Stop)
	}

	// HTTP
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var documents handler.DocumentService
	if documentService != nil {
		documents = documentService
	}
	handlers := router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, version, checks, readinessTimeout),
		Auth:      handler.NewAuthHandler(authService),
		Record:    handler.NewRecordHandler(browserService),
		Invoice:   handler.NewInvoiceHandler(invoiceService, documents),
		Client:    handler.NewClientHandler(clientService),
		Inventory: handler.NewInventoryHandler(inventoryService),
		Profile:   handler.NewProfileHandler(profileService),
		Outbox:    handler.NewOutboxHandler(outboxService),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID must exist before logging, and tracing
	// must wrap everything that may produce a span.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health", "/ready"))
	engine.Use(middleware.Tracing(serviceName, tracerProvider.IsEnabled()))
	if meterProvider.IsEnabled() {
		httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("invoicing/http"))
		if err != nil {
			log.Warn("HTTP metrics unavailable", zap.Error(err))
		} else {
			engine.Use(httpMetrics)
		}
	}
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		MaxAge:       12 * time.Hour,
	}))
	engine.Use(middleware.SecureHeaders())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	loginLimiter := middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	defer loginLimiter.Stop()

	router.Mount(engine, handlers, router.Options{
		Authenticate: middleware.JWTAuth(middleware.JWTConfig{
			JWTService: jwtService,
			Blacklist:  blacklist,
			Logger:     log,
		}),
		LoginLimiter: loginLimiter,
		Swagger:      ginSwagger.WrapHandler(swaggerFiles.Handler),
		SwaggerGuard: middleware.SwaggerGuard(cfg.Swagger.Enabled, cfg.Swagger.AllowedIPs),
		Profiling:    profiler.IsEnabled(),
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// stops background loops before the deferred shutdowns run
	cancel()

	log.Info("Server exited gracefully")
}

// shutdown runs a stop function under its own timeout and logs failures
func shutdown(log *zap.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}

// newLookupCache returns a tiered cache (process memory in front of Redis,
// kept coherent over pub/sub) when Redis is enabled, and a plain in-memory
// cache otherwise.
func newLookupCache(ctx context.Context, cfg *config.Config, client *redis.Client, log *zap.Logger) inventoryapp.LookupCache {
	l1 := cache.NewInMemoryLookupCache(cfg.Redis.CacheTTL)
	if client == nil {
		return l1
	}

	hostname, _ := os.Hostname()
	origin := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])

	l2 := cache.NewRedisLookupCache(client,
		cache.WithKeyPrefix(cfg.App.Name+":lookup:"),
		cache.WithDefaultTTL(cfg.Redis.CacheTTL),
		cache.WithCacheLogger(log),
	)
	tiered := cache.NewTieredLookupCache(l1, l2, cache.NewRedisCacheInvalidator(client, origin, log), cfg.Redis.CacheTTL/2, log)
	if err := tiered.StartInvalidationSubscription(ctx); err != nil {
		log.Warn("Lookup cache invalidation unavailable, using local cache", zap.Error(err))
		_ = tiered.Close()
		return l1
	}
	return tiered
}

// newDocumentService wires HTML rendering with the configured PDF engine and
// archive storage. A missing PDF engine or bucket degrades those operations
// only; a nil return means documents are unavailable altogether.
func newDocumentService(
	ctx context.Context,
	cfg *config.Config,
	invoiceRepo *persistence.GormInvoiceRepository,
	clientRepo *persistence.GormClientRepository,
	money *browser.Renderer,
	log *zap.Logger,
) *document.DocumentService {
	html, err := document.NewHTMLRenderer(document.NewNotesFormatter())
	if err != nil {
		log.Error("Invoice documents unavailable", zap.Error(err))
		return nil
	}

	pdf, err := printing.NewPDFRenderer(cfg.Document, log)
	if err != nil {
		log.Warn("PDF rendering unavailable", zap.String("engine", cfg.Document.Engine), zap.Error(err))
		pdf = nil
	}

	var archive document.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Archive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Warn("Document archive unavailable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		} else {
			ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s3.EnsureBucket(ensureCtx); err != nil {
				log.Warn("Archive bucket check failed", zap.String("bucket", s3.Bucket()), zap.Error(err))
			}
			cancel()
			archive = s3
		}
	}

	return document.NewDocumentService(invoiceRepo, clientRepo, html, pdf, archive, money, cfg.Document.CompanyName, log)
}
