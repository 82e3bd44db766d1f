package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/astralume/astral-api/internal/auth"
	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/config"
	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/handlers"
	"github.com/astralume/astral-api/internal/logger"
	"github.com/astralume/astral-api/internal/middleware"
	"github.com/astralume/astral-api/internal/queue"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/billing"
	"github.com/astralume/astral-api/internal/services/cbt"
	"github.com/astralume/astral-api/internal/services/ephemeris"
	"github.com/astralume/astral-api/internal/services/geo"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/astralume/astral-api/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "enable debug logging for LLM API calls")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Tracing is opt-in; a missing collector only costs a warning.
	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(context.Background(), "astral-api", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("otel_init_failed", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("otel_shutdown_failed", zap.Error(err))
				}
			}()
		}
	}

	// Postgres is optional: without it the content, geo, and CBT routes still
	// work; accounts and billing are disabled.
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("database_connect_failed", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		zapLogger.Info("connected_to_database")
	} else {
		zapLogger.Warn("no_database_url_auth_and_billing_disabled")
	}

	// Cache: Redis when configured, in-process memory otherwise.
	var store cache.Store
	var redisStore *cache.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer func() { _ = redisStore.Close() }()
		store = redisStore
		zapLogger.Info("connected_to_redis")
	} else {
		store = cache.NewMemoryStore()
		zapLogger.Warn("no_redis_url_using_in_memory_cache")
	}

	// RabbitMQ is optional; it only feeds the pre-generation worker.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue, err = connectQueue(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
		}
		defer func() { _ = jobQueue.Close() }()
		zapLogger.Info("connected_to_rabbitmq")
	}

	registry, err := prompt.NewRegistryWithOverrides(cfg.PromptOverridesPath)
	if err != nil {
		zapLogger.Fatal("prompt_overrides_load_failed", zap.Error(err))
	}

	completionClient := ai.NewOpenAIClient(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	generator := ai.NewGenerator(registry, store, completionClient, zapLogger)

	geoClient := geo.NewClient(cfg.GeoBaseURL, store, cfg.GeoTimeout, zapLogger)
	ephemerisClient := ephemeris.NewClient(cfg.EphemerisURL)
	cbtStore := cbt.NewStore(store, zapLogger)
	cbtAnalyzer := cbt.NewAnalyzer(generator, cbtStore)

	r := mux.NewRouter()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		r.Use(otelmux.Middleware("astral-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	var corsRepo *database.CorsConfigRepository
	var ratelimitRepo *database.RatelimitConfigRepository
	if db != nil {
		corsRepo = database.NewCorsConfigRepository(db)
		ratelimitRepo = database.NewRatelimitConfigRepository(db)
	}
	corsReloader := middleware.NewCORSReloader(corsRepo, cfg.FrontendURL, zapLogger, time.Minute)
	r.Use(corsReloader.Middleware())

	var rateLimitMW func(http.Handler) http.Handler
	var rateLimitReloader *middleware.RateLimitReloader
	if redisStore != nil {
		rateLimitReloader, err = middleware.NewRateLimitReloader(redisStore.Client(), ratelimitRepo, "5-S", zapLogger, time.Minute)
		if err != nil {
			zapLogger.Fatal("ratelimit_init_failed", zap.Error(err))
		}
		rateLimitMW = rateLimitReloader.Middleware()
	}

	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Health, version, OpenAPI: public, unthrottled.
	var dbPinger, cachePinger, queuePinger handlers.Pinger
	if db != nil {
		dbPinger = db
	}
	if redisStore != nil {
		cachePinger = redisStore
	}
	if jobQueue != nil {
		queuePinger = jobQueue
	}
	handlers.NewHealthChecker(dbPinger, cachePinger, queuePinger).RegisterRoutes(r)
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	if rateLimitMW != nil {
		apiRouter.Use(rateLimitMW)
	}

	astroHandler := handlers.NewAstroHandler(generator, ephemerisClient, geoClient, zapLogger)
	astroHandler.RegisterRoutes(apiRouter.PathPrefix("/astro").Subrouter())

	handlers.NewGeoHandler(geoClient).RegisterRoutes(apiRouter.PathPrefix("/geo").Subrouter())
	handlers.NewCBTHandler(cbtStore, cbtAnalyzer).RegisterRoutes(apiRouter.PathPrefix("/cbt").Subrouter())

	if db != nil {
		users := database.NewUserRepository(db)
		entitlements := database.NewEntitlementRepository(db)

		tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			zapLogger.Fatal("token_manager_init_failed", zap.Error(err))
		}
		authMW := middleware.Auth(tokens, users, zapLogger)

		authHandler := handlers.NewAuthHandler(users, tokens, geoClient, zapLogger)
		authRouter := apiRouter.PathPrefix("/auth").Subrouter()
		authHandler.RegisterPublicRoutes(authRouter)
		protectedAuth := apiRouter.PathPrefix("/auth").Subrouter()
		protectedAuth.Use(authMW)
		authHandler.RegisterProtectedRoutes(protectedAuth)

		if cfg.StripeKey != "" && cfg.StripePriceID != "" {
			billingService, err := billing.NewService(cfg.StripeKey, cfg.StripeWebhookSecret, cfg.StripePriceID, cfg.FrontendURL, entitlements, zapLogger)
			if err != nil {
				zapLogger.Fatal("billing_init_failed", zap.Error(err))
			}
			billingHandler := handlers.NewBillingHandler(billingService, zapLogger)
			billingRouter := apiRouter.PathPrefix("/billing").Subrouter()
			billingHandler.RegisterWebhookRoute(billingRouter)
			protectedBilling := apiRouter.PathPrefix("/billing").Subrouter()
			protectedBilling.Use(authMW)
			billingHandler.RegisterProtectedRoutes(protectedBilling)
		} else {
			zapLogger.Warn("stripe_not_configured_billing_disabled")
		}
	}

	// Preflight catch-all; CORS headers are set by the middleware.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)
	if rateLimitReloader != nil {
		go rateLimitReloader.Start(bgCtx)
	}

	if purger, ok := jobQueue.(queue.DLQPurger); ok {
		gc := queue.NewGarbageCollector(purger, time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := gc.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_gc_stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server_forced_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker
// startup delays.
func connectQueue(url string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			return q, nil
		}
		lastErr = err
		delay := 2 * time.Second * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("rabbitmq_connect_retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}
