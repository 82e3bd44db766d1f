package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/config"
	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/logger"
	"github.com/astralume/astral-api/internal/queue"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/ephemeris"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/astralume/astral-api/internal/workers"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The worker pre-generates daily content so morning traffic hits a warm
// cache. It shares the generator, cache, and prompt registry with the server;
// only the entry point differs.
func main() {
	debugFlag := flag.Bool("debug", false, "enable debug logging for LLM API calls")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
	)

	// Unlike the server, the worker has no degraded mode: without a database
	// there are no users to warm, and without the queue nothing to consume.
	if cfg.DatabaseURL == "" || cfg.RabbitMQURL == "" {
		zapLogger.Fatal("worker_requires_database_and_rabbitmq")
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("database_connect_failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	users := database.NewUserRepository(db)

	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer func() { _ = redisStore.Close() }()
		store = redisStore
	} else {
		// Warming an in-process cache helps nobody; still allowed for local runs.
		zapLogger.Warn("no_redis_url_warming_in_memory_cache_only")
		store = cache.NewMemoryStore()
	}

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("rabbitmq_connect_failed", zap.Error(err))
	}
	defer func() { _ = jobQueue.Close() }()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	registry, err := prompt.NewRegistryWithOverrides(cfg.PromptOverridesPath)
	if err != nil {
		zapLogger.Fatal("prompt_overrides_load_failed", zap.Error(err))
	}

	completionClient := ai.NewOpenAIClient(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	generator := ai.NewGenerator(registry, store, completionClient, zapLogger)
	charts := ephemeris.NewClient(cfg.EphemerisURL)

	warmer := workers.NewContentWarmer(generator, charts, users, jobQueue, zapLogger)
	scheduler := workers.NewScheduler(jobQueue, users, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := scheduler.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("scheduler_stopped", zap.Error(err))
		}
	}()

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("consume_start_failed", zap.Error(err))
	}
	zapLogger.Info("worker_consuming")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := warmer.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("job_processing_failed",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("worker_shutting_down")
	cancel()
	zapLogger.Info("worker_stopped")
}
