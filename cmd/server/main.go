package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/study-planner/internal/cache"
	"github.com/benvon/study-planner/internal/clock"
	"github.com/benvon/study-planner/internal/config"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/handlers"
	"github.com/benvon/study-planner/internal/logger"
	"github.com/benvon/study-planner/internal/middleware"
	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/queue"
	"github.com/benvon/study-planner/internal/services/ai"
	"github.com/benvon/study-planner/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("queue_enabled", cfg.QueueEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	loc, err := cfg.Location()
	if err != nil {
		zapLogger.Fatal("invalid_timezone", zap.Error(err))
	}
	clk := clock.NewSystem(loc)

	// Tracing; with OTEL disabled the no-op provider keeps spans cheap
	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Options{
		Enabled:     cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName: telemetry.ServerServiceName,
		Endpoint:    cfg.OTELEndpoint,
		Version:     Version,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	// Redis backs rate limiting, the suggestion cache and chat sessions
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	// RabbitMQ is optional; without it ordering suggestions stay deterministic
	// unless the AI provider is called inline
	var jobQueue queue.JobQueue
	if cfg.QueueEnabled() {
		q, err := connectQueue(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		jobQueue = q
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	}

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	taskRepo.SetLogger(zapLogger)
	userRepo := database.NewUserRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Initialize AI provider
	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_ai_features_disabled", zap.Error(err))
		aiProvider = nil
	}

	// With a queue the worker fills the cache; without one a configured
	// provider is consulted on cache misses
	var generator cache.Generator
	if jobQueue == nil && aiProvider != nil {
		generator = aiProvider
	}
	suggestions := cache.NewSuggestionCache(redisClient, cfg.SuggestionTTL, generator, zapLogger)

	detectorOpts := []conflict.Option{
		conflict.WithLogger(zapLogger),
		conflict.WithSuggester(suggestions),
	}
	if jobQueue != nil && aiProvider != nil {
		detectorOpts = append(detectorOpts, conflict.WithPriorityConflictHook(enqueueSuggestion(jobQueue, suggestions, zapLogger)))
	}
	detector := conflict.NewDetector(taskRepo, detectorOpts...)

	var chatService *ai.ChatService
	if aiProvider != nil {
		chatService = ai.NewChatService(aiProvider, ai.NewRedisSessionStore(redisClient, cfg.ChatSessionTTL))
	}

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskRepo, detector, clk, zapLogger)
	planHandler := handlers.NewPlanHandler()
	conflictHandler := handlers.NewConflictHandler(taskRepo, detector, zapLogger)
	assistantHandler := handlers.NewAssistantHandler(taskRepo, detector, chatService, clk, zapLogger)
	displayHandler := handlers.NewDisplayHandler()

	healthChecker := handlers.NewHealthChecker()
	healthChecker.AddCheck("database", db.PingContext)
	healthChecker.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	if jobQueue != nil {
		healthChecker.AddCheck("rabbitmq", jobQueue.HealthCheck)
	} else {
		healthChecker.AddCheck("rabbitmq", nil)
	}

	// Setup router
	r := mux.NewRouter()

	// Middleware registered first is outermost
	zapLogger.Info("setting_up_middleware")

	// 0. OpenTelemetry tracing
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServerServiceName))
	}
	// 1. Request ID (propagated to logs and AI calls)
	r.Use(middleware.RequestID)
	// 2. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 3. CORS (load from DB, hot-reload; fallback to FRONTEND_URL)
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())
	// 4. Request size limits
	r.Use(middleware.MaxRequestSize(cfg.MaxRequestBytes))
	// 5. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 6. Request timeout
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	// 7. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 8. Audit logging (for security events)
	r.Use(middleware.Audit(zapLogger))
	// 9. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Rate limit middleware (applied to API routes only)
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, ratelimitConfigRepo, middleware.DefaultRatelimitRate, zapLogger, 1*time.Minute)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"), Version, zapLogger)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes: caller identity first, then per-user rate limiting
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.UserContext(userRepo, zapLogger))
	apiRouter.Use(rateLimitReloader.Middleware())

	taskHandler.RegisterRoutes(apiRouter.PathPrefix("/tasks").Subrouter())
	planHandler.RegisterRoutes(apiRouter.PathPrefix("/plans").Subrouter())
	conflictHandler.RegisterRoutes(apiRouter.PathPrefix("/conflicts").Subrouter())
	assistantHandler.RegisterRoutes(apiRouter.PathPrefix("/assistant").Subrouter())
	displayHandler.RegisterRoutes(apiRouter.PathPrefix("/display").Subrouter())

	// Catch-all OPTIONS handler for preflight requests; CORS has already
	// written the headers by the time this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// CORS and rate limit hot-reload loops
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue retries with exponential backoff to ride out RabbitMQ startup
func connectQueue(url string, zapLogger *zap.Logger) (*queue.RabbitMQQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("rabbitmq unavailable after %d attempts: %w", maxRetries, lastErr)
}

// enqueueSuggestion returns a priority conflict hook that asks the worker to
// generate an AI ordering for the pair unless one is already cached
func enqueueSuggestion(jobQueue queue.JobQueue, suggestions *cache.SuggestionCache, zapLogger *zap.Logger) conflict.PriorityConflictHook {
	return func(ctx context.Context, candidate, competing *models.Task) {
		if _, ok, err := suggestions.Get(ctx, candidate, competing); err == nil && ok {
			return
		}

		job, err := queue.NewOrderingSuggestionJob(candidate.UserID, candidate, competing)
		if err != nil {
			zapLogger.Error("failed_to_build_ordering_suggestion_job", zap.Error(err))
			return
		}
		if err := jobQueue.Enqueue(ctx, job); err != nil {
			zapLogger.Error("failed_to_enqueue_ordering_suggestion_job",
				zap.String("user_id", candidate.UserID.String()),
				zap.Error(err),
			)
			return
		}
		zapLogger.Debug("enqueued_ordering_suggestion_job",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", candidate.UserID.String()),
		)
	}
}

// createAIProvider creates an AI provider based on configuration
func createAIProvider(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (ai.AIProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	return registry.GetProvider(providerType, map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	})
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":"%s"}`, Version, time.Now().UTC().Format(time.RFC3339))
}
