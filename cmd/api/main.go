// Package main is the entry point for the portfolio chat API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tommylisiak/portfolio-chat/internal/assistant"
	"github.com/tommylisiak/portfolio-chat/internal/config"
	"github.com/tommylisiak/portfolio-chat/internal/handler"
	"github.com/tommylisiak/portfolio-chat/internal/llm"
	"github.com/tommylisiak/portfolio-chat/internal/middleware"
	"github.com/tommylisiak/portfolio-chat/internal/ratelimit"
	"github.com/tommylisiak/portfolio-chat/internal/service"
	"github.com/tommylisiak/portfolio-chat/internal/store"
	pgstore "github.com/tommylisiak/portfolio-chat/internal/store/postgres"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
	"github.com/tommylisiak/portfolio-chat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "portfolio-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Select the history store
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}
		st = pg
		log.Info("using postgres history store")
	} else {
		st = store.NewMemoryStore()
		log.Warn("no DATABASE_URL configured, history is in-memory only")
	}

	// Select the chat rate limiter
	var limiter ratelimit.Limiter
	if cfg.RateLimitBackend == "redis" {
		rl, err := ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitRequests, cfg.RateLimitWindow)
		if err != nil {
			log.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rl.Close()
		limiter = rl
		log.Info("using redis rate limiter")
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	// Initialize the upstream assistant client
	assistantClient := assistant.NewClient(assistant.Config{
		APIKey:        cfg.OpenAIAPIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		AssistantID:   cfg.AssistantID,
		VectorStoreID: cfg.VectorStoreID,
		Model:         cfg.AssistantModel,
	}, log)

	// Initialize the persona LLM client
	var llmClient llm.Client
	provider, apiKey := llm.Provider(cfg.DefaultLLM), cfg.OpenAIAPIKey
	if provider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	if apiKey != "" {
		c, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, persona endpoint disabled", "error", err)
		} else {
			llmClient = c
		}
	} else {
		log.Warn("no API key for persona provider, persona endpoint disabled", "provider", cfg.DefaultLLM)
	}

	// Initialize services
	relaySvc := service.NewRelayService(
		service.NewAssistantUpstream(assistantClient),
		limiter,
		service.RelayConfig{
			Limits: service.Limits{
				MaxPayloadSize:   cfg.MaxPayloadSize,
				MaxMessages:      cfg.MaxMessages,
				MaxMessageLength: cfg.MaxMessageLength,
			},
			AssistantID: cfg.AssistantID,
			Mode:        cfg.AssistantMode,
			Timeout:     cfg.RelayTimeout,
		},
		log,
	)
	historySvc := service.NewHistoryService(st, log)
	personaSvc := service.NewPersonaService(llmClient, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(historySvc)
	chatHandler := handler.NewChatHandler(relaySvc, log)
	personaHandler := handler.NewPersonaHandler(personaSvc, log)
	historyHandler := handler.NewHistoryHandler(historySvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			"X-Client-Info", "Apikey", "X-Visitor-ID", "X-Forwarded-For",
		},
		ExposedHeaders: []string{"X-Correlation-ID", "Retry-After"},
		MaxAge:         300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Throttle(cfg.ThrottleRequests, cfg.ThrottleWindow))

		r.Post("/chat", chatHandler.Chat)
		r.Post("/chat/persona", personaHandler.Answer)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", historyHandler.Get)
			r.Delete("/", historyHandler.Delete)
			r.Post("/messages", historyHandler.Append)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
