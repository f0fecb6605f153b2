// Package main is the entry point for the API server.
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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/auth"
	"github.com/Esscraye/conformit/internal/config"
	"github.com/Esscraye/conformit/internal/events"
	"github.com/Esscraye/conformit/internal/handler"
	"github.com/Esscraye/conformit/internal/llm"
	"github.com/Esscraye/conformit/internal/middleware"
	"github.com/Esscraye/conformit/internal/service"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
	"github.com/Esscraye/conformit/pkg/tracing"
)

func main() {
	// .env is optional; real deployments set environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conformit-chat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Backing key-value store
	redisClient, err := store.NewClient(ctx, store.Config{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Error("failed to connect to redis", zap.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Event bus is optional; the server runs without it.
	var publisher *events.Publisher
	if cfg.EventsEnabled {
		natsClient, err := events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			defer natsClient.Close()
			publisher = events.NewPublisher(natsClient)
			if err := publisher.EnsureStream(ctx); err != nil {
				log.Error("failed to ensure event stream", zap.Error(err))
				os.Exit(1)
			}
		}
	}

	// LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" && cfg.DefaultLLM == "anthropic" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	} else if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, chat turns disabled", zap.Error(err))
	}

	// Stores and services, explicitly constructed and injected
	userStore := store.NewUserStore(redisClient, log)
	conversationStore := store.NewConversationStore(redisClient, log)
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTIssuer)
	chatService := service.NewChatService(conversationStore, llmClient, publisher, log, service.Options{
		SystemPrompt: cfg.SystemPrompt,
		DefaultModel: cfg.DefaultModel,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	})

	// Handlers
	healthHandler := handler.NewHealthHandler(redisClient)
	authHandler := handler.NewAuthHandler(userStore, tokenService, log)
	conversationHandler := handler.NewConversationHandler(conversationStore, log)
	messageHandler := handler.NewMessageHandler(conversationStore, log)
	chatHandler := handler.NewChatHandler(chatService, conversationStore, log)

	// Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Public auth endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokenService, userStore))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/user", authHandler.CurrentUser)
		r.Post("/conversations", conversationHandler.List)
		r.Get("/messages/{chatID}", messageHandler.List)
		r.Delete("/messages/{chatID}/{messageID}", messageHandler.Truncate)
		r.Post("/chat/{chatID}", chatHandler.Send)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
