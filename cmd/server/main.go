package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/config"
	"github.com/openai-token-gateway/internal/handler"
	"github.com/openai-token-gateway/internal/middleware"
	"github.com/openai-token-gateway/internal/service"
	"github.com/openai-token-gateway/internal/store"
	"github.com/openai-token-gateway/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create connection pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}

	pg := store.NewPostgres(pool)

	users := service.NewUserService(pg)
	tokens := service.NewTokenService(pg, cfg.TokenDefaultUses)
	ledger := service.NewUsageLedger(pg)
	gateway := upstream.NewClient(cfg.UpstreamBaseURL, cfg.OpenAIAPIKey, cfg.UpstreamTimeout)
	proxy := service.NewProxyService(tokens, ledger, gateway)

	limiter := middleware.NewAuthAttemptLimiter(cfg.AuthMaxFailures, cfg.AuthFailureWindow, cfg.AuthBlockDuration)

	userHandler := handler.NewUserHandler(users)
	tokenHandler := handler.NewTokenHandler(tokens)
	usageHandler := handler.NewUsageHandler(ledger)
	healthHandler := handler.NewHealthHandler(pg, pg)
	proxyHandler := handler.NewProxyHandler(proxy, limiter)

	r := newRouter(cfg, limiter, userHandler, tokenHandler, usageHandler, healthHandler, proxyHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("upstream", cfg.UpstreamBaseURL).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newRouter(
	cfg *config.Config,
	limiter *middleware.AuthAttemptLimiter,
	userHandler *handler.UserHandler,
	tokenHandler *handler.TokenHandler,
	usageHandler *handler.UsageHandler,
	healthHandler *handler.HealthHandler,
	proxyHandler *handler.ProxyHandler,
) chi.Router {
	r := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Metrics)

	r.Get("/", handler.Greeting)
	r.Get("/healthz", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Administrative surface: user and token records, usage reads.
	r.Post("/register", userHandler.Register)
	r.Get("/users", userHandler.List)
	r.Get("/user/{slackID}", userHandler.Get)

	r.Post("/token", tokenHandler.Create)
	r.Get("/tokens", tokenHandler.List)
	r.Get("/tokens/owner/{slackID}", tokenHandler.ListByOwner)
	r.Get("/token/{value}", tokenHandler.Get)
	r.Post("/token/{value}/revoke", tokenHandler.Revoke)
	r.Post("/token/{value}/block", tokenHandler.Block)
	r.Post("/token/{value}/unblock", tokenHandler.Unblock)
	r.Delete("/token/{value}", tokenHandler.Delete)

	r.Get("/usages", usageHandler.List)

	// Metered pass-through surface, bearer-authenticated.
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireBearer(limiter))

		r.Get("/models", proxyHandler.Endpoint(upstream.ListModels, ""))
		r.Get("/models/{model}", proxyHandler.Endpoint(upstream.GetModel, "model"))

		r.Post("/chat/completions", proxyHandler.Endpoint(upstream.ChatCompletions, ""))
		r.Post("/images/generations", proxyHandler.Endpoint(upstream.CreateImage, ""))
		r.Post("/embeddings", proxyHandler.Endpoint(upstream.Embeddings, ""))

		r.Post("/fine_tuning/jobs", proxyHandler.Endpoint(upstream.CreateFineTuning, ""))
		r.Get("/fine_tuning/jobs", proxyHandler.Endpoint(upstream.ListFineTuning, ""))
		r.Get("/fine_tuning/jobs/{jobID}", proxyHandler.Endpoint(upstream.GetFineTuning, "jobID"))
		r.Post("/fine_tuning/jobs/{jobID}/cancel", proxyHandler.Endpoint(upstream.CancelFineTuning, "jobID"))
		r.Get("/fine_tuning/jobs/{jobID}/events", proxyHandler.Endpoint(upstream.FineTuningEvents, "jobID"))
		r.Get("/fine_tuning/jobs/{jobID}/checkpoints", proxyHandler.Endpoint(upstream.FineTuningCheckpoints, "jobID"))

		r.Post("/batches", proxyHandler.Endpoint(upstream.CreateBatch, ""))
		r.Get("/batches", proxyHandler.Endpoint(upstream.ListBatches, ""))
		r.Get("/batches/{batchID}", proxyHandler.Endpoint(upstream.GetBatch, "batchID"))
		r.Post("/batches/{batchID}/cancel", proxyHandler.Endpoint(upstream.CancelBatch, "batchID"))
	})

	return r
}
