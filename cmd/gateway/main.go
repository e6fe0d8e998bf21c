package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nearbuy/nearbuy-gateway/internal/adapters/cache"
	"github.com/nearbuy/nearbuy-gateway/internal/adapters/database"
	"github.com/nearbuy/nearbuy-gateway/internal/api/handlers"
	"github.com/nearbuy/nearbuy-gateway/internal/api/middleware"
	"github.com/nearbuy/nearbuy-gateway/internal/api/routes"
	"github.com/nearbuy/nearbuy-gateway/internal/application/services"
	"github.com/nearbuy/nearbuy-gateway/internal/domain/providers"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/postgres"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/redis"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
	"github.com/nearbuy/nearbuy-gateway/pkg/config"
	"github.com/nearbuy/nearbuy-gateway/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry is optional; the gateway runs fine without an endpoint
	var otelShutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		otelShutdown, err = observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
			otelShutdown = nil
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := otelShutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Redis is optional; without it the gateway serves uncached
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without response cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Info().Msg("Redis client initialized")
	}

	// The analytics database is optional and off by default
	var analyticsService *services.SearchAnalyticsService
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("analytics database unavailable, search analytics disabled")
		} else {
			defer pgClient.Close()
			analyticsService = services.NewSearchAnalyticsService(database.NewSearchAnalyticsAdapter(pgClient))
			log.Info().Msg("search analytics store initialized")
		}
	}

	// Backend API client with the 401-refresh transport
	creds := backendapi.NewCredentialStore()
	backendClient, err := backendapi.NewHTTPClient(&cfg.Backend, &cfg.Session, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend API client")
	}
	backendClient.SetMetrics(metrics)

	sessionService := services.NewSessionService(backendClient, creds, retry.Config{
		MaxAttempts:     cfg.Session.BootstrapAttempts,
		BaseDelay:       cfg.Session.BootstrapBackoff,
		MaxDelay:        10 * time.Second,
		MaxTotalTimeout: 30 * time.Second,
	})
	backendClient.OnRefreshFailure(sessionService.ForceLogout)

	sessionService.Subscribe(func() {
		log.Info().Msg("session terminated")
	})

	rankingService := services.NewRankingService()
	searchService := services.NewSearchService(backendClient, rankingService, analyticsService)

	// resolve both probes in the background so the first /api/session hit
	// answers from an already-populated state
	go func() {
		bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
		defer bootCancel()
		state := sessionService.Bootstrap(bootCtx)
		log.Info().
			Bool("user", state.User != nil).
			Bool("owner", state.Owner != nil).
			Msg("session bootstrap complete")
	}()

	sessionHandler := handlers.NewSessionHandler(sessionService, &cfg.Session)
	searchHandler := handlers.NewSearchHandler(searchService, analyticsService)
	ownerHandler := handlers.NewOwnerHandler(sessionService, backendClient)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
		log.Info().Msg("cache middleware initialized")
	}

	router := routes.NewRouter(sessionHandler, searchHandler, ownerHandler, cacheMiddleware, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
