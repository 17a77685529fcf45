package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upclt/consignado-api/internal/config"
	"github.com/upclt/consignado-api/internal/domain"
	"github.com/upclt/consignado-api/internal/handler"
	"github.com/upclt/consignado-api/internal/infra/cache"
	"github.com/upclt/consignado-api/internal/infra/client"
	"github.com/upclt/consignado-api/internal/infra/facta"
	"github.com/upclt/consignado-api/internal/infra/observability"
	"github.com/upclt/consignado-api/internal/infra/resilience"
	"github.com/upclt/consignado-api/internal/infra/supabase"
	"github.com/upclt/consignado-api/internal/port"
	"github.com/upclt/consignado-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("facta_base_url", cfg.FactaBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("use_redis", cfg.UseRedis),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "consignado-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	var proposalsCache port.Cache[[]domain.Proposal]
	if cfg.UseRedis {
		logger.Info("using Redis proposals cache", zap.String("redis_addr", cfg.RedisAddr))
		proposalsCache = cache.NewRedis[[]domain.Proposal](cfg.RedisAddr, cfg.CacheTTL)
	} else {
		proposalsCache = cache.New[[]domain.Proposal](cfg.CacheTTL)
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	factaCB := resilience.NewCircuitBreaker("facta-status")
	chatCB := resilience.NewCircuitBreaker("chat")
	factaBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	tokenCache := facta.NewTokenCache(
		httpClient,
		cfg.FactaBaseURL,
		cfg.FactaAuthBasic,
		cfg.FactaTokenTTL,
		cfg.FactaTokenSafety,
		logger,
	)
	factaClient := facta.NewClient(
		httpClient,
		cfg.FactaBaseURL,
		tokenCache,
		cfg.FactaLoginCertificado,
		cfg.FactaConvenio,
		cfg.FactaAverbador,
		factaCB,
		factaBulkhead,
		logger,
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	chatClient := client.NewChatClient(
		httpClient,
		cfg.ChatGatewayURL,
		cfg.ChatGatewayKey,
		cfg.ChatModel,
		chatCB,
		resilienceCfg,
	)

	// --- Services ---
	offerCalc := service.NewOfferCalculator(logger)
	contractingSvc := service.NewContractingService(factaClient, store, metrics, logger)
	proposalSvc := service.NewProposalService(store, factaClient, proposalsCache, metrics, logger, cfg.MaxConcurrency)
	chatSvc := service.NewChatService(chatClient, logger)
	authSvc := service.NewAuthService(cfg.JWTSecret)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Offers:      offerCalc,
		Contracting: contractingSvc,
		Proposals:   proposalSvc,
		Chat:        chatSvc,
		Auth:        authSvc,
		Store:       store,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
