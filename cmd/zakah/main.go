package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/config"
	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/handler"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/cache"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/client"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/observability"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/zakah-bfa-go/internal/port"
	"github.com/boddenberg/zakah-bfa-go/internal/service"
	"github.com/boddenberg/zakah-bfa-go/internal/zakah"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("price_feed", cfg.PriceFeedURL != ""),
		zap.Stringer("static_gold_per_gram", cfg.GoldPricePerGram),
		zap.String("currency", cfg.PriceCurrency),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("price_cache_ttl", cfg.PriceCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_batch_size", cfg.MaxBatchSize),
		zap.Bool("jwt_auth", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "zakah-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	priceCache := cache.New[domain.MetalPrices](cfg.PriceCacheTTL)
	defer priceCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Price sources ---
	var feed port.PriceFetcher
	if cfg.PriceFeedURL != "" {
		logger.Info("using market price feed", zap.String("price_feed_url", cfg.PriceFeedURL))
		feed = client.NewPriceFeedClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.PriceFeedURL,
			cfg.PriceCurrency,
			resilience.NewCircuitBreaker("price-feed", logger),
			resilienceCfg,
		)
	} else {
		logger.Warn("price feed not configured, assessments use static prices")
	}
	fallback := client.NewStaticPrices(cfg.StaticPrices())

	// --- Services ---
	assessor := service.NewAssessor(
		zakah.New(cfg.Rules()),
		feed,
		fallback,
		priceCache,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg.MaxBatchSize,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(assessor, metrics, cfg.JWTSecret, logger)

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
