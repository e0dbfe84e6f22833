package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tradematch/backend/config"
	httpDelivery "github.com/tradematch/backend/internal/delivery/http"
	"github.com/tradematch/backend/internal/domain"
	"github.com/tradematch/backend/internal/infrastructure/cache"
	"github.com/tradematch/backend/internal/infrastructure/catalog"
	"github.com/tradematch/backend/internal/infrastructure/gateway"
	"github.com/tradematch/backend/internal/infrastructure/scout"
	"github.com/tradematch/backend/internal/logger"
	"github.com/tradematch/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = zapLog.Sync() }()

	zapLog.Info("Starting TradeMatch backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
		zap.String("model", cfg.Gateway.Model),
	)

	// Initialize infrastructure dependencies
	resultCache, closeCache, err := newCache(cfg.Cache, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() { _ = closeCache.Close() }()

	gatewayClient := gateway.NewClient(gateway.Config{
		APIKey:        cfg.Gateway.APIKey,
		BaseURL:       cfg.Gateway.BaseURL,
		Referer:       cfg.Gateway.Referer,
		Title:         cfg.Gateway.Title,
		Timeout:       cfg.Gateway.Timeout,
		RatePerSecond: cfg.Gateway.RatePerSecond,
		Burst:         cfg.Gateway.Burst,
	}, zapLog)

	sources := newScoutSources(cfg.Scout)
	if len(sources) == 0 {
		zapLog.Warn("No external supplier sources configured; matching will return internal candidates only")
	}
	supplierScout := scout.New(sources, resultCache, scout.Options{
		MaxResults: cfg.Scout.MaxResults,
		CacheTTL:   cfg.Cache.TTL,
	}, logger.Component(zapLog, "scout"))

	categories := catalog.NewFallback()

	// Initialize usecase layer
	extractionService := usecase.NewExtractionService(
		gatewayClient,
		categories,
		usecase.ExtractionConfig{
			Model:     cfg.Gateway.Model,
			Reasoning: cfg.Gateway.Reasoning,
		},
		logger.Component(zapLog, "extraction"),
	)

	matchingService := usecase.NewMatchingService(
		gatewayClient,
		supplierScout,
		usecase.MatchConfig{
			Model:           cfg.Gateway.Model,
			Reasoning:       cfg.Gateway.Reasoning,
			MaxCandidates:   cfg.Matching.MaxCandidates,
			ExternalTimeout: cfg.Matching.ExternalTimeout,
		},
		logger.Component(zapLog, "matching"),
	)

	zapLog.Info("Matching configured",
		zap.Int("max_candidates", cfg.Matching.MaxCandidates),
		zap.Duration("external_timeout", cfg.Matching.ExternalTimeout),
		zap.Int("scout_sources", len(sources)),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(extractionService, matchingService, logger.Component(zapLog, "dispatcher"))
	router := httpDelivery.SetupRouter(cfg, handler, logger.Component(zapLog, "http"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutdown signal received, draining requests")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLog.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLog.Info("Server exiting")
}

func newCache(cfg config.CacheConfig, zapLog *zap.Logger) (domain.CacheRepository, io.Closer, error) {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, "tradematch:")
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			_ = redisCache.Close()
			return nil, nil, err
		}
		zapLog.Info("Using redis cache", zap.Duration("ttl", cfg.TTL))
		return redisCache, redisCache, nil
	}

	memoryCache := cache.NewMemoryCache(0)
	zapLog.Info("Using in-memory cache", zap.Duration("ttl", cfg.TTL))
	return memoryCache, memoryCache, nil
}

func newScoutSources(cfg config.ScoutConfig) []scout.Source {
	client := &http.Client{Timeout: cfg.Timeout}

	var sources []scout.Source
	for _, feedURL := range cfg.Feeds {
		sources = append(sources, scout.NewFeedSource(feedURL, client, cfg.UserAgent))
	}
	for _, d := range cfg.Directories {
		sources = append(sources, scout.NewDirectorySource(d.Name, d.URL, scout.DirectorySelectors{
			Item:    d.ItemSelector,
			Name:    d.NameSelector,
			Summary: d.SummarySelector,
			Link:    d.LinkSelector,
		}, client, cfg.UserAgent))
	}
	if cfg.Static {
		sources = append(sources, scout.NewStaticSource())
	}
	return sources
}
