package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/config"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/handlers"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/jobs"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/services"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	engine, err := shared.LoadEngineConfiguration(cfg.EngineConfigPath)
	if err != nil {
		logrus.Fatalf("Failed to load engine configuration: %v", err)
	}
	cfg.ApplyTo(engine)
	shared.ConfigureLogging(engine.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the record store and run migrations
	store, err := database.OpenRecordStore(ctx, &engine.Database, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open record store: %v", err)
	}
	defer store.Close()

	// Market data providers
	httpFactory := shared.NewHTTPClientFactory(engine.Provider.HTTPTimeout)
	defer httpFactory.CleanupAllClients()
	httpClient := httpFactory.CreateHTTPClient(engine.Provider.HTTPTimeout)

	yahoo := services.NewYahooFinanceClient(httpClient, engine.Provider)
	var quotes services.QuoteSource = yahoo
	if engine.Provider.FinnhubAPIKey != "" {
		quotes = services.NewFinnhubQuoteClient(httpClient, engine.Provider.FinnhubBaseURL, engine.Provider.FinnhubAPIKey)
	}
	provider := services.NewRateLimitedProvider(
		services.NewMarketDataProvider(yahoo, quotes, yahoo),
		engine,
		shared.SystemClock(),
	)

	// Caches and services
	writeBack := services.NewWriteBackQueue(store, engine.WriteBack)
	normalizer := services.NewNameNormalizer(engine.Ticker.NoiseWords)
	tickers := services.NewTickerResolutionCache(provider, normalizer, engine.Ticker, writeBack)
	listingPrices := services.NewListingPriceCache(provider)
	liveListings := services.NewLiveListingsService(
		store,
		tickers,
		listingPrices,
		services.NewBatchQuoteAggregator(provider),
		services.NewFieldExtractor(),
		engine.Cache,
		shared.SystemClock(),
	)
	scanner := services.NewDuplicateScanner(store, normalizer, engine.Scanner)
	mergeEngine := services.NewRecordMergeEngine(store, liveListings)

	logrus.WithFields(logrus.Fields{
		"component":       "main",
		"provider":        provider.String(),
		"database":        engine.Database.Driver,
		"live_ttl":        engine.Cache.LiveListingsTTL,
		"quote_interval":  engine.Provider.QuoteInterval,
		"write_back_size": engine.WriteBack.QueueSize,
	}).Info("IPO market data engine initialized")

	// Background jobs
	scheduler := jobs.NewScheduler()
	if err := scheduler.Register(engine.Schedule.WarmupCron, jobs.NewLiveListingsWarmupJob(liveListings)); err != nil {
		logrus.Fatalf("Failed to schedule warmup job: %v", err)
	}
	statsJob := jobs.NewCacheStatsJob(provider, tickers, listingPrices, liveListings, writeBack)
	if err := scheduler.Register(engine.Schedule.StatsCron, statsJob); err != nil {
		logrus.Fatalf("Failed to schedule stats job: %v", err)
	}
	scheduler.Start()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	healthHandler := handlers.NewHealthHandler(store, engine.Database.PingTimeout)
	marketHandler := handlers.NewMarketHandler(liveListings)
	adminHandler := handlers.NewAdminHandler(scanner, mergeEngine)
	ipoHandler := handlers.NewIPOHandler(store, liveListings)
	cacheHandler := handlers.NewCacheHandler(liveListings, tickers, listingPrices, provider, writeBack)

	app.Get("/health", healthHandler.Health)

	// One-click merge link used from scan reports
	app.Get("/api/merge", adminHandler.MergeFromLink)

	// Routes
	api := app.Group("/api/v1")

	api.Get("/live-listings", marketHandler.GetLiveListings)

	// IPO Routes
	api.Get("/ipos", ipoHandler.GetIPOs)
	api.Post("/ipos", ipoHandler.UpsertIPO)
	api.Get("/ipos/:id", ipoHandler.GetIPOByID)

	// Cache Routes
	api.Get("/cache/stats", cacheHandler.GetCacheStats)
	api.Delete("/cache/live-listings", cacheHandler.InvalidateLiveListings)

	// Admin Routes
	admin := api.Group("/admin")
	admin.Get("/scan-duplicates", adminHandler.ScanDuplicates)
	admin.Post("/merge", adminHandler.MergeRecords)

	go func() {
		<-ctx.Done()
		logrus.Info("Shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Warn("Server shutdown did not complete cleanly")
		}
	}()

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Errorf("Server stopped: %v", err)
	}

	scheduler.Stop()
	writeBack.Close()
	logrus.Info("Server exited")
}
