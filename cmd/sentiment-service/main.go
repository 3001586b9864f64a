package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-sentiment-index/internal/sentiment/config"
	delivery "golang-sentiment-index/internal/sentiment/delivery/http"
	_ "golang-sentiment-index/internal/sentiment/docs"
	"golang-sentiment-index/internal/sentiment/provider"
	"golang-sentiment-index/internal/sentiment/registry"
	"golang-sentiment-index/internal/sentiment/repository"
	"golang-sentiment-index/internal/sentiment/service"
	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/postgres"
	"golang-sentiment-index/pkg/redis"
	"golang-sentiment-index/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the sentiment index service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Sentiment Index Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	signalRepo := repository.NewRawSignalRepository(db.DB)
	driverScoreRepo := repository.NewDriverScoreRepository(db.DB)
	layerScoreRepo := repository.NewLayerScoreRepository(db.DB)
	compositeRepo := repository.NewDailyCompositeRepository(db.DB)

	// Initialize asset registry
	assetRegistry := registry.NewRegistry(cfg.Sentiment.AssetsDir, 5*time.Minute, appLogger)

	// Initialize ingestion provider
	ingestionTimeout, err := time.ParseDuration(cfg.Ingestion.Timeout)
	if err != nil {
		appLogger.Fatal("Invalid ingestion timeout", logger.ErrorField(err))
	}
	ingestionProvider := provider.NewHTTPProvider(provider.HTTPProviderConfig{
		BaseURL:           cfg.Ingestion.BaseURL,
		Timeout:           ingestionTimeout,
		RequestsPerSecond: cfg.Ingestion.RequestsPerSecond,
	}, appLogger)

	// Initialize optional Telegram notifier
	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize services
	pipelineSvc := service.NewPipelineService(service.PipelineDeps{
		Signals:      signalRepo,
		DriverScores: driverScoreRepo,
		LayerScores:  layerScoreRepo,
		Composites:   compositeRepo,
		Registry:     assetRegistry,
		Source:       ingestionProvider,
		Prices:       ingestionProvider,
		Normalizer:   service.NewNormalizer(cfg.Sentiment.PercentileWindow, cfg.Sentiment.ZScoreWindow),
		RedisClient:  redisClient.Client,
		StreamMaxLen: cfg.Redis.StreamMaxLen,
		Notifier:     notifier,
		Logger:       appLogger,
	})
	historySvc := service.NewHistoryService(signalRepo, driverScoreRepo, layerScoreRepo, compositeRepo, appLogger)

	// Start the daily scheduler when configured
	if cfg.Sentiment.ScheduleCron != "" {
		scheduler, err := service.NewScheduler(cfg.Sentiment.ScheduleCron, cfg.Sentiment.DefaultAsset, pipelineSvc, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize scheduler", logger.ErrorField(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	sentimentHandler := delivery.NewSentimentHandler(pipelineSvc, historySvc, assetRegistry, appLogger)
	apiV1 := e.Group("/api/v1")
	sentimentHandler.RegisterRoutes(apiV1)

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

// @title Sentiment Index API
// @version 1.0
// @description Daily composite sentiment index pipeline and history API.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "sentiment-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing sentiment-service CLI: %s\n", err)
		os.Exit(1)
	}
}
