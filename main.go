package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/config"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/handlers"
	"github.com/SAP-F-2025/student-analytics/internal/repositories/postgres"
	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
	"github.com/SAP-F-2025/student-analytics/pkg"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "student-analytics",
		Short: "Assessment scoring and student analytics service",
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), checkConfigCmd())

	// serve is the default when no subcommand is given
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	addEngineFlags(cmd)
	cmd.Flags().String("port", "", "HTTP port (overrides PORT)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}
}

func checkConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the analytics configuration and print the effective values",
		RunE:  runCheckConfig,
	}
	addEngineFlags(cmd)
	return cmd
}

func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Analytics config file, YAML or JSON (overrides ANALYTICS_CONFIG)")
	f.String("rules", "", "Intervention rule table (overrides ANALYTICS_RULES)")
}

// loadConfig reads the process config and applies any flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	v := viperForCmd(cmd)
	if v.IsSet("port") {
		cfg.Port = v.GetString("port")
	}
	if v.IsSet("config") {
		cfg.AnalyticsConfigPath = v.GetString("config")
	}
	if v.IsSet("rules") {
		cfg.AnalyticsRulesPath = v.GetString("rules")
	}
	return cfg, nil
}

// viperForCmd binds a command's flags to a fresh viper instance
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	return v
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := newLogger(cfg, os.Stdout)
	logger := utils.NewSlogLogger(slogLogger)

	engines, err := config.NewAnalyticsProvider(cfg.AnalyticsConfigPath, cfg.AnalyticsRulesPath, slogLogger)
	if err != nil {
		return fmt.Errorf("failed to load analytics config: %w", err)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}

	// Redis is optional: without it caching is off and cooldowns fall back
	// to the alert history table
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		AlertLogTTL: cfg.AlertLogTTL,
	})
	if err := repoManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	cacheManager := cache.NewCacheManager(redisClient)
	engines.OnReload(func(*analytics.Engine) {
		// cached analyses were computed with the previous thresholds
		cache.InvalidateAll(context.Background(), cacheManager)
	})
	if cfg.WatchAnalytics {
		engines.Watch()
	}

	publisher, err := newPublisher(cfg, slogLogger)
	if err != nil {
		return err
	}

	smConfig := services.DefaultServiceManagerConfig()
	smConfig.Workers = cfg.Workers
	if cfg.Kafka.AlertTopic != "" {
		smConfig.AlertTopic = cfg.Kafka.AlertTopic
	}

	serviceManager := services.NewServiceManager(services.Dependencies{
		RepoManager: repoManager,
		Engines:     engines,
		Cache:       cacheManager,
		Publisher:   publisher,
		Validator:   validator.New(),
		Logger:      slogLogger,
	}, smConfig)
	if err := serviceManager.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSOrigins)
	handlers.NewHandlerManager(serviceManager, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// closes the publisher, the database and redis
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	logger.Info("Server exited")
	return nil
}

// newPublisher sends events to Kafka when brokers are configured and keeps
// them in process otherwise
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, events stay in process")
		publisher, _ := events.NewGoChannelEventPublisher(logger)
		return publisher, nil
	}

	publisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers)
	return publisher, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg, os.Stdout)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := postgres.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info("Database schema is up to date")
	return nil
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries the effective config
	logger := newLogger(cfg, cmd.ErrOrStderr())
	engines, err := config.NewAnalyticsProvider(cfg.AnalyticsConfigPath, cfg.AnalyticsRulesPath, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(engines.Engine().Config())
}
