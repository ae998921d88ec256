package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsefeed-post-service/internal/cache"
	local_cache "pulsefeed-post-service/internal/cache/local"
	redis_cache "pulsefeed-post-service/internal/cache/redis"
	media_client_http "pulsefeed-post-service/internal/clients/media/http"
	"pulsefeed-post-service/internal/config"
	"pulsefeed-post-service/internal/consumer"
	"pulsefeed-post-service/internal/logger"
	prometheus_metrics "pulsefeed-post-service/internal/metrics/prometheus"
	metrics_server "pulsefeed-post-service/internal/metrics/server"
	post_postgres "pulsefeed-post-service/internal/repository/post/postgres"
	post_service "pulsefeed-post-service/internal/service/post"
)

func main() {
	cfg := config.MustLoad()
	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DbName)
	ctx := context.Background()
	log := logger.New(cfg.Env)

	if err := runMigrations(cfg.Database.MigrationsPath, dsn); err != nil {
		log.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Error("Failed to parse postgres poolConfig", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("Failed to create postgres pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	log.Info("Connecting to Redis",
		slog.String("address", cfg.Redis.Address),
		slog.Int("port", cfg.Redis.Port),
		slog.Int("db", cfg.Redis.DB))
	redisClient, err := redis_cache.NewClient(cfg.Redis, log)
	if err != nil {
		log.Error("Failed to create Redis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", slog.String("error", err.Error()))
		}
	}()

	metrics := prometheus_metrics.NewPrometheusMetricsProvider()
	metrics.SetServiceHealth(true)

	localStore := local_cache.NewStore(cfg.Cache.LocalSweepInterval)
	defer localStore.Close()

	cacheTier := cache.NewTieredCache(localStore, redisClient, log, metrics)

	postRepo := post_postgres.NewPostRepository(pool, log, metrics)
	postService := post_service.NewPostService(postRepo, cacheTier, cfg.Cache, log, metrics)

	mediaClient := media_client_http.NewClient(cfg.MediaStorage, log)
	defer func() {
		if err := mediaClient.Close(); err != nil {
			log.Error("Failed to close media storage client", slog.String("error", err.Error()))
		}
	}()

	deletionHandler := consumer.NewAccountDeletionHandler(postService, mediaClient, log, metrics)
	kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka, deletionHandler, log)
	if err != nil {
		log.Error("Failed to create Kafka consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metricsServer := metrics_server.NewMetricsServer(cfg.Prometheus.Address, cfg.Prometheus.Port, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	consumerCtx, consumerCancel := context.WithCancel(ctx)

	done := make(chan bool, 1)
	metricsDone := make(chan bool, 1)

	go func() {
		if err := kafkaConsumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Kafka consumer error", slog.String("error", err.Error()))
		}
		done <- true
	}()

	go func() {
		if err := metricsServer.Run(); err != nil {
			log.Error("Metrics server error", slog.String("error", err.Error()))
		}
		metricsDone <- true
	}()

	<-quit
	log.Info("Shutting down...")

	metrics.SetServiceHealth(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	consumerCancel()
	<-done

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Kafka consumer shutdown error", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown error", slog.String("error", err.Error()))
	}

	<-metricsDone

	log.Info("Server exited")
}

func runMigrations(migrationsPath, dsn string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
