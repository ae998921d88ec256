package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env          string
	Database     Database
	Redis        Redis
	Cache        Cache
	Kafka        Kafka
	MediaStorage MediaStorage
	Prometheus   Prometheus
}

type Database struct {
	Username       string
	Password       string
	Host           string
	Port           string
	DbName         string
	MigrationsPath string
}

type Redis struct {
	Address  string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type Cache struct {
	PostLocalTTL  time.Duration
	PostSharedTTL time.Duration
	FeedLocalTTL  time.Duration
	FeedSharedTTL time.Duration

	// FeedPagesCached bounds the feed-page prefix invalidated after a write.
	FeedPagesCached int

	LocalSweepInterval time.Duration
}

type Kafka struct {
	Brokers     string
	Topic       string
	GroupID     string
	OffsetReset string
}

type MediaStorage struct {
	BaseURL string
	Timeout time.Duration
}

type Prometheus struct {
	Address string
	Port    int
}

func MustLoad() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")

	viper.SetDefault("env", "dev")

	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "admin")
	viper.SetDefault("database.host", "post-db")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.db_name", "postservice")
	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("redis.address", "redis")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("cache.post_local_ttl", "2m")
	viper.SetDefault("cache.post_shared_ttl", "15m")
	viper.SetDefault("cache.feed_local_ttl", "15s")
	viper.SetDefault("cache.feed_shared_ttl", "60s")
	viper.SetDefault("cache.feed_pages_cached", 5)
	viper.SetDefault("cache.local_sweep_interval", "1m")

	viper.SetDefault("kafka.brokers", "kafka:9092")
	viper.SetDefault("kafka.topic", "account.deleted")
	viper.SetDefault("kafka.group_id", "post-service")
	viper.SetDefault("kafka.offset_reset", "earliest")

	viper.SetDefault("media_storage.base_url", "http://media-storage:8080")
	viper.SetDefault("media_storage.timeout", "5s")

	viper.SetDefault("prometheus.address", "0.0.0.0")
	viper.SetDefault("prometheus.port", 9103)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Error reading config file: %s", err)
		os.Exit(1)
	}

	config := &Config{
		Env: viper.GetString("env"),
		Database: Database{
			Username:       viper.GetString("database.username"),
			Password:       viper.GetString("database.password"),
			Host:           viper.GetString("database.host"),
			Port:           viper.GetString("database.port"),
			DbName:         viper.GetString("database.db_name"),
			MigrationsPath: viper.GetString("database.migrations_path"),
		},
		Redis: Redis{
			Address:  viper.GetString("redis.address"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			PoolSize: viper.GetInt("redis.pool_size"),
		},
		Cache: Cache{
			PostLocalTTL:       viper.GetDuration("cache.post_local_ttl"),
			PostSharedTTL:      viper.GetDuration("cache.post_shared_ttl"),
			FeedLocalTTL:       viper.GetDuration("cache.feed_local_ttl"),
			FeedSharedTTL:      viper.GetDuration("cache.feed_shared_ttl"),
			FeedPagesCached:    viper.GetInt("cache.feed_pages_cached"),
			LocalSweepInterval: viper.GetDuration("cache.local_sweep_interval"),
		},
		Kafka: Kafka{
			Brokers:     viper.GetString("kafka.brokers"),
			Topic:       viper.GetString("kafka.topic"),
			GroupID:     viper.GetString("kafka.group_id"),
			OffsetReset: viper.GetString("kafka.offset_reset"),
		},
		MediaStorage: MediaStorage{
			BaseURL: viper.GetString("media_storage.base_url"),
			Timeout: viper.GetDuration("media_storage.timeout"),
		},
		Prometheus: Prometheus{
			Address: viper.GetString("prometheus.address"),
			Port:    viper.GetInt("prometheus.port"),
		},
	}

	return config
}
