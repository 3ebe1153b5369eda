package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the load test
type Config struct {
	// Store settings
	Backend   string // memory or redis
	TraderID  string
	RedisAddr string

	// Load parameters
	NumWorkers       int
	OrdersPerWorker  int
	MaxRatePerSecond int
	NumStrategies    int
	Symbol           string
	RunTimeout       time.Duration

	// Optional event publishing; empty address disables it. The driver
	// selects between the kafka-go writer and the pooled sarama producer.
	KafkaAddr   string
	KafkaTopic  string
	KafkaDriver string // kafka or sarama

	// Observability
	LogLevel     string
	OTelEndpoint string
	OTelEnabled  bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOADTEST_BACKEND", "memory")
	v.SetDefault("LOADTEST_TRADER_ID", "LOADTEST-000")
	v.SetDefault("LOADTEST_REDIS_ADDR", "localhost:6379")
	v.SetDefault("LOADTEST_NUM_WORKERS", 64)
	v.SetDefault("LOADTEST_ORDERS_PER_WORKER", 1000)
	v.SetDefault("LOADTEST_MAX_RATE_PER_SECOND", 50000)
	v.SetDefault("LOADTEST_NUM_STRATEGIES", 8)
	v.SetDefault("LOADTEST_SYMBOL", "AUD/USD")
	v.SetDefault("LOADTEST_RUN_TIMEOUT_SECONDS", 300)
	v.SetDefault("LOADTEST_KAFKA_ADDR", "")
	v.SetDefault("LOADTEST_KAFKA_TOPIC", "execution-events")
	v.SetDefault("LOADTEST_KAFKA_DRIVER", "kafka")
	v.SetDefault("LOADTEST_LOG_LEVEL", "info")
	v.SetDefault("LOADTEST_OTEL_ENDPOINT", "localhost:4317")
	v.SetDefault("LOADTEST_OTEL_ENABLED", false)

	// Allow environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Backend:          v.GetString("LOADTEST_BACKEND"),
		TraderID:         v.GetString("LOADTEST_TRADER_ID"),
		RedisAddr:        v.GetString("LOADTEST_REDIS_ADDR"),
		NumWorkers:       v.GetInt("LOADTEST_NUM_WORKERS"),
		OrdersPerWorker:  v.GetInt("LOADTEST_ORDERS_PER_WORKER"),
		MaxRatePerSecond: v.GetInt("LOADTEST_MAX_RATE_PER_SECOND"),
		NumStrategies:    v.GetInt("LOADTEST_NUM_STRATEGIES"),
		Symbol:           v.GetString("LOADTEST_SYMBOL"),
		RunTimeout:       time.Duration(v.GetInt("LOADTEST_RUN_TIMEOUT_SECONDS")) * time.Second,
		KafkaAddr:        v.GetString("LOADTEST_KAFKA_ADDR"),
		KafkaTopic:       v.GetString("LOADTEST_KAFKA_TOPIC"),
		KafkaDriver:      v.GetString("LOADTEST_KAFKA_DRIVER"),
		LogLevel:         v.GetString("LOADTEST_LOG_LEVEL"),
		OTelEndpoint:     v.GetString("LOADTEST_OTEL_ENDPOINT"),
		OTelEnabled:      v.GetBool("LOADTEST_OTEL_ENABLED"),
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Backend != "memory" && cfg.Backend != "redis" {
		return fmt.Errorf("LOADTEST_BACKEND must be memory or redis")
	}
	if cfg.TraderID == "" {
		return fmt.Errorf("LOADTEST_TRADER_ID must not be empty")
	}
	if cfg.NumWorkers <= 0 {
		return fmt.Errorf("LOADTEST_NUM_WORKERS must be positive")
	}
	if cfg.OrdersPerWorker <= 0 {
		return fmt.Errorf("LOADTEST_ORDERS_PER_WORKER must be positive")
	}
	if cfg.MaxRatePerSecond <= 0 {
		return fmt.Errorf("LOADTEST_MAX_RATE_PER_SECOND must be positive")
	}
	if cfg.NumStrategies <= 0 {
		return fmt.Errorf("LOADTEST_NUM_STRATEGIES must be positive")
	}
	if cfg.KafkaDriver != "kafka" && cfg.KafkaDriver != "sarama" {
		return fmt.Errorf("LOADTEST_KAFKA_DRIVER must be kafka or sarama")
	}
	return nil
}
