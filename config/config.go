package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/erain9/tradecache/pkg/db/queue"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Trader struct {
		ID        string `yaml:"id"`
		Backend   string `yaml:"backend"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"trader"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	traderID   = flag.String("trader_id", "TESTER-000", "Trader identifier scoping the cache keyspace")
	backend    = flag.String("backend", "memory", "Store backend: memory, redis")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	// Parse command line flags
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Trader.ID = *traderID
	config.Trader.Backend = *backend
	config.Trader.LogLevel = *logLevel
	config.Trader.LogFormat = *logFormat
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "execution-events"

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML configuration
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Override Kafka configuration in package variables
		queue.SetBrokerList(config.Kafka.BrokerAddr)
		queue.SetTopic(config.Kafka.Topic)

		// Log loaded configuration
		log.Printf("Loaded configuration from %s", *configFile)
	}

	return config, nil
}
