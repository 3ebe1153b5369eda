package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLParsing(t *testing.T) {
	raw := []byte(`
trader:
  id: TESTER-001
  backend: redis
  log_level: debug
  log_format: json
redis:
  addr: redis:6380
  password: secret
  db: 2
kafka:
  broker_addr: kafka:9093
  topic: execution-events-test
`)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(raw, &cfg))

	assert.Equal(t, "TESTER-001", cfg.Trader.ID)
	assert.Equal(t, "redis", cfg.Trader.Backend)
	assert.Equal(t, "debug", cfg.Trader.LogLevel)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "kafka:9093", cfg.Kafka.BrokerAddr)
	assert.Equal(t, "execution-events-test", cfg.Kafka.Topic)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "TESTER-000", cfg.Trader.ID)
	assert.Equal(t, "memory", cfg.Trader.Backend)
	assert.Equal(t, "info", cfg.Trader.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "localhost:9092", cfg.Kafka.BrokerAddr)
	assert.Equal(t, "execution-events", cfg.Kafka.Topic)
}

func TestConfigPartialFileKeepsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: 10.0.0.1:6379\n"), 0o644))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(raw, &cfg))

	assert.Equal(t, "10.0.0.1:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.Trader.ID)
	assert.Empty(t, cfg.Kafka.Topic)
}
