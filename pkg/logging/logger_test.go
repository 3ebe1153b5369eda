package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "warn", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	// Unknown levels fall back to info
	Setup(Config{Level: "nonsense", Output: &buf})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestFromContextWithTraderID(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "debug", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	ctx := WithTraderID(context.Background(), "TESTER-000")
	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "TESTER-000", entry["trader_id"])
}

func TestLogCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	err := LogCommand(logger, "add_order", func() error { return nil })
	assert.NoError(t, err)

	wantErr := errors.New("boom")
	err = LogCommand(logger, "add_order", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, buf.String(), "Command failed")
}
