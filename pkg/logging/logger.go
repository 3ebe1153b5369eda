package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	// TraderIDKey is the key used to store trader IDs in context
	TraderIDKey contextKey = "trader_id"
)

// Config defines logging configuration
type Config struct {
	// Level is the logging level (debug, info, warn, error)
	Level string
	// Pretty determines if logs should be formatted for human readability
	Pretty bool
	// Output is where logs are written (defaults to os.Stdout)
	Output io.Writer
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: false,
		Output: os.Stdout,
	}
}

// Setup configures global logging based on the provided config
func Setup(cfg Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Set up pretty logging if enabled
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Set global logger
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// FromContext extracts a logger with request context
func FromContext(ctx context.Context) zerolog.Logger {
	if traderID, ok := ctx.Value(TraderIDKey).(string); ok {
		return log.With().Str("trader_id", traderID).Logger()
	}

	return log.Logger
}

// WithTraderID stores the trader id on the context for FromContext callers
func WithTraderID(ctx context.Context, traderID string) context.Context {
	return context.WithValue(ctx, TraderIDKey, traderID)
}

// LogCommand runs a store command under timing instrumentation. Successful
// commands log at debug level, failures at error level with the duration
// attached either way.
func LogCommand(logger zerolog.Logger, command string, fn func() error) error {
	start := time.Now()

	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.Error().
			Err(err).
			Str("command", command).
			Dur("duration", duration).
			Msg("Command failed")
		return err
	}

	logger.Debug().
		Str("command", command).
		Dur("duration", duration).
		Msg("Command completed")
	return nil
}
