package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erain9/tradecache/pkg/backend/memory"
	redisbackend "github.com/erain9/tradecache/pkg/backend/redis"
	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/db/queue"
	"github.com/erain9/tradecache/pkg/logging"
	"github.com/erain9/tradecache/pkg/messaging"
	kafkasender "github.com/erain9/tradecache/pkg/messaging/kafka"
	otelsetup "github.com/erain9/tradecache/pkg/otel"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: true})

	otelCleanup, err := otelsetup.Init(otelsetup.Config{
		Endpoint:         cfg.OTelEndpoint,
		CollectorEnabled: cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer otelCleanup()

	if cfg.OTelEnabled {
		if err := otelsetup.StartRuntimeMetrics(); err != nil {
			log.Printf("Warning: runtime metrics unavailable: %v", err)
		}
	}

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to build store: %v", err)
	}
	defer cleanup()

	if cfg.KafkaAddr != "" {
		switch cfg.KafkaDriver {
		case "sarama":
			queue.SetBrokerList(cfg.KafkaAddr)
			queue.SetTopic(cfg.KafkaTopic)
			setEventSender(store, queue.PooledEventSender{})
		default:
			sender, err := kafkasender.NewKafkaEventSender(cfg.KafkaAddr, cfg.KafkaTopic)
			if err != nil {
				log.Fatalf("Failed to create Kafka sender: %v", err)
			}
			defer sender.Close()
			setEventSender(store, sender)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	// Register the strategies the workers will scatter orders across
	strategies := make([]core.StrategyID, cfg.NumStrategies)
	for i := range strategies {
		strategies[i] = core.StrategyID(fmt.Sprintf("S-%03d", i+1))
		if err := store.UpdateStrategy(strategies[i]); err != nil {
			log.Fatalf("Failed to register strategy: %v", err)
		}
	}

	// Set up rate limiter, latency histogram and wait group
	limiter := rate.NewLimiter(rate.Limit(cfg.MaxRatePerSecond), cfg.MaxRatePerSecond)
	hist := hdrhistogram.New(1, int64(10*time.Second/time.Microsecond), 3)
	var histMu sync.Mutex
	var wg sync.WaitGroup
	errChan := make(chan error, cfg.NumWorkers*cfg.OrdersPerWorker)

	var storeMetrics *otelsetup.StoreMetrics
	var recordMetrics *otelsetup.RecordMetrics
	if cfg.OTelEnabled {
		if mp := otelsetup.GetMeterProvider(); mp != nil {
			storeMetrics, err = otelsetup.GetStoreMetrics(mp.Meter("loadtest"))
			if err != nil {
				log.Printf("Warning: store metrics unavailable: %v", err)
			}
		}
		recordMetrics = otelsetup.GetRecordMetrics()
	}

	record := func(command string, elapsed time.Duration) {
		histMu.Lock()
		_ = hist.RecordValue(elapsed.Microseconds())
		histMu.Unlock()

		if storeMetrics != nil {
			_ = storeMetrics.IncCommands(ctx, command)
			_ = storeMetrics.RecordCommandLatency(ctx, command, elapsed)
		}
	}

	// Start workers
	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker against the %s backend...",
		cfg.NumWorkers, cfg.OrdersPerWorker, cfg.Backend)

	for i := 0; i < cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < cfg.OrdersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("rate limiter error: %v", err)
					return
				}

				seq := workerID*cfg.OrdersPerWorker + j
				clOrdID := core.ClientOrderID(fmt.Sprintf("O-%d", seq))
				positionID := core.PositionID(fmt.Sprintf("P-%d", seq))
				strategyID := strategies[seq%len(strategies)]

				order, err := core.NewOrder(clOrdID, cfg.Symbol, core.Buy,
					fpdecimal.FromFloat(100000.0), fpdecimal.FromFloat(0.80010))
				if err != nil {
					errChan <- fmt.Errorf("failed to build order: %v", err)
					continue
				}

				cmdStart := time.Now()
				if err := store.AddOrder(order, positionID, strategyID); err != nil {
					errChan <- fmt.Errorf("failed to add order: %v", err)
					continue
				}
				record("add_order", time.Since(cmdStart))
				if recordMetrics != nil {
					recordMetrics.RecordAdded(ctx, "order", 1)
				}

				order.SetStatus(core.StatusWorking)
				cmdStart = time.Now()
				if err := store.UpdateOrder(order); err != nil {
					errChan <- fmt.Errorf("failed to update order: %v", err)
					continue
				}
				record("update_order", time.Since(cmdStart))

				// Every other order opens and closes a position
				if seq%2 == 0 {
					position, err := core.NewPosition(positionID, clOrdID, cfg.Symbol,
						fpdecimal.FromFloat(100000.0))
					if err != nil {
						errChan <- fmt.Errorf("failed to build position: %v", err)
						continue
					}

					cmdStart = time.Now()
					if err := store.AddPosition(position, strategyID); err != nil {
						errChan <- fmt.Errorf("failed to add position: %v", err)
						continue
					}
					record("add_position", time.Since(cmdStart))
					if recordMetrics != nil {
						recordMetrics.RecordAdded(ctx, "position", 1)
					}

					position.SetQuantity(fpdecimal.Zero)
					cmdStart = time.Now()
					if err := store.UpdatePosition(position); err != nil {
						errChan <- fmt.Errorf("failed to update position: %v", err)
						continue
					}
					record("update_position", time.Since(cmdStart))
				}

				order.SetStatus(core.StatusFilled)
				cmdStart = time.Now()
				if err := store.UpdateOrder(order); err != nil {
					errChan <- fmt.Errorf("failed to complete order: %v", err)
					continue
				}
				record("update_order", time.Since(cmdStart))
			}
		}(i)
	}

	// Wait for all workers to finish
	wg.Wait()
	duration := time.Since(start)
	close(errChan)

	// Process errors
	var errors []error
	for err := range errChan {
		errors = append(errors, err)
	}

	// Print results
	totalOrders := cfg.NumWorkers * cfg.OrdersPerWorker
	log.Printf("Load test completed in %v", duration)
	log.Printf("Total orders attempted: %d (%.0f orders/sec)",
		totalOrders, float64(totalOrders)/duration.Seconds())
	log.Printf("Errors encountered: %d", len(errors))

	log.Printf("Command latency: p50=%dus p90=%dus p99=%dus max=%dus",
		hist.ValueAtQuantile(50),
		hist.ValueAtQuantile(90),
		hist.ValueAtQuantile(99),
		hist.Max())

	log.Printf("Store counts: orders=%d working=%d completed=%d positions=%d open=%d closed=%d",
		core.OrdersTotalCount(store, ""),
		core.OrdersWorkingCount(store, ""),
		core.OrdersCompletedCount(store, ""),
		core.PositionsTotalCount(store, ""),
		core.PositionsOpenCount(store, ""),
		core.PositionsClosedCount(store, ""))

	anomalies := store.Anomalies()
	log.Printf("Anomalies: index_conflicts=%d missing_records=%d",
		anomalies.IndexConflicts, anomalies.MissingRecords)
	if storeMetrics != nil {
		_ = storeMetrics.IncAnomalies(ctx, "index_conflict", int64(anomalies.IndexConflicts))
		_ = storeMetrics.IncAnomalies(ctx, "missing_record", int64(anomalies.MissingRecords))
	}

	residuals := core.CheckResiduals(store, zerolog.Nop())
	log.Printf("Residual working orders and open positions: %d", residuals)

	// Clean up the trader keyspace
	if err := store.Reset(); err != nil {
		log.Printf("Failed to reset store: %v", err)
	} else {
		log.Printf("Successfully reset store")
	}

	if len(errors) > 0 {
		log.Printf("First error: %v", errors[0])
		os.Exit(1)
	}
}

// buildStore wires the configured backend
func buildStore(cfg *Config) (core.ExecutionStore, func(), error) {
	if cfg.Backend == "redis" {
		redisbackend.SetDefaultRedisOptions(&redisbackend.RedisOptions{Addr: cfg.RedisAddr})
		client := redisbackend.GetRedisClient()

		logger, err := zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}

		store := redisbackend.NewRedisStore(client, cfg.TraderID, logger)
		return store, func() {
			_ = store.Close()
			_ = logger.Sync()
		}, nil
	}

	store := memory.NewMemoryStore(zerolog.Nop())
	return store, func() {}, nil
}

// setEventSender wires the sender into whichever backend is in use
func setEventSender(store core.ExecutionStore, sender messaging.EventSender) {
	switch s := store.(type) {
	case *memory.MemoryStore:
		s.SetEventSender(sender)
	case *redisbackend.RedisStore:
		s.SetEventSender(sender)
	}
}
