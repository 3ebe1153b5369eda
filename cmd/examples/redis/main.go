package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisbackend "github.com/erain9/tradecache/pkg/backend/redis"
	"github.com/erain9/tradecache/pkg/core"
)

const (
	redisAddr = "localhost:6379"
	redisDB   = 0
	traderID  = "EXAMPLE-000"
)

func main() {
	// Connect to Redis
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "", // no password set
		DB:       redisDB,
	})

	// Check Redis connection
	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	fmt.Printf("Redis connection established: %s\n", pong)

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize the execution cache scoped to this trader, starting fresh
	store := redisbackend.NewRedisStore(client, traderID, logger)
	defer store.Close()
	if err := store.Reset(); err != nil {
		panic(err)
	}

	strategyID := core.StrategyID("S-001")
	if err := store.UpdateStrategy(strategyID); err != nil {
		panic(err)
	}

	// Create ids with a timestamp to ensure uniqueness across runs
	clOrdID := core.ClientOrderID(fmt.Sprintf("O-%d", time.Now().UnixMilli()))
	positionID := core.PositionID(fmt.Sprintf("P-%d", time.Now().UnixMilli()))

	order, err := core.NewOrder(clOrdID, "AUD/USD", core.Sell,
		fpdecimal.FromFloat(100000.0), fpdecimal.FromFloat(0.80010))
	if err != nil {
		panic(err)
	}
	if err := store.AddOrder(order, positionID, strategyID); err != nil {
		panic(err)
	}
	fmt.Printf("Added order under Trader-%s: %s\n", traderID, clOrdID)

	position, err := core.NewPosition(positionID, clOrdID, "AUD/USD",
		fpdecimal.FromFloat(-100000.0))
	if err != nil {
		panic(err)
	}
	if err := store.AddPosition(position, strategyID); err != nil {
		panic(err)
	}

	// Read everything back through the durable medium
	fmt.Printf("Loaded order status: %s\n", store.LoadOrder(clOrdID).Status())
	fmt.Printf("Loaded position quantity: %s\n", store.LoadPosition(positionID).Quantity())
	fmt.Printf("Open positions for %s: %d\n", strategyID, core.PositionsOpenCount(store, strategyID))

	// Flatten the position and verify the partition move survived Redis
	position.SetQuantity(fpdecimal.Zero)
	if err := store.UpdatePosition(position); err != nil {
		panic(err)
	}
	fmt.Printf("Position closed: %v\n", store.IsPositionClosed(positionID))
}
