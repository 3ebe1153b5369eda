package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"

	"github.com/erain9/tradecache/pkg/backend/memory"
	"github.com/erain9/tradecache/pkg/core"
)

func main() {
	// Initialize the execution cache with the in-memory backend
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	store := memory.NewMemoryStore(logger)

	// Register a strategy and create an order id unique to this run
	strategyID := core.StrategyID("S-001")
	if err := store.UpdateStrategy(strategyID); err != nil {
		panic(err)
	}

	clOrdID := core.ClientOrderID(fmt.Sprintf("O-%d", time.Now().UnixMilli()))
	positionID := core.PositionID(fmt.Sprintf("P-%d", time.Now().UnixMilli()))

	// Submit an order
	order, err := core.NewOrder(clOrdID, "AUD/USD", core.Buy,
		fpdecimal.FromFloat(100000.0), fpdecimal.FromFloat(0.80010))
	if err != nil {
		panic(err)
	}
	if err := store.AddOrder(order, positionID, strategyID); err != nil {
		panic(err)
	}
	fmt.Printf("Added order: %s\n", order.ClOrdID())

	// The venue accepts it and it starts working
	order.SetStatus(core.StatusWorking)
	if err := store.UpdateOrder(order); err != nil {
		panic(err)
	}
	fmt.Printf("Order working: %v\n", store.IsOrderWorking(clOrdID))

	// The fill opens a position
	position, err := core.NewPosition(positionID, clOrdID, "AUD/USD",
		fpdecimal.FromFloat(100000.0))
	if err != nil {
		panic(err)
	}
	if err := store.AddPosition(position, strategyID); err != nil {
		panic(err)
	}

	order.SetStatus(core.StatusFilled)
	if err := store.UpdateOrder(order); err != nil {
		panic(err)
	}

	// Summary
	fmt.Println("\nCache state:")
	fmt.Printf("- Orders: total=%d working=%d completed=%d\n",
		core.OrdersTotalCount(store, ""),
		core.OrdersWorkingCount(store, ""),
		core.OrdersCompletedCount(store, ""))
	fmt.Printf("- Positions: total=%d open=%d closed=%d\n",
		core.PositionsTotalCount(store, ""),
		core.PositionsOpenCount(store, ""),
		core.PositionsClosedCount(store, ""))
	fmt.Printf("- Position for order %s: %s\n", clOrdID, store.PositionIDForOrder(clOrdID))
	fmt.Printf("- Positions by symbol: %v\n", core.SymbolPositionCounts(store))
}
