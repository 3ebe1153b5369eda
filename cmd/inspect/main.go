package main

import (
	"flag"
	"fmt"
	"os"

	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/erain9/tradecache/config"
	redisbackend "github.com/erain9/tradecache/pkg/backend/redis"
	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/logging"
)

var redisAddr = flag.String("addr", "", "Redis address, overrides the configured one")

func main() {
	// Check if we have enough arguments
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Get the command
	command := os.Args[1]

	// Remove the command from os.Args to make flag parsing work
	os.Args = append(os.Args[:1], os.Args[2:]...)

	// LoadConfig parses the remaining flags alongside -addr
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(logging.Config{
		Level:  cfg.Trader.LogLevel,
		Pretty: cfg.Trader.LogFormat == "pretty",
		Output: os.Stderr,
	})

	store := openStore(cfg)
	defer store.Close()

	// Execute the appropriate command
	switch command {
	case "counts":
		printCounts(store)
	case "strategies":
		printStrategies(store)
	case "symbols":
		printSymbols(store)
	case "residuals":
		checkResiduals(store)
	case "anomalies":
		printAnomalies(store)
	case "order":
		if flag.NArg() < 1 {
			fmt.Println("Usage: order <cl-ord-id>")
			os.Exit(1)
		}
		printOrder(store, core.ClientOrderID(flag.Arg(0)))
	case "position":
		if flag.NArg() < 1 {
			fmt.Println("Usage: position <position-id>")
			os.Exit(1)
		}
		printPosition(store, core.PositionID(flag.Arg(0)))
	case "reset":
		resetStore(store, cfg.Trader.ID)
	default:
		printUsage()
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) *redisbackend.RedisStore {
	addr := cfg.Redis.Addr
	if *redisAddr != "" {
		addr = *redisAddr
	}
	redisbackend.SetDefaultRedisOptions(&redisbackend.RedisOptions{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	client := redisbackend.GetRedisClient()
	return redisbackend.NewRedisStore(client, cfg.Trader.ID, zap.NewNop())
}

func printCounts(store *redisbackend.RedisStore) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%s\t%s\n", cyan("Index"), cyan("Count"))
	fmt.Fprintf(w, "orders\t%d\n", core.OrdersTotalCount(store, ""))
	fmt.Fprintf(w, "orders working\t%d\n", core.OrdersWorkingCount(store, ""))
	fmt.Fprintf(w, "orders completed\t%d\n", core.OrdersCompletedCount(store, ""))
	fmt.Fprintf(w, "positions\t%d\n", core.PositionsTotalCount(store, ""))
	fmt.Fprintf(w, "positions open\t%d\n", core.PositionsOpenCount(store, ""))
	fmt.Fprintf(w, "positions closed\t%d\n", core.PositionsClosedCount(store, ""))
	fmt.Fprintf(w, "strategies\t%d\n", len(store.StrategyIDs()))
	w.Flush()
}

func printStrategies(store *redisbackend.RedisStore) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cyan("Strategy"), cyan("Orders"), cyan("Working"), cyan("Open Positions"))
	for strategyID := range store.StrategyIDs() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
			strategyID,
			core.OrdersTotalCount(store, strategyID),
			core.OrdersWorkingCount(store, strategyID),
			core.PositionsOpenCount(store, strategyID))
	}
	w.Flush()
}

func printSymbols(store *redisbackend.RedisStore) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%s\t%s\n", cyan("Symbol"), cyan("Open Positions"))
	for symbol, count := range core.SymbolPositionCounts(store) {
		fmt.Fprintf(w, "%s\t%d\n", symbol, count)
	}
	w.Flush()
}

func checkResiduals(store *redisbackend.RedisStore) {
	color.NoColor = false
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	residuals := core.CheckResiduals(store, log.Logger)
	if residuals == 0 {
		fmt.Println(green("No residual working orders or open positions"))
		return
	}
	fmt.Println(red("Residuals found: %d", residuals))
	os.Exit(1)
}

func printAnomalies(store *redisbackend.RedisStore) {
	anomalies := store.Anomalies()
	fmt.Printf("index conflicts: %d\nmissing records: %d\n",
		anomalies.IndexConflicts, anomalies.MissingRecords)
}

func printOrder(store *redisbackend.RedisStore, clOrdID core.ClientOrderID) {
	order := store.LoadOrder(clOrdID)
	if order == nil {
		log.Fatal().Str("cl_ord_id", clOrdID.String()).Msg("Order not found")
	}

	fmt.Printf("cl_ord_id: %s\n", order.ClOrdID())
	fmt.Printf("symbol:    %s\n", order.Symbol())
	fmt.Printf("side:      %s\n", order.Side())
	fmt.Printf("quantity:  %s\n", order.Quantity())
	fmt.Printf("price:     %s\n", order.Price())
	fmt.Printf("status:    %s\n", order.Status())
	if positionID := store.PositionIDForOrder(clOrdID); !positionID.IsNull() {
		fmt.Printf("position:  %s\n", positionID)
	}
}

func printPosition(store *redisbackend.RedisStore, positionID core.PositionID) {
	position := store.LoadPosition(positionID)
	if position == nil {
		log.Fatal().Str("position_id", positionID.String()).Msg("Position not found")
	}

	state := "OPEN"
	if position.IsClosed() {
		state = "CLOSED"
	}

	fmt.Printf("position_id: %s\n", position.ID())
	fmt.Printf("from_order:  %s\n", position.FromOrder())
	fmt.Printf("symbol:      %s\n", position.Symbol())
	fmt.Printf("quantity:    %s\n", position.Quantity())
	fmt.Printf("state:       %s\n", state)
}

func resetStore(store *redisbackend.RedisStore, traderID string) {
	if err := store.Reset(); err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}
	log.Info().Str("trader_id", traderID).Msg("Store reset")
}

func printUsage() {
	fmt.Println("Usage: inspect [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  counts            Show index cardinalities")
	fmt.Println("  strategies        Show per-strategy order and position counts")
	fmt.Println("  symbols           Show cached position counts per symbol")
	fmt.Println("  residuals         Report residual working orders and open positions")
	fmt.Println("  anomalies         Show soft anomaly counters")
	fmt.Println("  order <id>        Show one order record")
	fmt.Println("  position <id>     Show one position record")
	fmt.Println("  reset             Clear all trader-scoped state")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
