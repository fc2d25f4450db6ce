// Package cmd wires the exchangesim CLI surface with cobra: "serve" runs
// the matching + positions engines behind the REST/WebSocket server.
// Grounded on the teacher's internal/cmd/cli.go command tree and
// cmd/candlecore/main.go's store/engine wiring, now assembling
// store.Store + ledger.Ledger + oracle.Oracle + matching.Engine +
// positions.Engine + supervisor.Supervisor + api.Server instead of a
// single paper broker and a backtest loop.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"exchangesim/internal/api"
	"exchangesim/internal/config"
	"exchangesim/internal/domain"
	"exchangesim/internal/ledger"
	"exchangesim/internal/logger"
	"exchangesim/internal/matching"
	"exchangesim/internal/oracle"
	"exchangesim/internal/positions"
	"exchangesim/internal/store"
	"exchangesim/internal/supervisor"
	"exchangesim/internal/ui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "exchangesim",
	Short: "exchangesim - a spot/perpetual exchange simulator core",
	Long: `exchangesim runs a matching engine and a positions orchestration
engine over a balance ledger, exposing order placement, leverage, and
position administration over REST and WebSocket.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching/positions engines and the API server",
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		if err := serve(configPath, addr); err != nil {
			fmt.Fprintf(os.Stderr, "exchangesim: %v\n", err)
			os.Exit(1)
		}
	},
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Print a portfolio's positions as a table",
	Run: func(cmd *cobra.Command, args []string) {
		portfolioID, _ := cmd.Flags().GetString("portfolio")
		if err := printPositions(configPath, portfolioID); err != nil {
			fmt.Fprintf(os.Stderr, "exchangesim: %v\n", err)
			os.Exit(1)
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Postgres schema without starting the engines or API server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := migrate(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "exchangesim: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to bind the API server to")
	positionsCmd.Flags().StringP("portfolio", "p", "", "Portfolio ID to filter by (all portfolios if empty)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(migrateCmd)
}

// migrate opens the configured Postgres database and runs Initialize
// standalone, for deploys that provision schema separately from serve.
func migrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("migrate: database.enabled is false in %s", configPath)
	}

	pg, err := store.NewPostgres(cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	ui.PrintSuccess("PostgreSQL schema initialized")
	return nil
}

// printPositions opens the configured store read-only and renders every
// position for portfolioID (or all portfolios, if empty) as a table.
func printPositions(configPath, portfolioID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var entityStore store.Store
	if cfg.Database.Enabled {
		pg, err := store.NewPostgres(cfg.GetDatabaseConnectionString())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		entityStore = pg
	} else {
		entityStore = store.NewMemory()
	}

	positionsList, err := entityStore.GetAllPositions(context.Background(), portfolioID, domain.Market(""), "", "")
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	ui.PrintPositionTable(positionsList)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	ui.PrintBanner()
	ui.PrintSuccess("exchangesim core initialized")

	var entityStore store.Store
	ui.PrintSection("STATE PERSISTENCE")
	if cfg.Database.Enabled {
		ui.PrintInfo(fmt.Sprintf("Connecting to PostgreSQL at %s:%d...", cfg.Database.Host, cfg.Database.Port))
		pg, err := store.NewPostgres(cfg.GetDatabaseConnectionString())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.Initialize(initCtx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		ui.PrintSuccess("PostgreSQL connected and schema initialized")
		entityStore = pg
	} else {
		ui.PrintInfo("Using in-memory store")
		entityStore = store.NewMemory()
	}

	priceOracle := oracle.NewHTTPClient(
		cfg.MarketMonitor.APIPath,
		cfg.MarketMonitor.SubscriptionPath,
		cfg.MarketMonitor.Exchange,
	)

	balanceLedger := ledger.New(entityStore)
	matchingEngine := matching.New(entityStore, balanceLedger, priceOracle, log)
	positionsEngine := positions.New(entityStore, balanceLedger, priceOracle, log)

	server := api.NewServer(cfg.APIBasePath(), entityStore, balanceLedger, matchingEngine, log)
	matchingEngine.SetHub(server.Hub())
	positionsEngine.SetHub(server.Hub())

	sup := supervisor.New(matchingEngine, positionsEngine, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)

	ui.PrintSection("API SERVER")
	ui.PrintInfo(fmt.Sprintf("Listening on %s, mounted at %s", addr, cfg.APIBasePath()))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(addr) }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		sup.Stop()
		return err
	}

	sup.Stop()
	log.Info("exchangesim shutdown complete")
	return nil
}
