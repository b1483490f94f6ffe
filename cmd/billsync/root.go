// Package billsync implements the billsync command line.
package billsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kamilpajak/billsync/internal/api"
	"github.com/kamilpajak/billsync/internal/config"
	"github.com/kamilpajak/billsync/internal/database"
	"github.com/kamilpajak/billsync/internal/logging"
	"github.com/kamilpajak/billsync/internal/memstore"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "billsync",
	Short: "Stripe invoice webhook ingestion and sync",
	Long: `billsync receives Stripe webhooks and mirrors invoices, payments and
customer links into the billing database used by the client portal and
admin dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and builds the process logger.
func loadConfig(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore connects to the configured data source. The memory store starts
// with the users listed in SEED_USERS.
func openStore(ctx context.Context, cfg *config.Config) (api.Store, func(), error) {
	if cfg.UseMemory() {
		store := memstore.New()
		if err := seedUsers(ctx, store, cfg.SeedUsers); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, db.Close, nil
}
