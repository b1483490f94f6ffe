package billsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kamilpajak/billsync/internal/api"
	"github.com/kamilpajak/billsync/internal/auth"
	"github.com/kamilpajak/billsync/internal/billing"
	"github.com/kamilpajak/billsync/internal/config"
	"github.com/kamilpajak/billsync/internal/database"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and API server",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

var skipMigrations bool

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply migrations on startup")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.UseMemory() && !skipMigrations {
		logger.Info("running database migrations")
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	for _, warning := range startupWarnings(cfg) {
		logger.Warn(warning)
	}

	var verifier auth.TokenVerifier
	if cfg.AuthEnabled() {
		v, err := auth.NewVerifier(ctx, auth.Config{Domain: cfg.KindeDomain, Audience: cfg.KindeAudience})
		if err != nil {
			return fmt.Errorf("failed to create auth verifier: %w", err)
		}
		verifier = v
	}

	stripeClient := billing.NewClient(billing.Config{
		SecretKey: cfg.StripeSecretKey,
		RateLimit: cfg.StripeRateLimit,
	})
	processor := billing.NewProcessor(stripeClient, store, logger)

	server := api.NewServer(api.Config{
		Store:          store,
		AuthVerifier:   verifier,
		Webhook:        billing.NewWebhookHandler(billing.EnvSecret(config.WebhookSecretEnv), processor, logger),
		Syncer:         processor.Reconciler,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", httpServer.Addr, "data_source", cfg.DataSource)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// startupWarnings lists configuration gaps that leave parts of the service
// unable to work.
func startupWarnings(cfg *config.Config) []string {
	var warnings []string
	if !cfg.AuthEnabled() {
		warnings = append(warnings, "KINDE_DOMAIN not set, admin and portal routes will reject all requests")
	}
	if cfg.StripeSecretKey == "" {
		warnings = append(warnings, "STRIPE_SECRET_KEY not set, invoice events will fail until it is configured")
	}
	if cfg.StripeWebhookSecret == "" {
		warnings = append(warnings, config.WebhookSecretEnv+" not set, webhooks will be answered with 500 until it is configured")
	}
	if cfg.UseMemory() && len(cfg.SeedUsers) == 0 {
		warnings = append(warnings, "memory store has no users, set SEED_USERS to use admin and portal routes")
	}
	return warnings
}
