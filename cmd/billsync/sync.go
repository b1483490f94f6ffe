package billsync

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/kamilpajak/billsync/internal/billing"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <stripe-invoice-id>",
	Short: "Re-fetch one Stripe invoice and reconcile it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	stripeID := strings.TrimSpace(args[0])
	if !strings.HasPrefix(stripeID, "in_") {
		return fmt.Errorf("invalid invoice id %q, expected in_...", stripeID)
	}

	cfg, logger, err := loadConfig(io.Discard)
	if err != nil {
		return err
	}
	if cfg.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.UseMemory() {
		fmt.Fprintln(os.Stderr, "warning: DATA_SOURCE=memory, the result is not persisted")
	}

	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := billing.NewClient(billing.Config{SecretKey: cfg.StripeSecretKey, RateLimit: cfg.StripeRateLimit})
	reconciler := billing.NewReconciler(client, store, logger)

	stop := startSpinner(os.Stderr, " Syncing "+stripeID)
	invoice, err := reconciler.SyncInvoice(ctx, stripeID)
	stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = color.New(color.FgGreen).Fprint(out, "synced ")
	fmt.Fprintf(out, "%s -> %s (%s %s %s)\n",
		stripeID, invoice.ID, statusColor(invoice.Status).Sprint(invoice.Status),
		invoice.Total.StringFixed(2), strings.ToUpper(invoice.Currency))
	return nil
}

// startSpinner shows a spinner on terminals and returns the func that stops it.
func startSpinner(f *os.File, suffix string) func() {
	if !isTerminal(f) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
