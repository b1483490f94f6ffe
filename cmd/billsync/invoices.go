package billsync

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List locally stored invoices",
	Args:  cobra.NoArgs,
	RunE:  runInvoices,
}

var (
	outputFormat  string
	statusFilter  string
	emailFilter   string
	invoicesLimit int
)

func init() {
	invoicesCmd.Flags().StringVarP(&outputFormat, "format", "o", "text", "Output format: text, json or yaml")
	invoicesCmd.Flags().StringVar(&statusFilter, "status", "", "Only show invoices with this status (Draft, Sent, Paid, Overdue)")
	invoicesCmd.Flags().StringVar(&emailFilter, "email", "", "Only show invoices for this client email")
	invoicesCmd.Flags().IntVar(&invoicesLimit, "limit", 50, "Maximum number of invoices")
}

func runInvoices(cmd *cobra.Command, args []string) error {
	status := models.InvoiceStatus(statusFilter)
	if statusFilter != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", statusFilter)
	}

	cfg, _, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	invoices, err := store.ListInvoices(cmd.Context(), models.ListInvoicesParams{
		ClientEmail: emailFilter,
		Status:      status,
		Limit:       invoicesLimit,
	})
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	return printInvoices(cmd.OutOrStdout(), outputFormat, invoices)
}

func printInvoices(w io.Writer, format string, invoices []models.Invoice) error {
	if invoices == nil {
		invoices = []models.Invoice{}
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(invoices)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(invoices); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return printInvoiceTable(w, invoices)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printInvoiceTable(w io.Writer, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		_, _ = color.New(color.FgHiBlack).Fprintln(w, "no invoices")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTRIPE ID\tCLIENT\tISSUED\tTOTAL\tSTATUS")
	for _, inv := range invoices {
		number := inv.InvoiceNumber
		if number == "" {
			number = "-"
		}
		stripeID := "-"
		if inv.StripeInvoiceID != nil {
			stripeID = *inv.StripeInvoiceID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\n",
			number, stripeID, inv.ClientEmail, inv.IssueDate.Format("2006-01-02"),
			inv.Total.StringFixed(2), strings.ToUpper(inv.Currency),
			statusColor(inv.Status).Sprint(inv.Status))
	}
	return tw.Flush()
}

func statusColor(s models.InvoiceStatus) *color.Color {
	switch s {
	case models.InvoicePaid:
		return color.New(color.FgGreen)
	case models.InvoiceOverdue:
		return color.New(color.FgRed)
	case models.InvoiceSent:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}
