package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
)

// Reconciler mirrors Stripe invoices into the store.
type Reconciler struct {
	fetcher InvoiceFetcher
	store   Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(fetcher InvoiceFetcher, store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// SyncInvoice re-fetches the invoice from Stripe and upserts it by its Stripe ID.
// The event payload is only a trigger; the fetched invoice is authoritative.
func (r *Reconciler) SyncInvoice(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error) {
	if stripeInvoiceID == "" {
		return nil, fmt.Errorf("stripe invoice id is required")
	}

	remote, err := r.fetcher.FetchInvoice(ctx, stripeInvoiceID)
	if err != nil {
		return nil, err
	}
	data := NormalizeInvoice(remote)
	if data.StripeID == "" {
		data.StripeID = stripeInvoiceID
	}

	clientID, err := r.resolveClient(ctx, data.CustomerID, data.CustomerEmail)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	inv, err := r.store.UpsertInvoice(ctx, models.InvoiceUpsert{
		StripeInvoiceID:  data.StripeID,
		InvoiceNumber:    data.Number,
		ClientEmail:      data.CustomerEmail,
		ClientID:         clientID,
		IssueDate:        data.Created,
		DueDate:          data.DueDate,
		Total:            data.Total,
		Currency:         data.Currency,
		Status:           MapInvoiceStatus(data.Status, data.DueDate, now),
		HostedInvoiceURL: data.HostedURL,
		SyncedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert invoice %s: %w", data.StripeID, err)
	}

	r.logger.InfoContext(ctx, "synced stripe invoice",
		"stripe_invoice_id", data.StripeID,
		"invoice_id", inv.ID,
		"status", inv.Status,
	)
	return inv, nil
}

// resolveClient finds the local user for a Stripe customer, first by linked
// customer ID and then by email.
func (r *Reconciler) resolveClient(ctx context.Context, customerID, email string) (*uuid.UUID, error) {
	if customerID != "" {
		u, err := r.store.GetUserByStripeCustomerID(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("lookup user by customer %s: %w", customerID, err)
		}
		if u != nil {
			return &u.ID, nil
		}
	}
	if email != "" {
		u, err := r.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup user by email: %w", err)
		}
		if u != nil {
			return &u.ID, nil
		}
	}
	return nil, nil
}
