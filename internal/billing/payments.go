package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
)

// PaymentRecorder records invoice payments and payment intent outcomes.
type PaymentRecorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewPaymentRecorder creates a payment recorder.
func NewPaymentRecorder(store Store, logger *slog.Logger) *PaymentRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentRecorder{store: store, logger: logger, now: time.Now}
}

// RecordInvoicePaid marks the local invoice Paid and, when the invoice carries
// a payment intent, records a succeeded payment for it.
func (p *PaymentRecorder) RecordInvoicePaid(ctx context.Context, inv InvoiceData, eventTime time.Time) error {
	if inv.StripeID == "" {
		return fmt.Errorf("invoice.paid event without invoice id")
	}

	updated, err := p.store.MarkInvoicePaid(ctx, inv.StripeID, p.now().UTC())
	if err != nil {
		return fmt.Errorf("mark invoice %s paid: %w", inv.StripeID, err)
	}
	if !updated {
		p.logger.InfoContext(ctx, "paid invoice has no local record", "stripe_invoice_id", inv.StripeID)
		return nil
	}

	if inv.PaymentIntentID == "" {
		return nil
	}

	local, err := p.store.GetInvoiceByStripeID(ctx, inv.StripeID)
	if err != nil {
		return fmt.Errorf("lookup invoice %s: %w", inv.StripeID, err)
	}
	if local == nil {
		return nil
	}

	paidAt := eventTime
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	if _, err := p.store.UpsertPayment(ctx, models.PaymentUpsert{
		InvoiceID:             local.ID,
		StripePaymentIntentID: inv.PaymentIntentID,
		Amount:                inv.AmountPaid,
		Status:                models.PaymentSucceeded,
		PaidAt:                &paidAt,
	}); err != nil {
		return fmt.Errorf("record payment %s: %w", inv.PaymentIntentID, err)
	}

	p.logger.InfoContext(ctx, "recorded invoice payment",
		"invoice_id", local.ID,
		"payment_intent_id", inv.PaymentIntentID,
	)
	return nil
}

// RecordPaymentIntent records the outcome of a payment intent against the
// local invoice named in its metadata. Intents that cannot be tied to a local
// invoice are ignored.
func (p *PaymentRecorder) RecordPaymentIntent(ctx context.Context, pi PaymentIntentData, succeeded bool, eventTime time.Time) error {
	invoice, err := p.resolveInvoice(ctx, pi)
	if err != nil {
		return err
	}
	if invoice == nil {
		p.logger.InfoContext(ctx, "payment intent has no local invoice",
			"payment_intent_id", pi.ID,
			"invoice_id", pi.LocalInvoiceID,
		)
		return nil
	}

	upsert := models.PaymentUpsert{
		InvoiceID:             invoice.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                pi.Amount,
		Status:                models.PaymentFailed,
		PaymentMethod:         pi.PaymentMethod,
	}
	if succeeded {
		upsert.Status = models.PaymentSucceeded
		if !pi.AmountReceived.IsZero() {
			upsert.Amount = pi.AmountReceived
		}
		paidAt := eventTime
		upsert.PaidAt = &paidAt
	}

	if _, err := p.store.UpsertPayment(ctx, upsert); err != nil {
		return fmt.Errorf("record payment %s: %w", pi.ID, err)
	}

	if succeeded {
		if _, err := p.store.MarkInvoicePaidByID(ctx, invoice.ID, p.now().UTC()); err != nil {
			return fmt.Errorf("mark invoice %s paid: %w", invoice.ID, err)
		}
	}

	p.logger.InfoContext(ctx, "recorded payment intent",
		"payment_intent_id", pi.ID,
		"invoice_id", invoice.ID,
		"status", upsert.Status,
	)
	return nil
}

// resolveInvoice prefers metadata.invoice_id and falls back to the Stripe
// invoice the intent was created for.
func (p *PaymentRecorder) resolveInvoice(ctx context.Context, pi PaymentIntentData) (*models.Invoice, error) {
	if pi.LocalInvoiceID != "" {
		id, err := uuid.Parse(pi.LocalInvoiceID)
		if err != nil {
			p.logger.WarnContext(ctx, "payment intent has malformed invoice_id metadata",
				"payment_intent_id", pi.ID,
				"invoice_id", pi.LocalInvoiceID,
			)
			return nil, nil
		}
		inv, err := p.store.GetInvoiceByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup invoice %s: %w", id, err)
		}
		return inv, nil
	}

	if pi.StripeInvoiceID != "" {
		inv, err := p.store.GetInvoiceByStripeID(ctx, pi.StripeInvoiceID)
		if err != nil {
			return nil, fmt.Errorf("lookup invoice %s: %w", pi.StripeInvoiceID, err)
		}
		return inv, nil
	}
	return nil, nil
}
