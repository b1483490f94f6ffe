package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamilpajak/billsync/pkg/models"
)

const paymentColumns = `id, invoice_id, stripe_payment_intent_id, amount, status,
	payment_method, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var status string
	err := row.Scan(&p.ID, &p.InvoiceID, &p.StripePaymentIntentID, &p.Amount, &status,
		&p.PaymentMethod, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

// UpsertPayment inserts or updates the payment keyed on its Stripe payment
// intent ID.
func (db *DB) UpsertPayment(ctx context.Context, p models.PaymentUpsert) (*models.Payment, error) {
	return scanPayment(db.pool.QueryRow(ctx,
		`INSERT INTO payments (invoice_id, stripe_payment_intent_id, amount, status, payment_method, paid_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		 ON CONFLICT (stripe_payment_intent_id) DO UPDATE SET
		     invoice_id = EXCLUDED.invoice_id,
		     amount = EXCLUDED.amount,
		     status = EXCLUDED.status,
		     payment_method = COALESCE(EXCLUDED.payment_method, payments.payment_method),
		     paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at),
		     updated_at = now()
		 RETURNING `+paymentColumns,
		p.InvoiceID, p.StripePaymentIntentID, p.Amount, string(p.Status), p.PaymentMethod, p.PaidAt,
	))
}

// GetPaymentByIntentID retrieves a payment by its Stripe payment intent ID.
func (db *DB) GetPaymentByIntentID(ctx context.Context, paymentIntentID string) (*models.Payment, error) {
	return scanPayment(db.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE stripe_payment_intent_id = $1`,
		paymentIntentID,
	))
}

// ListInvoicePayments returns all payments recorded against an invoice.
func (db *DB) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE invoice_id = $1
		 ORDER BY created_at`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
