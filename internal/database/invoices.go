package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamilpajak/billsync/pkg/models"
)

const invoiceColumns = `id, invoice_number, client_email, client_id, issue_date, due_date,
	total, currency, status, stripe_invoice_id, hosted_invoice_url, last_synced_at,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientEmail, &inv.ClientID,
		&inv.IssueDate, &inv.DueDate, &inv.Total, &inv.Currency, &status,
		&inv.StripeInvoiceID, &inv.HostedInvoiceURL, &inv.LastSyncedAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	return &inv, nil
}

// UpsertInvoice inserts or updates the invoice keyed on its Stripe invoice ID.
// A stored Paid status is never overwritten by a later reconciliation.
func (db *DB) UpsertInvoice(ctx context.Context, p models.InvoiceUpsert) (*models.Invoice, error) {
	return scanInvoice(db.pool.QueryRow(ctx,
		`INSERT INTO invoices (stripe_invoice_id, invoice_number, client_email, client_id,
		     issue_date, due_date, total, currency, status, hosted_invoice_url, last_synced_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		 ON CONFLICT (stripe_invoice_id) DO UPDATE SET
		     invoice_number = EXCLUDED.invoice_number,
		     client_email = EXCLUDED.client_email,
		     client_id = COALESCE(EXCLUDED.client_id, invoices.client_id),
		     issue_date = EXCLUDED.issue_date,
		     due_date = EXCLUDED.due_date,
		     total = EXCLUDED.total,
		     currency = EXCLUDED.currency,
		     status = CASE WHEN invoices.status = 'Paid' THEN invoices.status ELSE EXCLUDED.status END,
		     hosted_invoice_url = COALESCE(EXCLUDED.hosted_invoice_url, invoices.hosted_invoice_url),
		     last_synced_at = EXCLUDED.last_synced_at,
		     updated_at = now()
		 RETURNING `+invoiceColumns,
		p.StripeInvoiceID, p.InvoiceNumber, p.ClientEmail, p.ClientID,
		p.IssueDate, p.DueDate, p.Total, p.Currency, string(p.Status), p.HostedInvoiceURL, p.SyncedAt,
	))
}

// MarkInvoicePaid sets the invoice with the given Stripe ID to Paid and stamps
// last_synced_at. It reports whether a row matched.
func (db *DB) MarkInvoicePaid(ctx context.Context, stripeInvoiceID string, syncedAt time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE invoices SET status = 'Paid', last_synced_at = $2, updated_at = now()
		 WHERE stripe_invoice_id = $1`,
		stripeInvoiceID, syncedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkInvoicePaidByID sets the invoice with the given local ID to Paid.
func (db *DB) MarkInvoicePaidByID(ctx context.Context, id uuid.UUID, syncedAt time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE invoices SET status = 'Paid', last_synced_at = $2, updated_at = now()
		 WHERE id = $1`,
		id, syncedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetInvoiceByID retrieves an invoice by its local ID.
func (db *DB) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return scanInvoice(db.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`,
		id,
	))
}

// GetInvoiceByStripeID retrieves an invoice by its Stripe invoice ID.
func (db *DB) GetInvoiceByStripeID(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error) {
	return scanInvoice(db.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE stripe_invoice_id = $1`,
		stripeInvoiceID,
	))
}

// ListInvoices returns invoices newest first, optionally filtered by client
// email and status.
func (db *DB) ListInvoices(ctx context.Context, params models.ListInvoicesParams) ([]models.Invoice, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE ($1 = '' OR lower(client_email) = lower($1))
		   AND ($2 = '' OR status = $2)
		 ORDER BY issue_date DESC, created_at DESC
		 LIMIT $3 OFFSET $4`,
		params.ClientEmail, string(params.Status), params.Limit, params.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}
