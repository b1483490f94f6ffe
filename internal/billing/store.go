package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/stripe/stripe-go/v76"
)

// Store is the persistence the webhook pipeline writes through.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	UpsertInvoice(ctx context.Context, p models.InvoiceUpsert) (*models.Invoice, error)
	MarkInvoicePaid(ctx context.Context, stripeInvoiceID string, syncedAt time.Time) (bool, error)
	MarkInvoicePaidByID(ctx context.Context, id uuid.UUID, syncedAt time.Time) (bool, error)
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetInvoiceByStripeID(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error)

	UpsertPayment(ctx context.Context, p models.PaymentUpsert) (*models.Payment, error)

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	LinkStripeCustomer(ctx context.Context, email, customerID string) (bool, error)
}

// InvoiceFetcher re-reads invoices from Stripe. *Client implements it.
type InvoiceFetcher interface {
	FetchInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
}
