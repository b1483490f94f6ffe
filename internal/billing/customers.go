package billing

import (
	"context"
	"fmt"
	"log/slog"
)

// CustomerLinker attaches Stripe customer IDs to local users by email.
type CustomerLinker struct {
	store  Store
	logger *slog.Logger
}

// NewCustomerLinker creates a customer linker.
func NewCustomerLinker(store Store, logger *slog.Logger) *CustomerLinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerLinker{store: store, logger: logger}
}

// LinkCustomer sets the Stripe customer ID on the user with the customer's email.
func (l *CustomerLinker) LinkCustomer(ctx context.Context, c CustomerData) error {
	if c.Email == "" {
		l.logger.InfoContext(ctx, "stripe customer has no email", "customer_id", c.ID)
		return nil
	}

	linked, err := l.store.LinkStripeCustomer(ctx, c.Email, c.ID)
	if err != nil {
		return fmt.Errorf("link customer %s: %w", c.ID, err)
	}
	if !linked {
		l.logger.InfoContext(ctx, "no local user for stripe customer", "customer_id", c.ID)
		return nil
	}

	l.logger.InfoContext(ctx, "linked stripe customer", "customer_id", c.ID)
	return nil
}
