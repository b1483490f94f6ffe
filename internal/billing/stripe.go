// Package billing reconciles Stripe webhook events into the local invoice,
// payment and user store.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/invoice"
	"golang.org/x/time/rate"
)

// Config holds Stripe configuration.
type Config struct {
	SecretKey string
	// RateLimit caps Stripe API reads per second. Zero disables the limit.
	RateLimit float64
}

// StripeProvider defines the Stripe API reads the reconciler needs.
// This allows mocking in tests.
type StripeProvider interface {
	GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
}

// DefaultStripeProvider implements StripeProvider using the real Stripe SDK.
type DefaultStripeProvider struct{}

// GetInvoice retrieves an invoice with its customer expanded.
func (p *DefaultStripeProvider) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	params.AddExpand("customer")
	return invoice.Get(id, params)
}

// Client wraps Stripe reads with a rate limiter and a circuit breaker.
// It is safe for concurrent use.
type Client struct {
	config   Config
	provider StripeProvider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*stripe.Invoice]
}

// NewClient creates a new Stripe client.
func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return NewClientWithProvider(cfg, &DefaultStripeProvider{})
}

// NewClientWithProvider creates a new Stripe client with a custom provider (for testing).
func NewClientWithProvider(cfg Config, provider StripeProvider) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}

	return &Client{
		config:   cfg,
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker[*stripe.Invoice](gobreaker.Settings{
			Name:        "stripe",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
		}),
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() Config {
	return c.config
}

// FetchInvoice re-reads an invoice from Stripe.
func (c *Client) FetchInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("stripe rate limiter: %w", err)
	}

	inv, err := c.breaker.Execute(func() (*stripe.Invoice, error) {
		return c.provider.GetInvoice(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", id, err)
	}
	return inv, nil
}

// isClientError reports whether err is a Stripe 4xx response, which says
// nothing about the health of the API.
func isClientError(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= http.StatusBadRequest &&
			stripeErr.HTTPStatusCode < http.StatusInternalServerError &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}
