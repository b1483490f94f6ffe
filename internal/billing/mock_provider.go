package billing

import (
	"context"

	"github.com/stripe/stripe-go/v76"
)

// MockStripeProvider is a mock implementation of StripeProvider for testing.
type MockStripeProvider struct {
	GetInvoiceFn func(ctx context.Context, id string) (*stripe.Invoice, error)
}

// GetInvoice calls the mock function.
func (m *MockStripeProvider) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	if m.GetInvoiceFn != nil {
		return m.GetInvoiceFn(ctx, id)
	}
	return &stripe.Invoice{ID: id, Status: stripe.InvoiceStatusDraft}, nil
}

// MockWebhookVerifier is a mock implementation of WebhookVerifier for testing.
type MockWebhookVerifier struct {
	ConstructEventFn func(payload []byte, header string, secret string) (stripe.Event, error)
}

// ConstructEvent calls the mock function.
func (m *MockWebhookVerifier) ConstructEvent(payload []byte, header string, secret string) (stripe.Event, error) {
	if m.ConstructEventFn != nil {
		return m.ConstructEventFn(payload, header, secret)
	}
	return stripe.Event{}, nil
}

// MockEventProcessor is a mock implementation of EventProcessor for testing.
type MockEventProcessor struct {
	ProcessFn func(ctx context.Context, event stripe.Event) error
}

// Process calls the mock function.
func (m *MockEventProcessor) Process(ctx context.Context, event stripe.Event) error {
	if m.ProcessFn != nil {
		return m.ProcessFn(ctx, event)
	}
	return nil
}
