package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"
)

// Processor routes verified events to the reconciler, payment recorder and
// customer linker.
type Processor struct {
	Reconciler *Reconciler
	Payments   *PaymentRecorder
	Customers  *CustomerLinker

	logger *slog.Logger
	now    func() time.Time
}

// NewProcessor wires the event handlers over one store.
func NewProcessor(fetcher InvoiceFetcher, store Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Reconciler: NewReconciler(fetcher, store, logger),
		Payments:   NewPaymentRecorder(store, logger),
		Customers:  NewCustomerLinker(store, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Process applies one event. Unhandled types are logged and ignored.
func (p *Processor) Process(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)

	switch Route(eventType) {
	case BranchInvoice:
		var inv stripe.Invoice
		if err := decodeEventObject(event, &inv); err != nil {
			return err
		}
		_, err := p.Reconciler.SyncInvoice(ctx, inv.ID)
		return err

	case BranchInvoicePaid:
		var inv stripe.Invoice
		if err := decodeEventObject(event, &inv); err != nil {
			return err
		}
		return p.Payments.RecordInvoicePaid(ctx, NormalizeInvoice(&inv), eventTime(event, p.now()))

	case BranchPaymentIntent:
		var pi stripe.PaymentIntent
		if err := decodeEventObject(event, &pi); err != nil {
			return err
		}
		succeeded := eventType == EventPaymentIntentSucceeded
		return p.Payments.RecordPaymentIntent(ctx, NormalizePaymentIntent(&pi), succeeded, eventTime(event, p.now()))

	case BranchCustomer:
		var c stripe.Customer
		if err := decodeEventObject(event, &c); err != nil {
			return err
		}
		return p.Customers.LinkCustomer(ctx, NormalizeCustomer(&c))

	default:
		p.logger.InfoContext(ctx, "ignoring unhandled webhook event type",
			"event_id", event.ID,
			"event_type", eventType,
		)
		return nil
	}
}
