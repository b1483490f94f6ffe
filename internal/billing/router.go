package billing

// Branch identifies which component handles an event.
type Branch int

const (
	BranchIgnored Branch = iota
	BranchInvoice
	BranchInvoicePaid
	BranchPaymentIntent
	BranchCustomer
)

func (b Branch) String() string {
	switch b {
	case BranchInvoice:
		return "invoice"
	case BranchInvoicePaid:
		return "invoice_paid"
	case BranchPaymentIntent:
		return "payment_intent"
	case BranchCustomer:
		return "customer"
	default:
		return "ignored"
	}
}

// Stripe event types that are acted on.
const (
	EventInvoiceCreated         = "invoice.created"
	EventInvoiceUpdated         = "invoice.updated"
	EventInvoiceFinalized       = "invoice.finalized"
	EventInvoiceSent            = "invoice.sent"
	EventInvoicePaid            = "invoice.paid"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventCustomerCreated        = "customer.created"
	EventCustomerUpdated        = "customer.updated"
)

var routes = map[string]Branch{
	EventInvoiceCreated:         BranchInvoice,
	EventInvoiceUpdated:         BranchInvoice,
	EventInvoiceFinalized:       BranchInvoice,
	EventInvoiceSent:            BranchInvoice,
	EventInvoicePaid:            BranchInvoicePaid,
	EventPaymentIntentSucceeded: BranchPaymentIntent,
	EventPaymentIntentFailed:    BranchPaymentIntent,
	EventCustomerCreated:        BranchCustomer,
	EventCustomerUpdated:        BranchCustomer,
}

// Route maps an event type to its handling branch. Matching is exact.
func Route(eventType string) Branch {
	if b, ok := routes[eventType]; ok {
		return b
	}
	return BranchIgnored
}

// HandledEventTypes returns the Stripe event types that should be handled.
func HandledEventTypes() []string {
	return []string{
		EventInvoiceCreated,
		EventInvoiceUpdated,
		EventInvoiceFinalized,
		EventInvoiceSent,
		EventInvoicePaid,
		EventPaymentIntentSucceeded,
		EventPaymentIntentFailed,
		EventCustomerCreated,
		EventCustomerUpdated,
	}
}
