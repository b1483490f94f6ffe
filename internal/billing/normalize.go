package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

// InvoiceData is the subset of a Stripe invoice the store cares about.
type InvoiceData struct {
	StripeID        string
	Number          string
	CustomerID      string
	CustomerEmail   string
	Status          string
	Currency        string
	HostedURL       string
	PaymentIntentID string
	Total           decimal.Decimal
	AmountPaid      decimal.Decimal
	Created         time.Time
	DueDate         *time.Time
	PaidAt          *time.Time
}

// PaymentIntentData is the subset of a Stripe payment intent the store cares about.
type PaymentIntentData struct {
	ID string
	// LocalInvoiceID is the raw metadata.invoice_id value.
	LocalInvoiceID  string
	StripeInvoiceID string
	Amount          decimal.Decimal
	AmountReceived  decimal.Decimal
	PaymentMethod   string
}

// CustomerData is the subset of a Stripe customer the store cares about.
type CustomerData struct {
	ID    string
	Email string
	Name  string
}

// MinorToMajor converts an amount in minor currency units to major units.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// NormalizeInvoice flattens a Stripe invoice, with or without an expanded customer.
func NormalizeInvoice(inv *stripe.Invoice) InvoiceData {
	data := InvoiceData{
		StripeID:      inv.ID,
		Number:        inv.Number,
		CustomerEmail: inv.CustomerEmail,
		Status:        string(inv.Status),
		Currency:      strings.ToLower(string(inv.Currency)),
		HostedURL:     inv.HostedInvoiceURL,
		Total:         MinorToMajor(inv.Total),
		AmountPaid:    MinorToMajor(inv.AmountPaid),
		Created:       time.Unix(inv.Created, 0).UTC(),
		DueDate:       unixTime(inv.DueDate),
	}
	if inv.Customer != nil {
		data.CustomerID = inv.Customer.ID
		if data.CustomerEmail == "" {
			data.CustomerEmail = inv.Customer.Email
		}
	}
	if inv.PaymentIntent != nil {
		data.PaymentIntentID = inv.PaymentIntent.ID
	}
	if inv.StatusTransitions != nil {
		data.PaidAt = unixTime(inv.StatusTransitions.PaidAt)
	}
	return data
}

// NormalizePaymentIntent flattens a Stripe payment intent.
func NormalizePaymentIntent(pi *stripe.PaymentIntent) PaymentIntentData {
	data := PaymentIntentData{
		ID:             pi.ID,
		Amount:         MinorToMajor(pi.Amount),
		AmountReceived: MinorToMajor(pi.AmountReceived),
	}
	if pi.Metadata != nil {
		data.LocalInvoiceID = strings.TrimSpace(pi.Metadata["invoice_id"])
	}
	if pi.Invoice != nil {
		data.StripeInvoiceID = pi.Invoice.ID
	}
	if len(pi.PaymentMethodTypes) > 0 {
		data.PaymentMethod = pi.PaymentMethodTypes[0]
	}
	return data
}

// NormalizeCustomer flattens a Stripe customer.
func NormalizeCustomer(c *stripe.Customer) CustomerData {
	return CustomerData{
		ID:    c.ID,
		Email: strings.TrimSpace(c.Email),
		Name:  c.Name,
	}
}

// MapInvoiceStatus maps a Stripe invoice status onto the local status set.
// An open invoice whose due date is before now counts as overdue.
func MapInvoiceStatus(status string, dueDate *time.Time, now time.Time) models.InvoiceStatus {
	switch status {
	case "paid":
		return models.InvoicePaid
	case "open":
		if dueDate != nil && dueDate.Before(now) {
			return models.InvoiceOverdue
		}
		return models.InvoiceSent
	case "uncollectible":
		return models.InvoiceOverdue
	default:
		// draft, void and anything new
		return models.InvoiceDraft
	}
}

func decodeEventObject(event stripe.Event, v any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("event %s has no data object", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return nil
}

func eventTime(event stripe.Event, fallback time.Time) time.Time {
	if event.Created == 0 {
		return fallback
	}
	return time.Unix(event.Created, 0).UTC()
}
