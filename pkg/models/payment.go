package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the outcome of a payment attempt
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one payment attempt against a local invoice
type Payment struct {
	ID                    uuid.UUID       `json:"id" yaml:"id"`
	InvoiceID             uuid.UUID       `json:"invoice_id" yaml:"invoice_id"`
	StripePaymentIntentID string          `json:"stripe_payment_intent_id" yaml:"stripe_payment_intent_id"`
	Amount                decimal.Decimal `json:"amount" yaml:"amount"`
	Status                PaymentStatus   `json:"status" yaml:"status"`
	PaymentMethod         *string         `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	PaidAt                *time.Time      `json:"paid_at,omitempty" yaml:"paid_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" yaml:"updated_at"`
}

// PaymentUpsert carries the fields written for a payment intent.
// StripePaymentIntentID is the conflict key.
type PaymentUpsert struct {
	InvoiceID             uuid.UUID
	StripePaymentIntentID string
	Amount                decimal.Decimal
	Status                PaymentStatus
	PaymentMethod         string
	PaidAt                *time.Time
}
