package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a local invoice
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "Draft"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

// Valid reports whether s is one of the known invoice statuses
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

// Invoice is a billing record mirrored from Stripe
type Invoice struct {
	ID               uuid.UUID       `json:"id" yaml:"id"`
	InvoiceNumber    string          `json:"invoice_number" yaml:"invoice_number"`
	ClientEmail      string          `json:"client_email,omitempty" yaml:"client_email,omitempty"`
	ClientID         *uuid.UUID      `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	IssueDate        time.Time       `json:"issue_date" yaml:"issue_date"`
	DueDate          *time.Time      `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Total            decimal.Decimal `json:"total" yaml:"total"`
	Currency         string          `json:"currency" yaml:"currency"`
	Status           InvoiceStatus   `json:"status" yaml:"status"`
	StripeInvoiceID  *string         `json:"stripe_invoice_id,omitempty" yaml:"stripe_invoice_id,omitempty"`
	HostedInvoiceURL *string         `json:"hosted_invoice_url,omitempty" yaml:"hosted_invoice_url,omitempty"`
	LastSyncedAt     *time.Time      `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" yaml:"updated_at"`
}

// InvoiceUpsert carries the fields written when reconciling a Stripe invoice.
// StripeInvoiceID is the conflict key.
type InvoiceUpsert struct {
	StripeInvoiceID  string
	InvoiceNumber    string
	ClientEmail      string
	ClientID         *uuid.UUID
	IssueDate        time.Time
	DueDate          *time.Time
	Total            decimal.Decimal
	Currency         string
	Status           InvoiceStatus
	HostedInvoiceURL string
	SyncedAt         time.Time
}

// ListInvoicesParams filters invoice listings
type ListInvoicesParams struct {
	ClientEmail string
	Status      InvoiceStatus
	Limit       int
	Offset      int
}
