// Package memstore is an in-memory billing store for local development and
// tests. It mirrors the semantics of the PostgreSQL store in internal/database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
)

// Store holds users, invoices and payments in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[uuid.UUID]*models.User
	invoices map[uuid.UUID]*models.Invoice
	payments map[uuid.UUID]*models.Payment

	invoiceByStripeID map[string]uuid.UUID
	paymentByIntentID map[string]uuid.UUID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:               time.Now,
		users:             make(map[uuid.UUID]*models.User),
		invoices:          make(map[uuid.UUID]*models.Invoice),
		payments:          make(map[uuid.UUID]*models.Payment),
		invoiceByStripeID: make(map[string]uuid.UUID),
		paymentByIntentID: make(map[string]uuid.UUID),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// InvoiceCount returns the number of stored invoices.
func (s *Store) InvoiceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices)
}

// PaymentCount returns the number of stored payments.
func (s *Store) PaymentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}

// CreateUser creates a new user. Emails are unique ignoring case.
func (s *Store) CreateUser(_ context.Context, email, fullName, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByEmailLocked(email) != nil {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}
	if role == "" {
		role = models.RoleClient
	}

	now := s.now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  fullName,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	return copyUser(u), nil
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.users[id]), nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.userByEmailLocked(email)), nil
}

// GetUserByStripeCustomerID retrieves the user linked to a Stripe customer.
func (s *Store) GetUserByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *models.User
	for _, u := range s.users {
		if u.StripeCustomerID == nil || *u.StripeCustomerID != customerID {
			continue
		}
		if match == nil || u.UpdatedAt.After(match.UpdatedAt) {
			match = u
		}
	}
	return copyUser(match), nil
}

// LinkStripeCustomer stores the Stripe customer ID on the user with the given
// email. It reports whether a user matched.
func (s *Store) LinkStripeCustomer(_ context.Context, email, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByEmailLocked(email)
	if u == nil {
		return false, nil
	}
	u.StripeCustomerID = &customerID
	u.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *Store) userByEmailLocked(email string) *models.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// UpsertInvoice inserts or updates the invoice keyed on its Stripe invoice ID.
// A stored Paid status is never overwritten by a later reconciliation.
func (s *Store) UpsertInvoice(_ context.Context, p models.InvoiceUpsert) (*models.Invoice, error) {
	if p.StripeInvoiceID == "" {
		return nil, fmt.Errorf("stripe invoice id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	synced := p.SyncedAt
	issue := truncateDate(p.IssueDate)
	var due *time.Time
	if p.DueDate != nil {
		d := truncateDate(*p.DueDate)
		due = &d
	}

	inv, ok := s.invoices[s.invoiceByStripeID[p.StripeInvoiceID]]
	if !ok {
		stripeID := p.StripeInvoiceID
		inv = &models.Invoice{
			ID:              uuid.New(),
			StripeInvoiceID: &stripeID,
			CreatedAt:       now,
			Status:          p.Status,
		}
		s.invoices[inv.ID] = inv
		s.invoiceByStripeID[stripeID] = inv.ID
	} else if inv.Status != models.InvoicePaid {
		inv.Status = p.Status
	}

	inv.InvoiceNumber = p.InvoiceNumber
	inv.ClientEmail = p.ClientEmail
	if p.ClientID != nil {
		id := *p.ClientID
		inv.ClientID = &id
	}
	inv.IssueDate = issue
	inv.DueDate = due
	inv.Total = p.Total.Round(2)
	inv.Currency = p.Currency
	if p.HostedInvoiceURL != "" {
		url := p.HostedInvoiceURL
		inv.HostedInvoiceURL = &url
	}
	inv.LastSyncedAt = &synced
	inv.UpdatedAt = now

	return copyInvoice(inv), nil
}

// MarkInvoicePaid sets the invoice with the given Stripe ID to Paid.
func (s *Store) MarkInvoicePaid(_ context.Context, stripeInvoiceID string, syncedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.invoiceByStripeID[stripeInvoiceID]
	if !ok {
		return false, nil
	}
	s.markPaidLocked(s.invoices[id], syncedAt)
	return true, nil
}

// MarkInvoicePaidByID sets the invoice with the given local ID to Paid.
func (s *Store) MarkInvoicePaidByID(_ context.Context, id uuid.UUID, syncedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return false, nil
	}
	s.markPaidLocked(inv, syncedAt)
	return true, nil
}

func (s *Store) markPaidLocked(inv *models.Invoice, syncedAt time.Time) {
	inv.Status = models.InvoicePaid
	inv.LastSyncedAt = &syncedAt
	inv.UpdatedAt = s.now().UTC()
}

// GetInvoiceByID retrieves an invoice by its local ID.
func (s *Store) GetInvoiceByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyInvoice(s.invoices[id]), nil
}

// GetInvoiceByStripeID retrieves an invoice by its Stripe invoice ID.
func (s *Store) GetInvoiceByStripeID(_ context.Context, stripeInvoiceID string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.invoiceByStripeID[stripeInvoiceID]
	if !ok {
		return nil, nil
	}
	return copyInvoice(s.invoices[id]), nil
}

// ListInvoices returns invoices newest first, optionally filtered by client
// email and status.
func (s *Store) ListInvoices(_ context.Context, params models.ListInvoicesParams) ([]models.Invoice, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	s.mu.RLock()
	var out []models.Invoice
	for _, inv := range s.invoices {
		if params.ClientEmail != "" && !strings.EqualFold(inv.ClientEmail, params.ClientEmail) {
			continue
		}
		if params.Status != "" && inv.Status != params.Status {
			continue
		}
		out = append(out, *copyInvoice(inv))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if params.Offset >= len(out) {
		return nil, nil
	}
	out = out[params.Offset:]
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

// UpsertPayment inserts or updates the payment keyed on its Stripe payment
// intent ID. The referenced invoice must exist.
func (s *Store) UpsertPayment(_ context.Context, p models.PaymentUpsert) (*models.Payment, error) {
	if p.StripePaymentIntentID == "" {
		return nil, fmt.Errorf("stripe payment intent id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[p.InvoiceID]; !ok {
		return nil, fmt.Errorf("invoice %s does not exist", p.InvoiceID)
	}

	now := s.now().UTC()
	pay, ok := s.payments[s.paymentByIntentID[p.StripePaymentIntentID]]
	if !ok {
		pay = &models.Payment{
			ID:                    uuid.New(),
			StripePaymentIntentID: p.StripePaymentIntentID,
			CreatedAt:             now,
		}
		s.payments[pay.ID] = pay
		s.paymentByIntentID[p.StripePaymentIntentID] = pay.ID
	}

	pay.InvoiceID = p.InvoiceID
	pay.Amount = p.Amount.Round(2)
	pay.Status = p.Status
	if p.PaymentMethod != "" {
		method := p.PaymentMethod
		pay.PaymentMethod = &method
	}
	if p.PaidAt != nil {
		paidAt := *p.PaidAt
		pay.PaidAt = &paidAt
	}
	pay.UpdatedAt = now

	return copyPayment(pay), nil
}

// GetPaymentByIntentID retrieves a payment by its Stripe payment intent ID.
func (s *Store) GetPaymentByIntentID(_ context.Context, paymentIntentID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.paymentByIntentID[paymentIntentID]
	if !ok {
		return nil, nil
	}
	return copyPayment(s.payments[id]), nil
}

// ListInvoicePayments returns all payments recorded against an invoice.
func (s *Store) ListInvoicePayments(_ context.Context, invoiceID uuid.UUID) ([]models.Payment, error) {
	s.mu.RLock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *copyPayment(p))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func truncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	c.StripeCustomerID = clonePtr(u.StripeCustomerID)
	return &c
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.ClientID = clonePtr(inv.ClientID)
	c.DueDate = clonePtr(inv.DueDate)
	c.StripeInvoiceID = clonePtr(inv.StripeInvoiceID)
	c.HostedInvoiceURL = clonePtr(inv.HostedInvoiceURL)
	c.LastSyncedAt = clonePtr(inv.LastSyncedAt)
	return &c
}

func copyPayment(p *models.Payment) *models.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.PaymentMethod = clonePtr(p.PaymentMethod)
	c.PaidAt = clonePtr(p.PaidAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
