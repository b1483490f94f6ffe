package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upsert(stripeID string) models.InvoiceUpsert {
	return models.InvoiceUpsert{
		StripeInvoiceID:  stripeID,
		InvoiceNumber:    "INV-0001",
		ClientEmail:      "client@example.com",
		IssueDate:        time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC),
		Total:            decimal.New(250000, -2),
		Currency:         "usd",
		Status:           models.InvoiceSent,
		HostedInvoiceURL: "https://invoice.stripe.com/i/" + stripeID,
		SyncedAt:         time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
	}
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Ada@Example.com", "Ada", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, u.Role)

	_, err = s.CreateUser(ctx, "ada@example.com", "Other", models.RoleAdmin)
	assert.Error(t, err)

	got, err := s.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	ok, err := s.LinkStripeCustomer(ctx, "ada@example.com", "cus_1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.GetUserByStripeCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	ok, err = s.LinkStripeCustomer(ctx, "nobody@example.com", "cus_2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Returned values are copies.
	got.Email = "mutated@example.com"
	again, _ := s.GetUserByID(ctx, u.ID)
	assert.Equal(t, "Ada@Example.com", again.Email)
}

func TestUpsertInvoice_Replay(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.UpsertInvoice(ctx, upsert("in_1"))
	require.NoError(t, err)
	assert.Equal(t, "2500.00", first.Total.StringFixed(2))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), first.IssueDate)

	replay := upsert("in_1")
	replay.HostedInvoiceURL = ""
	replay.SyncedAt = replay.SyncedAt.Add(time.Hour)
	second, err := s.UpsertInvoice(ctx, replay)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.InvoiceCount())
	assert.Equal(t, first.HostedInvoiceURL, second.HostedInvoiceURL)
	assert.True(t, second.LastSyncedAt.Equal(replay.SyncedAt))

	_, err = s.UpsertInvoice(ctx, models.InvoiceUpsert{})
	assert.Error(t, err)
}

func TestUpsertInvoice_PaidIsSticky(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.UpsertInvoice(ctx, upsert("in_1"))
	require.NoError(t, err)

	ok, err := s.MarkInvoicePaid(ctx, "in_1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	inv, err := s.UpsertInvoice(ctx, upsert("in_1"))
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, inv.Status)

	ok, err = s.MarkInvoicePaid(ctx, "in_missing", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkInvoicePaidByID(ctx, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertInvoice_KeepsClientLink(t *testing.T) {
	s := New()
	ctx := context.Background()
	clientID := uuid.New()

	p := upsert("in_1")
	p.ClientID = &clientID
	_, err := s.UpsertInvoice(ctx, p)
	require.NoError(t, err)

	p.ClientID = nil
	inv, err := s.UpsertInvoice(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, inv.ClientID)
	assert.Equal(t, clientID, *inv.ClientID)
}

func TestUpsertPayment(t *testing.T) {
	s := New()
	ctx := context.Background()

	inv, err := s.UpsertInvoice(ctx, upsert("in_1"))
	require.NoError(t, err)

	paidAt := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	first, err := s.UpsertPayment(ctx, models.PaymentUpsert{
		InvoiceID:             inv.ID,
		StripePaymentIntentID: "pi_1",
		Amount:                decimal.New(250000, -2),
		Status:                models.PaymentSucceeded,
		PaymentMethod:         "card",
		PaidAt:                &paidAt,
	})
	require.NoError(t, err)

	second, err := s.UpsertPayment(ctx, models.PaymentUpsert{
		InvoiceID:             inv.ID,
		StripePaymentIntentID: "pi_1",
		Amount:                decimal.New(250000, -2),
		Status:                models.PaymentSucceeded,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.PaymentCount())
	require.NotNil(t, second.PaymentMethod)
	assert.Equal(t, "card", *second.PaymentMethod)
	require.NotNil(t, second.PaidAt)
	assert.True(t, second.PaidAt.Equal(paidAt))

	payments, err := s.ListInvoicePayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	_, err = s.UpsertPayment(ctx, models.PaymentUpsert{
		InvoiceID:             uuid.New(),
		StripePaymentIntentID: "pi_2",
		Status:                models.PaymentFailed,
	})
	assert.Error(t, err)
	assert.Equal(t, 1, s.PaymentCount())
}

func TestListInvoices(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, status := range []models.InvoiceStatus{models.InvoiceSent, models.InvoiceOverdue, models.InvoiceSent} {
		p := upsert(fmt.Sprintf("in_%d", i))
		p.IssueDate = time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		p.Status = status
		_, err := s.UpsertInvoice(ctx, p)
		require.NoError(t, err)
	}
	other := upsert("in_other")
	other.ClientEmail = "other@example.com"
	_, err := s.UpsertInvoice(ctx, other)
	require.NoError(t, err)

	all, err := s.ListInvoices(ctx, models.ListInvoicesParams{ClientEmail: "CLIENT@example.com"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "in_2", *all[0].StripeInvoiceID)

	sent, err := s.ListInvoices(ctx, models.ListInvoicesParams{Status: models.InvoiceSent, ClientEmail: "client@example.com"})
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	page, err := s.ListInvoices(ctx, models.ListInvoicesParams{ClientEmail: "client@example.com", Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "in_0", *page[0].StripeInvoiceID)

	empty, err := s.ListInvoices(ctx, models.ListInvoicesParams{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetNonExistent(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.GetUserByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, u)

	inv, err := s.GetInvoiceByStripeID(ctx, "in_missing")
	assert.NoError(t, err)
	assert.Nil(t, inv)

	inv, err = s.GetInvoiceByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, inv)

	pay, err := s.GetPaymentByIntentID(ctx, "pi_missing")
	assert.NoError(t, err)
	assert.Nil(t, pay)
}

func TestConcurrentUpserts(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertInvoice(ctx, upsert("in_shared"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.InvoiceCount())
}
