package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/internal/memstore"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_pipeline"

type pipeline struct {
	store   *memstore.Store
	remote  map[string]*stripe.Invoice
	fetches int
	handler *WebhookHandler
	proc    *Processor
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	p := &pipeline{
		store:  memstore.New(),
		remote: make(map[string]*stripe.Invoice),
	}
	provider := &MockStripeProvider{
		GetInvoiceFn: func(_ context.Context, id string) (*stripe.Invoice, error) {
			p.fetches++
			inv, ok := p.remote[id]
			if !ok {
				return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "no such invoice"}
			}
			return inv, nil
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p.proc = NewProcessor(NewClientWithProvider(Config{}, provider), p.store, logger)
	p.handler = NewWebhookHandler(StaticSecret(testSecret), p.proc, logger)
	return p
}

func eventPayload(t *testing.T, id, eventType string, created int64, object any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    eventType,
		"created": created,
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

// deliver signs payload and posts it to the webhook handler.
func (p *pipeline) deliver(t *testing.T, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testSecret,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return rec
}

func openInvoice(id string) *stripe.Invoice {
	return &stripe.Invoice{
		ID:               id,
		Number:           "INV-0042",
		Status:           stripe.InvoiceStatusOpen,
		Currency:         stripe.CurrencyUSD,
		Total:            250000,
		Created:          time.Now().Add(-24 * time.Hour).Unix(),
		DueDate:          time.Now().Add(14 * 24 * time.Hour).Unix(),
		HostedInvoiceURL: "https://invoice.stripe.com/i/test",
		Customer:         &stripe.Customer{ID: "cus_42", Email: "client@example.com"},
	}
}

func TestPipeline_InvoiceSync(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	client, err := p.store.CreateUser(ctx, "Client@Example.com", "Client", models.RoleClient)
	require.NoError(t, err)
	p.remote["in_42"] = openInvoice("in_42")

	// The payload is stale; the re-fetched invoice wins.
	rec := p.deliver(t, eventPayload(t, "evt_1", "invoice.finalized", time.Now().Unix(),
		map[string]any{"id": "in_42", "object": "invoice", "total": 1}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())

	inv, err := p.store.GetInvoiceByStripeID(ctx, "in_42")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "2500.00", inv.Total.StringFixed(2))
	assert.Equal(t, models.InvoiceSent, inv.Status)
	assert.Equal(t, "INV-0042", inv.InvoiceNumber)
	assert.Equal(t, "client@example.com", inv.ClientEmail)
	assert.Equal(t, "usd", inv.Currency)
	require.NotNil(t, inv.ClientID)
	assert.Equal(t, client.ID, *inv.ClientID)
	require.NotNil(t, inv.HostedInvoiceURL)
	assert.Equal(t, "https://invoice.stripe.com/i/test", *inv.HostedInvoiceURL)
	assert.NotNil(t, inv.LastSyncedAt)
	assert.Equal(t, 1, p.fetches)
}

func TestPipeline_InvoiceReplayIsIdempotent(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.remote["in_42"] = openInvoice("in_42")

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	payload := eventPayload(t, "evt_1", "invoice.updated", first.Unix(), map[string]any{"id": "in_42"})

	p.proc.Reconciler.now = func() time.Time { return first }
	require.Equal(t, http.StatusOK, p.deliver(t, payload).Code)
	before, err := p.store.GetInvoiceByStripeID(ctx, "in_42")
	require.NoError(t, err)

	p.proc.Reconciler.now = func() time.Time { return second }
	require.Equal(t, http.StatusOK, p.deliver(t, payload).Code)
	after, err := p.store.GetInvoiceByStripeID(ctx, "in_42")
	require.NoError(t, err)

	assert.Equal(t, 1, p.store.InvoiceCount())
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Total.String(), after.Total.String())
	assert.Equal(t, before.Status, after.Status)
	require.NotNil(t, after.LastSyncedAt)
	assert.True(t, after.LastSyncedAt.Equal(second))
}

func TestPipeline_InvoiceFetchFailureReturns500(t *testing.T) {
	p := newPipeline(t)

	rec := p.deliver(t, eventPayload(t, "evt_1", "invoice.created", time.Now().Unix(), map[string]any{"id": "in_missing"}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, p.store.InvoiceCount())
}

func TestPipeline_InvoicePaid(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.remote["in_42"] = openInvoice("in_42")

	require.Equal(t, http.StatusOK, p.deliver(t,
		eventPayload(t, "evt_1", "invoice.finalized", time.Now().Unix(), map[string]any{"id": "in_42"})).Code)

	paidAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	rec := p.deliver(t, eventPayload(t, "evt_2", "invoice.paid", paidAt.Add(time.Minute).Unix(), map[string]any{
		"id":                 "in_42",
		"object":             "invoice",
		"status":             "paid",
		"amount_paid":        250000,
		"payment_intent":     "pi_42",
		"status_transitions": map[string]any{"paid_at": paidAt.Unix()},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	inv, err := p.store.GetInvoiceByStripeID(ctx, "in_42")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, inv.Status)

	pay, err := p.store.GetPaymentByIntentID(ctx, "pi_42")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.Equal(t, inv.ID, pay.InvoiceID)
	assert.Equal(t, models.PaymentSucceeded, pay.Status)
	assert.Equal(t, "2500.00", pay.Amount.StringFixed(2))
	require.NotNil(t, pay.PaidAt)
	assert.True(t, pay.PaidAt.Equal(paidAt))

	// A later reconciliation of a stale open invoice keeps it Paid.
	require.Equal(t, http.StatusOK, p.deliver(t,
		eventPayload(t, "evt_3", "invoice.updated", time.Now().Unix(), map[string]any{"id": "in_42"})).Code)
	inv, err = p.store.GetInvoiceByStripeID(ctx, "in_42")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, inv.Status)
}

func TestPipeline_InvoicePaidWithoutLocalRecord(t *testing.T) {
	p := newPipeline(t)

	rec := p.deliver(t, eventPayload(t, "evt_1", "invoice.paid", time.Now().Unix(), map[string]any{
		"id":             "in_unknown",
		"payment_intent": "pi_1",
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, p.store.InvoiceCount())
	assert.Equal(t, 0, p.store.PaymentCount())
}

func TestPipeline_PaymentIntentSucceeded(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.remote["in_42"] = openInvoice("in_42")
	inv, err := p.proc.Reconciler.SyncInvoice(ctx, "in_42")
	require.NoError(t, err)

	created := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	payload := eventPayload(t, "evt_pi", "payment_intent.succeeded", created.Unix(), map[string]any{
		"id":                   "pi_7",
		"object":               "payment_intent",
		"amount":               250000,
		"amount_received":      250000,
		"metadata":             map[string]string{"invoice_id": inv.ID.String()},
		"payment_method_types": []string{"card"},
	})

	require.Equal(t, http.StatusOK, p.deliver(t, payload).Code)
	require.Equal(t, http.StatusOK, p.deliver(t, payload).Code)

	assert.Equal(t, 1, p.store.PaymentCount())
	pay, err := p.store.GetPaymentByIntentID(ctx, "pi_7")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.Equal(t, models.PaymentSucceeded, pay.Status)
	assert.Equal(t, "2500.00", pay.Amount.StringFixed(2))
	require.NotNil(t, pay.PaymentMethod)
	assert.Equal(t, "card", *pay.PaymentMethod)
	require.NotNil(t, pay.PaidAt)
	assert.True(t, pay.PaidAt.Equal(created))

	got, err := p.store.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
}

func TestPipeline_PaymentIntentFailed(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.remote["in_42"] = openInvoice("in_42")
	inv, err := p.proc.Reconciler.SyncInvoice(ctx, "in_42")
	require.NoError(t, err)

	rec := p.deliver(t, eventPayload(t, "evt_pi", "payment_intent.payment_failed", time.Now().Unix(), map[string]any{
		"id":                   "pi_8",
		"amount":               1999,
		"metadata":             map[string]string{"invoice_id": inv.ID.String()},
		"payment_method_types": []string{"us_bank_account"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	pay, err := p.store.GetPaymentByIntentID(ctx, "pi_8")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.Equal(t, models.PaymentFailed, pay.Status)
	assert.Equal(t, "19.99", pay.Amount.StringFixed(2))
	assert.Nil(t, pay.PaidAt)

	got, err := p.store.GetInvoiceByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceSent, got.Status)
}

func TestPipeline_PaymentIntentWithoutLocalInvoice(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
	}{
		{"no metadata", nil},
		{"malformed id", map[string]string{"invoice_id": "not-a-uuid"}},
		{"unknown id", map[string]string{"invoice_id": uuid.NewString()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			obj := map[string]any{"id": "pi_1", "amount": 100}
			if tt.metadata != nil {
				obj["metadata"] = tt.metadata
			}

			rec := p.deliver(t, eventPayload(t, "evt_1", "payment_intent.succeeded", time.Now().Unix(), obj))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 0, p.store.PaymentCount())
		})
	}
}

func TestPipeline_PaymentIntentFallsBackToStripeInvoice(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	p.remote["in_42"] = openInvoice("in_42")
	inv, err := p.proc.Reconciler.SyncInvoice(ctx, "in_42")
	require.NoError(t, err)

	rec := p.deliver(t, eventPayload(t, "evt_1", "payment_intent.succeeded", time.Now().Unix(), map[string]any{
		"id":      "pi_9",
		"amount":  250000,
		"invoice": "in_42",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	pay, err := p.store.GetPaymentByIntentID(ctx, "pi_9")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.Equal(t, inv.ID, pay.InvoiceID)
}

func TestPipeline_CustomerLinking(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	_, err := p.store.CreateUser(ctx, "ada@example.com", "Ada", models.RoleClient)
	require.NoError(t, err)

	rec := p.deliver(t, eventPayload(t, "evt_1", "customer.created", time.Now().Unix(), map[string]any{
		"id":     "cus_ada",
		"object": "customer",
		"email":  "ADA@example.com",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := p.store.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.StripeCustomerID)
	assert.Equal(t, "cus_ada", *u.StripeCustomerID)

	linked, err := p.store.GetUserByStripeCustomerID(ctx, "cus_ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, linked.ID)
}

func TestPipeline_CustomerLinkingNoOp(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	u, err := p.store.CreateUser(ctx, "ada@example.com", "Ada", models.RoleClient)
	require.NoError(t, err)

	for _, obj := range []map[string]any{
		{"id": "cus_x", "email": "nobody@example.com"},
		{"id": "cus_y"},
	} {
		rec := p.deliver(t, eventPayload(t, "evt_1", "customer.updated", time.Now().Unix(), obj))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	got, err := p.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StripeCustomerID)
}

func TestPipeline_UnknownEventType(t *testing.T) {
	p := newPipeline(t)

	rec := p.deliver(t, eventPayload(t, "evt_1", "charge.refunded", time.Now().Unix(), map[string]any{"id": "ch_1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	assert.Equal(t, 0, p.store.InvoiceCount())
	assert.Equal(t, 0, p.store.PaymentCount())
	assert.Equal(t, 0, p.fetches)
}

func TestPipeline_BadSignatureWritesNothing(t *testing.T) {
	p := newPipeline(t)
	p.remote["in_42"] = openInvoice("in_42")

	payload := eventPayload(t, "evt_1", "invoice.created", time.Now().Unix(), map[string]any{"id": "in_42"})
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  "whsec_someone_else",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, p.store.InvoiceCount())
	assert.Equal(t, 0, p.fetches)
}
