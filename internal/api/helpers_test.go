package api

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvoiceID(t *testing.T) {
	t.Run("valid UUID", func(t *testing.T) {
		expected := uuid.New()
		req := httptest.NewRequest("GET", "/invoices/"+expected.String(), nil)
		req.SetPathValue("invoiceID", expected.String())

		got, err := parseInvoiceID(req)

		assert.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("invalid UUID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices/in_123", nil)
		req.SetPathValue("invoiceID", "in_123")

		_, err := parseInvoiceID(req)

		assert.Error(t, err)
	})

	t.Run("empty value", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices/", nil)
		req.SetPathValue("invoiceID", "")

		_, err := parseInvoiceID(req)

		assert.Error(t, err)
	})
}

func TestParseListParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params, err := parseListParams(httptest.NewRequest("GET", "/invoices", nil))
		require.NoError(t, err)
		assert.Equal(t, models.ListInvoicesParams{}, params)
	})

	t.Run("all set", func(t *testing.T) {
		params, err := parseListParams(httptest.NewRequest("GET", "/invoices?limit=10&offset=20&status=Overdue", nil))
		require.NoError(t, err)
		assert.Equal(t, 10, params.Limit)
		assert.Equal(t, 20, params.Offset)
		assert.Equal(t, models.InvoiceOverdue, params.Status)
	})

	t.Run("limit is capped", func(t *testing.T) {
		params, err := parseListParams(httptest.NewRequest("GET", "/invoices?limit=100000", nil))
		require.NoError(t, err)
		assert.Equal(t, maxPageSize, params.Limit)
	})

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1", "status=paid"} {
		t.Run("rejects "+q, func(t *testing.T) {
			_, err := parseListParams(httptest.NewRequest("GET", "/invoices?"+q, nil))
			assert.Error(t, err)
		})
	}
}
