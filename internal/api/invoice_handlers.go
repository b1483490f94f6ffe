package api

import (
	"net/http"
	"strings"

	"github.com/kamilpajak/billsync/internal/auth"
	"github.com/kamilpajak/billsync/pkg/models"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.ClientEmail = r.URL.Query().Get("email")

	invoices, err := s.store.ListInvoices(r.Context(), params)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": nonNil(invoices)})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	invoice, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}

	payments, err := s.store.ListInvoicePayments(r.Context(), invoice.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list payments", "invoice_id", invoice.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": nonNil(payments)})
}

// handleSyncInvoice re-reads an invoice from Stripe. The path accepts either
// a local invoice ID or a Stripe invoice ID ("in_...").
func (s *Server) handleSyncInvoice(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "stripe sync not configured")
		return
	}

	stripeID := r.PathValue("invoiceID")
	if !strings.HasPrefix(stripeID, "in_") {
		invoice, ok := s.loadInvoice(w, r)
		if !ok {
			return
		}
		if invoice.StripeInvoiceID == nil {
			writeError(w, http.StatusConflict, "invoice is not linked to stripe")
			return
		}
		stripeID = *invoice.StripeInvoiceID
	}

	invoice, err := s.syncer.SyncInvoice(r.Context(), stripeID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "manual invoice sync failed",
			"stripe_invoice_id", stripeID,
			"requested_by", auth.Email(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "failed to sync invoice from stripe")
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

// handlePortalInvoices lists the caller's own invoices, matched by token email.
func (s *Server) handlePortalInvoices(w http.ResponseWriter, r *http.Request) {
	email := auth.Email(r.Context())
	if email == "" {
		writeError(w, http.StatusForbidden, "verified email not available in token")
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.ClientEmail = email

	invoices, err := s.store.ListInvoices(r.Context(), params)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list portal invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": nonNil(invoices)})
}

func (s *Server) loadInvoice(w http.ResponseWriter, r *http.Request) (*models.Invoice, bool) {
	id, err := parseInvoiceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoice ID")
		return nil, false
	}

	invoice, err := s.store.GetInvoiceByID(r.Context(), id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load invoice", "invoice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	if invoice == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return nil, false
	}
	return invoice, true
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
