package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/internal/auth"
	"github.com/kamilpajak/billsync/pkg/models"
)

const maxPageSize = 200

var errNotAuthenticated = errors.New("not authenticated")

// currentUser resolves the local user for the authenticated token by its
// verified email. It returns (nil, nil) when the token carries no verified
// email or the email is unknown.
func (s *Server) currentUser(r *http.Request) (*models.User, error) {
	if u := auth.User(r.Context()); u != nil {
		return u, nil
	}
	claims := auth.Claims(r.Context())
	if claims == nil {
		return nil, errNotAuthenticated
	}
	email := claims.VerifiedEmail()
	if email == "" {
		return nil, nil
	}
	return s.store.GetUserByEmail(r.Context(), email)
}

// requireAdmin only lets through users whose local role is admin.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if errors.Is(err, errNotAuthenticated) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to load current user", "error", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)))
	}
}

// parseInvoiceID parses the invoice ID from the path parameter.
func parseInvoiceID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("invoiceID"))
}

// parseListParams reads limit, offset and status query parameters.
func parseListParams(r *http.Request) (models.ListInvoicesParams, error) {
	q := r.URL.Query()
	var params models.ListInvoicesParams

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, fmt.Errorf("invalid limit %q", v)
		}
		params.Limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return params, fmt.Errorf("invalid offset %q", v)
		}
		params.Offset = n
	}
	if v := q.Get("status"); v != "" {
		status := models.InvoiceStatus(v)
		if !status.Valid() {
			return params, fmt.Errorf("invalid status %q", v)
		}
		params.Status = status
	}
	return params, nil
}
