package api

import (
	"errors"
	"net/http"

	"github.com/kamilpajak/billsync/internal/auth"
)

// handleGetMe returns the caller's token identity and local user record.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.Claims(r.Context())

	user, err := s.currentUser(r)
	if errors.Is(err, errNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no billing account for this email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 user.ID,
		"kinde_id":           claims.Subject,
		"email":              user.Email,
		"full_name":          user.FullName,
		"role":               user.Role,
		"stripe_customer_id": user.StripeCustomerID,
		"created_at":         user.CreatedAt,
	})
}
