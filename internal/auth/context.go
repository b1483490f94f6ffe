package auth

import (
	"context"

	"github.com/kamilpajak/billsync/pkg/models"
)

type contextKey int

const (
	claimsKey contextKey = iota
	userKey
)

// WithClaims returns a new context carrying the verified claims.
func WithClaims(ctx context.Context, claims *KindeClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Claims returns the Kinde claims from context, or nil if not authenticated.
func Claims(ctx context.Context) *KindeClaims {
	claims, _ := ctx.Value(claimsKey).(*KindeClaims)
	return claims
}

// Subject returns the Kinde user ID from context, or empty string if not authenticated.
func Subject(ctx context.Context) string {
	if claims := Claims(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

// Email returns the user's verified email from context, or empty string if
// not authenticated or the email is unverified.
func Email(ctx context.Context) string {
	return Claims(ctx).VerifiedEmail()
}

// WithUser returns a new context carrying the local user record.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// User returns the local user attached to the context, or nil.
func User(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}
