// Package auth verifies Kinde-issued JWTs for the admin and portal API.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Config holds Kinde configuration.
type Config struct {
	Domain   string // e.g., "https://yourapp.kinde.com"
	Audience string // API audience identifier
}

// KindeClaims represents the JWT claims from Kinde.
type KindeClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}

// VerifiedEmail returns the email claim only when Kinde marked it verified.
// Local users and portal invoices are matched by email, so an unverified
// address must not identify anyone.
func (c *KindeClaims) VerifiedEmail() string {
	if c == nil || !c.EmailVerified {
		return ""
	}
	return c.Email
}

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*KindeClaims, error)
}

// Verifier handles JWT verification with JWKS.
type Verifier struct {
	jwks     keyfunc.Keyfunc
	audience string
	issuer   string
}

// NewVerifier creates a JWT verifier backed by the Kinde JWKS endpoint.
// The key set refreshes in the background until ctx is canceled.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	domain := strings.TrimSuffix(cfg.Domain, "/")
	jwksURL := domain + "/.well-known/jwks.json"

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS keyfunc: %w", err)
	}
	return NewVerifierWithKeyfunc(jwks, cfg), nil
}

// NewVerifierWithKeyfunc creates a verifier over an existing key set.
func NewVerifierWithKeyfunc(jwks keyfunc.Keyfunc, cfg Config) *Verifier {
	return &Verifier{
		jwks:     jwks,
		audience: cfg.Audience,
		issuer:   strings.TrimSuffix(cfg.Domain, "/"),
	}
}

// Verify validates a JWT token and returns the claims.
func (v *Verifier) Verify(tokenString string) (*KindeClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &KindeClaims{}, v.jwks.Keyfunc, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*KindeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and attaches the
// claims to the request context.
func Middleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				unauthorized(w, "missing token")
				return
			}
			if verifier == nil {
				unauthorized(w, "authentication not configured")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token", "error", err)
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized: " + reason})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
