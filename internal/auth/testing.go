package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// NewTestClaims creates a KindeClaims with the given subject and a verified
// email. This is primarily for testing purposes.
func NewTestClaims(subject, email string) *KindeClaims {
	return &KindeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Email:         email,
		EmailVerified: true,
	}
}

// StaticVerifier accepts exactly the tokens in its map.
// This is primarily for testing purposes.
type StaticVerifier map[string]*KindeClaims

// Verify returns the claims registered for token.
func (v StaticVerifier) Verify(token string) (*KindeClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}
