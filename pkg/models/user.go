package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants for portal users
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User is a portal user; clients are matched to Stripe customers by email
type User struct {
	ID               uuid.UUID `json:"id" yaml:"id"`
	Email            string    `json:"email" yaml:"email"`
	FullName         string    `json:"full_name" yaml:"full_name"`
	Role             string    `json:"role" yaml:"role"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty" yaml:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// IsAdmin reports whether the user may use the admin dashboard
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
