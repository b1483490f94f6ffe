package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamilpajak/billsync/pkg/models"
)

const userColumns = `id, email, full_name, role, stripe_customer_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.Role,
		&user.StripeCustomerID, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user.
func (db *DB) CreateUser(ctx context.Context, email, fullName, role string) (*models.User, error) {
	return scanUser(db.pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, role)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		email, fullName, role,
	))
}

// GetUserByID retrieves a user by their ID.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	))
}

// GetUserByStripeCustomerID retrieves the user linked to a Stripe customer.
func (db *DB) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	return scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE stripe_customer_id = $1
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		customerID,
	))
}

// LinkStripeCustomer stores the Stripe customer ID on the user with the given
// email. It reports whether a user matched.
func (db *DB) LinkStripeCustomer(ctx context.Context, email, customerID string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = now()
		 WHERE lower(email) = lower($1)`,
		email, customerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
