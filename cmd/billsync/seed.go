package billsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamilpajak/billsync/pkg/models"
)

type userCreator interface {
	CreateUser(ctx context.Context, email, fullName, role string) (*models.User, error)
}

// parseSeedUser splits an "email" or "email:role" entry.
func parseSeedUser(entry string) (email, role string, err error) {
	email, role, _ = strings.Cut(strings.TrimSpace(entry), ":")
	email = strings.TrimSpace(email)
	role = strings.TrimSpace(role)
	if role == "" {
		role = models.RoleClient
	}
	if !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("invalid seed user %q: missing email", entry)
	}
	if role != models.RoleAdmin && role != models.RoleClient {
		return "", "", fmt.Errorf("invalid seed user %q: unknown role %q", entry, role)
	}
	return email, role, nil
}

// seedUsers creates one user per entry.
func seedUsers(ctx context.Context, store userCreator, entries []string) error {
	for _, entry := range entries {
		email, role, err := parseSeedUser(entry)
		if err != nil {
			return err
		}
		if _, err := store.CreateUser(ctx, email, "", role); err != nil {
			return fmt.Errorf("seed user %s: %w", email, err)
		}
	}
	return nil
}
