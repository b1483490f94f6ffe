package billsync

import (
	"fmt"
	"os"
	"strings"

	"github.com/kamilpajak/billsync/internal/database"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage portal users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create a portal user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var (
	userRole string
	userName string
)

func init() {
	userAddCmd.Flags().StringVar(&userRole, "role", models.RoleClient, "Role: admin or client")
	userAddCmd.Flags().StringVar(&userName, "name", "", "Full name")
	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(args[0])
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if userRole != models.RoleAdmin && userRole != models.RoleClient {
		return fmt.Errorf("invalid role %q", userRole)
	}

	cfg, _, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	if cfg.UseMemory() {
		return fmt.Errorf("users can only be added with DATA_SOURCE=postgres; use SEED_USERS with the memory store")
	}

	db, err := database.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	user, err := db.CreateUser(cmd.Context(), email, userName, userRole)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
