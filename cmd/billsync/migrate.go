package billsync

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kamilpajak/billsync/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	if cfg.UseMemory() {
		return fmt.Errorf("migrations need DATA_SOURCE=postgres")
	}

	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}

	switch direction {
	case "down":
		err = database.MigrateDown(cfg.DatabaseURL)
	default:
		err = database.Migrate(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "migrations %s complete\n", direction)
	return nil
}
