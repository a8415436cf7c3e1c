package cli

import (
	"github.com/spf13/cobra"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/app"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd, false) },
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd, true) },
		},
	)
	return cmd
}

func runMigrate(cmd *cobra.Command, status bool) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	if err := app.Migrate(commandContext(cmd), cfg, status); err != nil {
		return err
	}
	if !status {
		log.Info("db.migrated")
	}
	return nil
}
