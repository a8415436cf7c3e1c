// Package cli holds the cobra commands of the beneficios binary.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/app"
)

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "beneficios",
		Short:         "Membership card QR verification service",
		Long:          `beneficios issues short-lived QR credentials to members with an active membership and verifies them at the door.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newMembershipCommand(),
		newTokenCommand(),
		newLegacyTokenCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.Serve(ctx)
		},
	}
}

// loadRuntime parses the configuration and builds the process logger.
func loadRuntime() (app.Config, app.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, app.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
