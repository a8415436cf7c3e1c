package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/app"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
)

func newMembershipCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Membership administration",
	}
	cmd.AddCommand(newGrantCommand())
	return cmd
}

func newGrantCommand() *cobra.Command {
	var (
		memberID string
		days     int
		provider string
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Extend a member's coverage by a number of days",
		Long: `Extend a member's coverage. Remaining coverage is kept: the new period
starts at the current valid_until when it is still in the future.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			stores, err := app.OpenDBStores(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			svc, err := membership.NewService(stores.Memberships)
			if err != nil {
				return err
			}
			rec, err := svc.Renew(ctx, membership.RenewInput{
				MemberID:    memberID,
				Period:      time.Duration(days) * 24 * time.Hour,
				Provider:    provider,
				RenewalMode: mode,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "member %s: %s until %s\n",
				rec.MemberID, rec.Status, rec.ValidUntil.UTC().Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&memberID, "member", "", "member id (uuid)")
	cmd.Flags().IntVar(&days, "days", 30, "days of coverage to add")
	cmd.Flags().StringVar(&provider, "provider", membership.ProviderManual, "provider tag recorded on the membership")
	cmd.Flags().StringVar(&mode, "mode", membership.RenewalManual, "renewal mode tag")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}
