package cli

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/app"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "QR token administration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <value>",
		Short: "Revoke a QR token so it never verifies again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			t, err := stores.Tokens.Revoke(ctx, args[0])
			if errors.Is(err, qrtoken.ErrNotFound) {
				return fmt.Errorf("token not found")
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked token of member %s (expires %s)\n",
				t.MemberID, t.ExpiresAt.UTC().Format(time.RFC3339))
			return err
		},
	})
	return cmd
}

func newLegacyTokenCommand() *cobra.Command {
	var (
		memberID string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "legacy-token",
		Short: "Signed link tokens accepted during the migration period",
	}
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Print a signed verification link for a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := identity.ParseMemberID(memberID)
			if err != nil {
				return err
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			secret, err := token.CheckSecret(cfg.LegacyJWTSecret, 0)
			if err != nil {
				return fmt.Errorf("BENEFICIOS_LEGACY_JWT_SECRET: %w", err)
			}
			raw, exp, err := token.NewLegacySigner(secret).Mint(id, ttl, time.Now().UTC())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s/verify?t=%s\nexpires_at=%s\n",
				app.PublicBaseURL(cfg), url.QueryEscape(raw), exp.Format(time.RFC3339))
			return err
		},
	}
	mint.Flags().StringVar(&memberID, "member", "", "member id (uuid)")
	mint.Flags().DurationVar(&ttl, "ttl", token.DefaultLegacyTTL, "token lifetime")
	_ = mint.MarkFlagRequired("member")
	cmd.AddCommand(mint)
	return cmd
}
