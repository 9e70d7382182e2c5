package main

import (
	"fmt"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/middleware"
	"github.com/EcrTech/FL-sub005/internal/domain/access"

	"github.com/spf13/cobra"
)

// tokenCmd signs a bearer token with JWT_SECRET for local testing.
func tokenCmd() *cobra.Command {
	var (
		user, org, role string
		ttl             time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			switch access.Role(role) {
			case access.RoleAdmin, access.RoleCreditManager, access.RoleAgent, access.RoleViewer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			tok, err := middleware.IssueToken(cfg.JWTSecret, access.Principal{UserID: user, OrgID: org, Role: access.Role(role)}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&org, "org", "", "organization id")
	cmd.Flags().StringVar(&role, "role", string(access.RoleAgent), "admin, credit_manager, agent or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
