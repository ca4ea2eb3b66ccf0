package main

import (
	"fmt"
	"time"

	"talentmarket-service/internal/config"
	"talentmarket-service/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token utilities",
	}

	var (
		identityID int64
		roles      []string
		ttl        time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token with the configured private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := jwt.LoadAndBuild(config.Load().JWT)
			if err != nil {
				return err
			}
			if keys.Generator == nil {
				return fmt.Errorf("JWT_PRIVATE_KEY_PATH is not set")
			}

			token, jti, err := issueToken(keys.Generator, identityID, roles, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "jti:", jti)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().Int64Var(&identityID, "identity-id", 0, "User id to embed in the token (required)")
	issueCmd.Flags().StringSliceVar(&roles, "role", []string{jwt.RoleUser}, "Role to grant; repeat for several")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to JWT_TTL")
	_ = issueCmd.MarkFlagRequired("identity-id")

	cmd.AddCommand(issueCmd)
	return cmd
}

func issueToken(gen *jwt.Generator, identityID int64, roles []string, ttl time.Duration) (string, string, error) {
	if identityID <= 0 {
		return "", "", fmt.Errorf("--identity-id must be positive")
	}
	for _, r := range roles {
		switch r {
		case jwt.RoleUser, jwt.RoleAdmin, jwt.RoleSuperAdmin:
		default:
			return "", "", fmt.Errorf("unknown role %q", r)
		}
	}
	return gen.Generate(identityID, roles, jwt.PurposeAccess, ttl)
}
