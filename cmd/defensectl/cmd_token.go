package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zaqqye/defense_backend_v1/internal/middleware"
)

var (
	tokenUser string
	tokenRole string
	tokenName string
	tokenTTL  time.Duration
)

// tokenCmd mints a bearer token signed with JWT_SECRET, for local testing
// without the identity provider.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			return errors.New("refusing to mint tokens in production")
		}
		if !middleware.IsValidRole(tokenRole) {
			return errors.Errorf("unknown role %q", tokenRole)
		}
		tok, err := middleware.IssueToken(cfg.JWTSecret,
			middleware.Principal{ID: tokenUser, Role: tokenRole, Name: tokenName}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", middleware.RoleStudent, "admin, supervisor, student, council or company")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
