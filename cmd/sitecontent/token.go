package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sitecontent/internal/content/adapter/security"
	"sitecontent/internal/shared/errors"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	Long: `Issue an admin bearer token signed with ADMIN_JWT_SECRET. The token
authorizes the admin session routes and document writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Content.AdminJWTSecret == "" {
			return errors.NewConfigurationError("ADMIN_JWT_SECRET is not set")
		}
		tokens, err := security.NewTokenService(cfg.Content.AdminJWTSecret, cfg.Content.AdminJWTIssuer, cfg.Content.AdminTokenTTL)
		if err != nil {
			return err
		}
		return printToken(cmd.OutOrStdout(), tokens, tokenSubject)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Token subject")
}

func printToken(out io.Writer, tokens *security.TokenService, subject string) error {
	tok, err := tokens.GenerateToken(subject, security.RoleAdmin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
