package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"franklink-backend/internal/config"
	"franklink-backend/internal/di"
	"franklink-backend/pkg/auth"
)

func tokenCmd() *cobra.Command {
	var (
		user  string
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			if cfg.Auth.Mode != config.AuthModeJWT {
				return fmt.Errorf("tokens can only be minted when auth.mode is jwt, not %s", cfg.Auth.Mode)
			}
			jc := di.JWTConfig(cfg)
			gen, err := auth.NewJWTGenerator(jc.SecretKey, jc.Issuer, jc.Audience, ttl)
			if err != nil {
				return err
			}
			token, err := gen.GenerateToken(user, email)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User id placed in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "Optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
