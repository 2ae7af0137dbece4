// Command devtoken prints a signed access token for local testing of the announcements API.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"announcements/config"
	"announcements/internal/adapters/auth"
	"announcements/internal/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(auth.NewJWTIssuer(cfg.JWTSecret), os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(issuer domain.TokenIssuer, out io.Writer) *cobra.Command {
	var (
		userID string
		email  string
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "issue an access token",
		Long:  "devtoken signs a token with JWT_SECRET for calling the API as the given user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			token, err := issuer.Issue(userID, email, roles, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (UUID) to put in the token subject")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringSliceVar(&roles, "role", []string{domain.RoleMember}, "role claims, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
