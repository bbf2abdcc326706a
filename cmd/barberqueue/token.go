package main

import (
	"fmt"

	"github.com/bissquit/barber-queue/internal/auth"
	"github.com/spf13/cobra"
)

func (c *cli) tokenCommand() *cobra.Command {
	var barberID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a barber access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authenticator, err := auth.NewAuthenticator(auth.Config{
				SecretKey:     c.config.JWT.SecretKey,
				TokenDuration: c.config.JWT.TokenDuration,
			})
			if err != nil {
				return err
			}

			token, err := authenticator.IssueToken(barberID)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&barberID, "barber", "", "barber id the token is issued for")
	_ = cmd.MarkFlagRequired("barber")

	return cmd
}
