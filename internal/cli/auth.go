package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/client"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("HELPDESK_PASSWORD")
			}
			server := opts.serverURL(nil)
			res, err := client.New(server).Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := saveSession(SessionFile{
				Server:    server,
				Token:     res.Token,
				Email:     res.Profile.Email,
				Role:      string(res.Profile.Role),
				ExpiresAt: res.ExpiresAt,
			}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", res.Profile.Email, res.Profile.Role)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "staff email")
	cmd.Flags().StringVar(&password, "password", "", "password (default $HELPDESK_PASSWORD)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, _, err := opts.sessionClient()
			if errors.Is(err, ErrNotSignedIn) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return err
			}
			if err != nil {
				return err
			}
			// An already revoked or expired token still clears locally.
			if err := api.Logout(cmd.Context()); err != nil && !client.IsStatus(err, http.StatusUnauthorized) {
				opts.log().Warn("server sign-out failed", zap.Error(err))
			}
			if err := clearSession(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return err
		},
	}
}

// describe turns client errors into CLI messages.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized && apiErr.Message == "Unauthorized" {
			return ErrNotSignedIn
		}
		return errors.New(apiErr.Message)
	}
	return err
}
