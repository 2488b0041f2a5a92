package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"parkgate/services/terminal/internal/apperr"
)

// credentials come from flags first, then TERMINAL_USERNAME / TERMINAL_PASSWORD.
type credentials struct {
	username string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "operator username (or TERMINAL_USERNAME)")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "operator password (or TERMINAL_PASSWORD)")
}

func (c credentials) resolve() credentials {
	if c.username == "" {
		c.username = os.Getenv("TERMINAL_USERNAME")
	}
	if c.password == "" {
		c.password = os.Getenv("TERMINAL_PASSWORD")
	}
	return c
}

// login authenticates against the authority, stores the session and checks the role.
func login(ctx context.Context, rt *runtime, creds credentials, role string) error {
	creds = creds.resolve()
	if creds.username == "" || creds.password == "" {
		return apperr.Validation("login", "username and password are required")
	}
	resp, err := rt.app.Authority.Login(ctx, creds.username, creds.password)
	if err != nil {
		return err
	}
	rt.app.Session.Set(resp)
	if role == "" {
		return nil
	}
	_, err = rt.app.Session.RequireRole(role)
	return err
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check operator credentials against the authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := login(cmd.Context(), rt, creds, ""); err != nil {
				return err
			}
			user, _ := rt.app.Session.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "logged in as %s (%s), role %s\n", user.Username, user.Name, user.Role)
			if exp := rt.app.Session.ExpiresAt(); !exp.IsZero() {
				fmt.Fprintf(out, "token expires %s\n", exp.In(rt.cfg.Location()).Format(time.RFC1123))
			}
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}
