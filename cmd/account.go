package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/client"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/habedi/paydash/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func signInCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the payment service",
		Long:  "Sign in with your email and password. Missing values are prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, email, password)
			if err != nil {
				return err
			}
			if _, err := a.client.SignIn(cmd.Context(), creds); err != nil {
				return err
			}
			a.dropPlanCache(cmd.Context())
			cmd.Println("Signed in as", creds.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted for when empty)")
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := readCredentials(cmd, email, password)
			if err != nil {
				return err
			}
			user, session, err := a.client.Register(cmd.Context(), client.Registration{
				Email:    creds.Email,
				Password: creds.Password,
				Role:     strings.ToLower(strings.TrimSpace(role)),
			})
			if err != nil {
				return err
			}
			cmd.Printf("Registered %s as %s\n", user.Email, user.Role)
			if session != nil {
				a.dropPlanCache(cmd.Context())
				cmd.Println("You are now signed in.")
			} else {
				cmd.Println("Use `paydash signin` to sign in.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted for when empty)")
	cmd.Flags().StringVarP(&role, "role", "r", "user", "Account role [merchant, user, staff]")
	return cmd
}

// readCredentials prompts for whichever of email and password was not given as a flag.
func readCredentials(cmd *cobra.Command, email, password string) (client.Credentials, error) {
	p := newPrompter(cmd)
	var err error
	if email == "" {
		if email, err = p.input("Email: "); err != nil {
			return client.Credentials{}, err
		}
	}
	if password == "" {
		if password, err = p.password("Password: "); err != nil {
			return client.Credentials{}, err
		}
	}
	email = strings.TrimSpace(email)
	if !validateCredentials(email, password) {
		return client.Credentials{}, clierr.New(clierr.Validation, "Email and password cannot be empty.", nil)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return client.Credentials{}, clierr.New(clierr.Validation, err.Error(), err)
	}
	return client.Credentials{Email: email, Password: password}, nil
}

func signOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.SignOut(cmd.Context()); err != nil {
				return clierr.New(clierr.Internal, fmt.Sprintf("Failed to clear credentials: %v", err), err)
			}
			a.dropPlanCache(cmd.Context())
			cmd.Println("Signed out.")
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := auth.LoadSession(cmd.Context(), a.store)
			if err != nil {
				return clierr.New(clierr.Internal, err.Error(), err)
			}
			cmd.Println("Base URL:", a.cfg.BaseURL)
			cmd.Println("Store:", a.cfg.Store.Backend)
			if !session.SignedIn() {
				cmd.Println("Signed in: no")
				return nil
			}
			cmd.Println("Signed in: yes")

			claims, err := auth.InspectAccess(session.Access)
			if err != nil {
				log.Debug().Err(err).Msg("Access credential is not a readable JWT")
				return nil
			}
			if user := claims.User(); user != "" {
				cmd.Println("User ID:", user)
			}
			if exp := claims.Expiry(); !exp.IsZero() {
				now := time.Now()
				state := "valid for " + exp.Sub(now).Round(time.Second).String()
				if claims.Expired(now) {
					state = "expired, refreshed on next request"
				}
				cmd.Printf("Access expires: %s (%s)\n", exp.Local().Format(time.RFC3339), state)
			}
			return nil
		},
	}
}

func meCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println("ID:", user.ID)
			cmd.Println("Email:", user.Email)
			cmd.Println("Role:", user.Role)
			return nil
		},
	}
}

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the accounts visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				cmd.Println("No users found.")
				return nil
			}
			table := newTable(cmd, []string{"ID", "Email", "Role"})
			for _, u := range users {
				table.Append([]string{u.ID, u.Email, u.Role})
			}
			table.Render()
			return nil
		},
	})
	return cmd
}
