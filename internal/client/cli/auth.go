package cli

import (
	"context"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				var err error
				if email == "" {
					if email, err = GetRequiredText(app.in, "Email:", app.out); err != nil {
						return err
					}
				}
				if password == "" {
					if password, err = GetPassword(app.in, app.out); err != nil {
						return err
					}
				}
				return app.login(ctx, email, password)
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), app.Logout)
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), app.Whoami)
		},
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	var in models.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with a license key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Email == "" || in.DisplayName == "" || in.LicenseKey == "" {
				return app.withClient(cmd.Context(), app.Register)
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				if in.Password == "" {
					pw, err := GetPassword(app.in, app.out)
					if err != nil {
						return err
					}
					in.Password = pw
				}
				return app.register(ctx, in)
			})
		},
	}
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&in.LicenseKey, "license", "", "license key")
	return cmd
}

func newReactivateCmd(app *App) *cobra.Command {
	var in models.ReactivateInput

	cmd := &cobra.Command{
		Use:   "reactivate",
		Short: "Renew an expired account with a new license key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Email == "" || in.LicenseKey == "" {
				return app.withClient(cmd.Context(), app.Reactivate)
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				if in.Password == "" {
					pw, err := GetPassword(app.in, app.out)
					if err != nil {
						return err
					}
					in.Password = pw
				}
				return app.reactivate(ctx, in)
			})
		},
	}
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&in.LicenseKey, "license", "", "new license key")
	return cmd
}
