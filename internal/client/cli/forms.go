package cli

import (
	"context"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/spf13/cobra"
)

func newFormsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Requirement form commands",
	}

	cmd.AddCommand(newFormsListCmd(app))
	cmd.AddCommand(newFormsShowCmd(app))
	cmd.AddCommand(newFormsCreateCmd(app))
	cmd.AddCommand(newFormsDeleteCmd(app))
	cmd.AddCommand(newFormsStatusCmd(app))

	return cmd
}

func newFormsListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List forms visible to the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				return app.ListForms(ctx, page)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newFormsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <form-id>",
		Short: "Show a form with its functions and nonfunctions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				return app.ShowForm(ctx, id)
			})
		},
	}
}

func newFormsCreateCmd(app *App) *cobra.Command {
	var in models.FormInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a form (prompts when --title is not given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Title == "" {
				return app.withClient(cmd.Context(), app.CreateForm)
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				return app.createForm(ctx, in)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "form title")
	cmd.Flags().StringVar(&in.Message, "message", "", "description")
	cmd.Flags().StringVar(&in.Budget, "budget", "", "budget")
	cmd.Flags().StringVar(&in.ExpectedTime, "expected-time", "", "expected delivery time")
	cmd.Flags().StringVar(&in.Functions, "functions", "", "functional summary")
	cmd.Flags().StringVar(&in.Performance, "performance", "", "performance summary")
	return cmd
}

func newFormsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <form-id>",
		Short: "Delete a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				return app.DeleteForm(ctx, id)
			})
		},
	}
}

func newFormsStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <form-id> <status>",
		Short: "Request a status change (preview, available, processing, rewrite, end, error)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				return app.ChangeStatus(ctx, id, args[1])
			})
		},
	}
}
