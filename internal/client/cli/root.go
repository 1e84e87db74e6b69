package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the syncbridge command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "syncbridge",
		Short:         "SyncBridge requirements client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive shell
  syncbridge

  # Try it against the built-in demo backend
  syncbridge mock-server --addr 127.0.0.1:8000 &
  syncbridge login --email client@example.com --password password
  syncbridge forms list
  syncbridge messages send --form 4 "Any update?"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive REPL.
			if len(args) != 0 {
				return cmd.Help()
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				sc := bufio.NewScanner(newLineReader(app.in))
				runREPL(ctx, app, app.status, sc)
				return nil
			})
		},
	}

	app.flags = config.BindFlags(cmd.PersistentFlags())
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newReactivateCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newFormsCmd(app))
	cmd.AddCommand(newMessagesCmd(app))
	cmd.AddCommand(newMockServerCmd(app))

	return cmd
}
