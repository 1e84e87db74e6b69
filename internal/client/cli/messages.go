package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/spf13/cobra"
)

// threadFlags selects a thread on the command line.
type threadFlags struct {
	formID        int64
	functionID    int64
	nonfunctionID int64
}

func (f *threadFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&f.formID, "form", "f", 0, "form id")
	cmd.Flags().Int64Var(&f.functionID, "function", 0, "function id (function thread)")
	cmd.Flags().Int64Var(&f.nonfunctionID, "nonfunction", 0, "nonfunction id (nonfunction thread)")
}

func (f *threadFlags) key() models.ThreadKey {
	return models.ThreadKey{FormID: f.formID, FunctionID: f.functionID, NonfunctionID: f.nonfunctionID}
}

func newMessagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "Thread message commands",
	}

	cmd.AddCommand(newMessagesListCmd(app))
	cmd.AddCommand(newMessagesSendCmd(app))
	cmd.AddCommand(newMessagesWatchCmd(app))
	cmd.AddCommand(newMessagesBlockCmd(app))

	return cmd
}

func newMessagesListCmd(app *App) *cobra.Command {
	var tf threadFlags
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a page of a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				if page <= 1 {
					return app.OpenThread(ctx, tf.key())
				}
				if err := app.thread.Bind(ctx, tf.key()); err != nil {
					return err
				}
				return app.ListMessages(ctx, page)
			})
		},
	}
	tf.bind(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newMessagesSendCmd(app *App) *cobra.Command {
	var tf threadFlags
	var attach string

	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Post a message, optionally with a file attached",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				if err := app.thread.Bind(ctx, tf.key()); err != nil {
					return err
				}
				if attach != "" {
					return app.Attach(ctx, attach, text)
				}
				return app.Send(ctx, text)
			})
		},
	}
	tf.bind(cmd)
	cmd.Flags().StringVar(&attach, "attach", "", "file to attach (10 MiB max)")
	return cmd
}

func newMessagesWatchCmd(app *App) *cobra.Command {
	var tf threadFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a thread live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return app.withClient(ctx, func(ctx context.Context) error {
				if err := app.OpenThread(ctx, tf.key()); err != nil {
					return err
				}
				err := app.Watch(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	tf.bind(cmd)
	return cmd
}

func newMessagesBlockCmd(app *App) *cobra.Command {
	var tf threadFlags

	cmd := &cobra.Command{
		Use:   "block <block-id> normal|urgent",
		Short: "Flag a discussion block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withClient(cmd.Context(), func(ctx context.Context) error {
				if err := app.thread.Bind(ctx, tf.key()); err != nil {
					return err
				}
				return app.SetBlockStatus(ctx, id, args[1])
			})
		},
	}
	tf.bind(cmd)
	return cmd
}
