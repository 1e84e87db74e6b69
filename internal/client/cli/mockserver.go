package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/fakeapi"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newMockServerCmd(app *App) *cobra.Command {
	var addr string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory backend with demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []fakeapi.Option
			if !quiet {
				opts = append(opts, fakeapi.WithLogger(cmd.ErrOrStderr()))
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "mock backend on http://%s\n", ln.Addr())
			fmt.Fprintf(app.out, "  client:    %s / %s\n", fakeapi.DemoClientEmail, fakeapi.DemoPassword)
			fmt.Fprintf(app.out, "  developer: %s / %s\n", fakeapi.DemoDeveloperEmail, fakeapi.DemoPassword)
			fmt.Fprintf(app.out, "  license:   %s\n", fakeapi.DemoLicenseKey)

			return serve(ctx, ln, fakeapi.NewDemo(opts...).Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not log requests")
	return cmd
}

// serve runs h on ln until ctx ends, then shuts the server down.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
