package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/pkg/metrics"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	Interval    time.Duration
	MetricsAddr string
}

func newWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cart controller running and retry unsynced lines",
		Long: `Keep the cart controller running until interrupted. Every interval the
lines still waiting for a server id are pushed again, and each cart change is
printed as one line. With --metrics-addr the sync metrics are served on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			app, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := app.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
					err = cerr
				}
			}()

			return watch(ctx, cmd.OutOrStdout(), app, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 30*time.Second, "how often unsynced lines are retried")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve sync metrics on this address, e.g. :9091")

	return cmd
}

// watch blocks until ctx is done
func watch(ctx context.Context, w io.Writer, app *App, opts *WatchOptions) error {
	if opts.Interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	var mu sync.Mutex
	printCart := func(c domain.Cart) {
		mu.Lock()
		defer mu.Unlock()
		state := app.Cart.SyncState()
		fmt.Fprintf(w, "%s items=%d total=%s pending=%d failed=%d\n",
			time.Now().UTC().Format(time.RFC3339), c.ItemCount(), c.GrandTotal(),
			len(state.Pending), len(state.Failed))
	}

	unsubscribe := app.Cart.Subscribe(printCart)
	defer unsubscribe()
	printCart(app.Cart.Snapshot())

	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler(app.Registry))
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !app.Cart.IsAuthenticated() || !app.Cart.SyncState().HasPending() {
				continue
			}
			if err := app.Cart.SyncNow(ctx); err != nil {
				app.logger.WarnContext(ctx, "sync retry failed", slog.String("error", err.Error()))
			}
		}
	}
}
