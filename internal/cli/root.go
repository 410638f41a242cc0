package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ammerola/cartsync/internal/pkg/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	StorePath string
	Driver    string
	DeviceID  string
	APIURL    string
	Policy    string
	Format    string // "json" | "text"
	LogLevel  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// apply overrides the loaded configuration with the flags that were set
func (o *RootOptions) apply(cfg *config.Config) {
	if o.StorePath != "" {
		cfg.LocalStore.Path = o.StorePath
	}
	if o.Driver != "" {
		cfg.LocalStore.Driver = o.Driver
	}
	if o.APIURL != "" {
		cfg.Gateway.BaseURL = o.APIURL
	}
	if o.Policy != "" {
		cfg.Sync.LoginPolicy = o.Policy
	}
}

// NewRootCommand creates the root command for cartctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Inspect and edit the local shopping cart",
		Long: `cartctl keeps a shopping cart on this machine and reconciles it with the
cart API of the logged-in user. Guests edit the cart locally; after login every
change is pushed to the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.StorePath, "store-path", "", "SQLite file holding the cart and session (default CART_STORE_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "store", "", "cart snapshot backend: sqlite, redis or memory (default CART_STORE_DRIVER)")
	cmd.PersistentFlags().StringVar(&opts.DeviceID, "device", "default", "device id keying the redis snapshot")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "cart API base url (default CART_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.Policy, "login-policy", "", "guest cart handling on login: replace or merge")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newShowCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newRemoveCommand(opts),
		newSaveForLaterCommand(opts),
		newMoveToCartCommand(opts),
		newNoteCommand(opts),
		newClearCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newSyncCommand(opts),
		newReloadCommand(opts),
		newWatchCommand(opts),
	)

	return cmd
}

// run opens the app, runs fn and prints the resulting cart
func run(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fnErr := fn(ctx, app)
	if err := render(cmd.OutOrStdout(), opts.Format, app); err != nil {
		return err
	}
	return fnErr
}

// flush pushes pending local changes when a user is logged in. A failed push
// stays in the cart and is reported through the notifications.
func flush(ctx context.Context, app *App) {
	if !app.Cart.IsAuthenticated() {
		return
	}
	_ = app.Cart.SyncNow(ctx)
}
