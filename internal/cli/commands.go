package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ammerola/cartsync/internal/core/domain"
)

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func parseQuantity(arg string) (int, error) {
	q, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", arg)
	}
	return q, nil
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart and its sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(context.Context, *App) error { return nil })
		},
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	Name          string
	Price         string
	DiscountPrice string
	Unit          string
	Image         string
	Notes         string
}

func newAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{}

	cmd := &cobra.Command{
		Use:   "add <product-id> <quantity>",
		Short: "Add a product to the cart",
		Long: `Add a product to the cart. Adding a product already in the cart raises the
quantity of its line. Quantities are clamped to 1..99.

Example:
  cartctl add 12 2 --name "Jasmine Rice 5kg" --price 95000 --unit bag`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			snapshot, err := opts.snapshot(productID)
			if err != nil {
				return err
			}

			return run(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if _, err := app.Cart.AddItem(ctx, snapshot, quantity, opts.Notes); err != nil {
					return err
				}
				flush(ctx, app)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product name")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit list price")
	cmd.Flags().StringVar(&opts.DiscountPrice, "discount-price", "", "discounted unit price")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "sales unit, e.g. kg or box")
	cmd.Flags().StringVar(&opts.Image, "image", "", "image reference")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes for this line")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func (o *AddOptions) snapshot(productID int64) (domain.ProductSnapshot, error) {
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("invalid --price %q", o.Price)
	}
	s := domain.ProductSnapshot{
		ProductID: productID,
		Name:      o.Name,
		Price:     price,
		ImageRef:  o.Image,
		Unit:      o.Unit,
	}
	if o.DiscountPrice != "" {
		d, err := decimal.NewFromString(o.DiscountPrice)
		if err != nil {
			return domain.ProductSnapshot{}, fmt.Errorf("invalid --discount-price %q", o.DiscountPrice)
		}
		s.DiscountPrice = &d
	}
	return s, nil
}

func newUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				if err := app.Cart.UpdateQuantity(ctx, productID, quantity); err != nil {
					return err
				}
				flush(ctx, app)
				return nil
			})
		},
	}
}

// productCommand builds a command acting on a single cart line
func productCommand(opts *RootOptions, use, short string, fn func(ctx context.Context, app *App, productID int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				return fn(ctx, app, productID)
			})
		},
	}
}

func newRemoveCommand(opts *RootOptions) *cobra.Command {
	return productCommand(opts, "remove", "Remove a line from the cart",
		func(ctx context.Context, app *App, productID int64) error {
			return app.Cart.RemoveItem(ctx, productID)
		})
}

func newSaveForLaterCommand(opts *RootOptions) *cobra.Command {
	return productCommand(opts, "save-for-later", "Move a line to the saved-for-later list",
		func(ctx context.Context, app *App, productID int64) error {
			return app.Cart.SaveForLater(ctx, productID)
		})
}

func newMoveToCartCommand(opts *RootOptions) *cobra.Command {
	return productCommand(opts, "move-to-cart", "Move a saved line back into the cart",
		func(ctx context.Context, app *App, productID int64) error {
			if err := app.Cart.MoveToCart(ctx, productID); err != nil {
				return err
			}
			flush(ctx, app)
			return nil
		})
}

func newNoteCommand(opts *RootOptions) *cobra.Command {
	var item int64

	cmd := &cobra.Command{
		Use:   "note <text>",
		Short: "Set the notes of the cart or of one line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				if item > 0 {
					return app.Cart.UpdateItemNotes(ctx, item, args[0])
				}
				return app.Cart.SetCartNotes(ctx, args[0])
			})
		},
	}
	cmd.Flags().Int64Var(&item, "item", 0, "product id of the line to annotate")
	return cmd
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				return app.Cart.ClearCart(ctx)
			})
		},
	}
}

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Log in and load the user's server cart",
		Long: `Log in and load the user's server cart. With the replace policy the guest
cart is discarded; with merge, guest lines are kept and pushed to the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				if err := app.Login(ctx, userID, token); err != nil {
					return err
				}
				flush(ctx, app)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token of the user")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the local cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				return app.Observer.Logout(ctx)
			})
		},
	}
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced lines to the server now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				if !app.Cart.IsAuthenticated() {
					return fmt.Errorf("not logged in")
				}
				return app.Cart.SyncNow(ctx)
			})
		},
	}
}

func newReloadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Replace the local cart with the server cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, app *App) error {
				return app.Cart.ReloadFromServer(ctx)
			})
		},
	}
}
