package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/services"
)

type itemView struct {
	ProductID    int64            `json:"product_id"`
	ServerItemID *int64           `json:"server_item_id,omitempty"`
	Name         string           `json:"name"`
	Quantity     int              `json:"quantity"`
	Unit         string           `json:"unit,omitempty"`
	UnitPrice    string           `json:"unit_price"`
	Subtotal     string           `json:"subtotal"`
	Notes        string           `json:"notes,omitempty"`
	State        domain.ItemState `json:"state"`
}

type cartView struct {
	UserID        int64                 `json:"user_id,omitempty"`
	Items         []itemView            `json:"items"`
	SavedForLater []itemView            `json:"saved_for_later"`
	Notes         string                `json:"notes,omitempty"`
	Total         string                `json:"total"`
	ShippingFee   string                `json:"shipping_fee"`
	GrandTotal    string                `json:"grand_total"`
	Sync          domain.SyncState      `json:"sync"`
	LastError     string                `json:"last_error,omitempty"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

func buildView(app *App) cartView {
	cart := app.Cart.Snapshot()
	state := app.Cart.SyncState()

	v := cartView{
		Items:         make([]itemView, 0, len(cart.Items)),
		SavedForLater: make([]itemView, 0, len(cart.SavedForLater)),
		Notes:         cart.Notes,
		Total:         cart.TotalAmount.String(),
		ShippingFee:   cart.ShippingFee.String(),
		GrandTotal:    cart.GrandTotal().String(),
		Sync:          state,
		Notifications: app.Notes.Drain(),
	}
	if s, userID := app.Observer.State(); s == services.SessionAuthenticated {
		v.UserID = userID
	}
	if state.LastError != nil {
		v.LastError = domain.UserMessage(state.LastError)
	}

	for _, item := range cart.Items {
		v.Items = append(v.Items, toItemView(item, app.Cart.ItemState(item.ProductID)))
	}
	for _, item := range cart.SavedForLater {
		v.SavedForLater = append(v.SavedForLater, toItemView(item, domain.ItemLocalOnly))
	}
	return v
}

func toItemView(item domain.CartItem, state domain.ItemState) itemView {
	return itemView{
		ProductID:    item.ProductID,
		ServerItemID: item.ServerItemID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		Unit:         item.Unit,
		UnitPrice:    item.UnitPrice.String(),
		Subtotal:     item.Subtotal().String(),
		Notes:        item.Notes,
		State:        state,
	}
}

func render(w io.Writer, format string, app *App) error {
	v := buildView(app)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return renderText(w, v)
}

func renderText(w io.Writer, v cartView) error {
	for _, n := range v.Notifications {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}

	if v.UserID > 0 {
		fmt.Fprintf(w, "User: %d\n", v.UserID)
	} else {
		fmt.Fprintln(w, "User: guest")
	}

	if len(v.Items) == 0 {
		fmt.Fprintln(w, "Cart is empty")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tPRICE\tSUBTOTAL\tSTATE")
		for _, item := range v.Items {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
				item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Subtotal, item.State)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(v.SavedForLater) > 0 {
		names := make([]string, 0, len(v.SavedForLater))
		for _, item := range v.SavedForLater {
			names = append(names, fmt.Sprintf("%s (%d)", item.Name, item.ProductID))
		}
		fmt.Fprintf(w, "Saved for later: %s\n", strings.Join(names, ", "))
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "Notes: %s\n", v.Notes)
	}

	fmt.Fprintf(w, "Total: %s  Shipping: %s  Grand total: %s\n", v.Total, v.ShippingFee, v.GrandTotal)

	if v.Sync.HasPending() {
		fmt.Fprintf(w, "Unsynced: %d pending, %d failed\n", len(v.Sync.Pending), len(v.Sync.Failed))
	}
	if v.LastError != "" {
		fmt.Fprintf(w, "Last sync error: %s\n", v.LastError)
	}
	return nil
}
