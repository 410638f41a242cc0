package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/handlers"
	"github.com/ammerola/cartsync/internal/handlers/middleware"
	"github.com/ammerola/cartsync/test/helpers"
)

const testToken = "token-7"

// fakeCartAPI is an in-memory cart API for a single user
type fakeCartAPI struct {
	mu     sync.Mutex
	nextID int64
	lines  map[int64]*domain.CartLine
}

var _ ports.CartAPIService = (*fakeCartAPI)(nil)

func newFakeCartAPI() *fakeCartAPI {
	return &fakeCartAPI{nextID: 500, lines: make(map[int64]*domain.CartLine)}
}

func (f *fakeCartAPI) seed(productID int64, quantity int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.lines[f.nextID] = &domain.CartLine{
		ID: f.nextID, UserID: 7, ProductID: productID, Quantity: quantity,
		Product: domain.Product{ID: productID, Name: fmt.Sprintf("Server %d", productID), Price: decimal.NewFromInt(1000), Unit: "pcs", Active: true},
	}
	return f.nextID
}

func (f *fakeCartAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func (f *fakeCartAPI) List(_ context.Context, _ int64) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CartLine, 0, len(f.lines))
	for _, l := range f.lines {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeCartAPI) Add(_ context.Context, userID int64, req ports.AddCartItemRequest) (*domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines {
		if l.ProductID == req.ProductID {
			l.Quantity += req.Quantity
			line := *l
			return &line, nil
		}
	}
	f.nextID++
	line := &domain.CartLine{
		ID: f.nextID, UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity, Notes: req.Notes,
		Product: domain.Product{ID: req.ProductID, Name: fmt.Sprintf("Server %d", req.ProductID), Price: decimal.NewFromInt(1000), Active: true},
	}
	f.lines[line.ID] = line
	out := *line
	return &out, nil
}

func (f *fakeCartAPI) UpdateQuantity(_ context.Context, _, itemID int64, quantity int) (*domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lines[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	l.Quantity = quantity
	out := *l
	return &out, nil
}

func (f *fakeCartAPI) Remove(_ context.Context, _, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lines[itemID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.lines, itemID)
	return nil
}

func (f *fakeCartAPI) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token != testToken {
		return nil, domain.ErrAuthExpired
	}
	return &domain.User{ID: 7}, nil
}

type cliEnv struct {
	api       *fakeCartAPI
	server    *httptest.Server
	storePath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("CART_RETRY_BASE_DELAY", "0s")
	t.Setenv("CART_STORE_DRIVER", "sqlite")
	t.Setenv("CART_LOGIN_POLICY", "replace")

	api := newFakeCartAPI()
	mux := http.NewServeMux()
	handlers.NewCartHandler(api, helpers.TestLogger()).
		Register(mux, middleware.Authenticate(api, helpers.TestLogger()))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &cliEnv{
		api:       api,
		server:    server,
		storePath: filepath.Join(t.TempDir(), "cart.db"),
	}
}

// exec runs one cartctl invocation and decodes its JSON output
func (e *cliEnv) exec(t *testing.T, args ...string) (cartView, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--store-path", e.storePath,
		"--api-url", e.server.URL,
		"--format", "json",
		"--log-level", "error",
	}, args...))

	err := cmd.Execute()

	var view cartView
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &view), out.String())
	}
	return view, err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cartctl", cmd.Use)

	commands := []string{"show", "add", "update", "remove", "save-for-later", "move-to-cart",
		"note", "clear", "login", "logout", "sync", "reload", "watch"}
	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "show"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "invalid format")
}

func TestGuestCartPersistsAcrossInvocations(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "add", "1", "2", "--name", "Jasmine Rice", "--price", "95000", "--unit", "bag")
	require.NoError(t, err)
	_, err = env.exec(t, "add", "1", "1", "--name", "Jasmine Rice", "--price", "95000")
	require.NoError(t, err)

	view, err := env.exec(t, "show")
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, domain.ItemLocalOnly, view.Items[0].State)
	assert.Equal(t, "285000", view.Total)
	assert.Equal(t, "0", view.ShippingFee)
	assert.Zero(t, view.UserID)
	assert.Zero(t, env.api.count())
}

func TestAddRequiresProductFlags(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "add", "1", "2", "--name", "Rice")
	assert.Error(t, err)

	_, err = env.exec(t, "add", "x", "2", "--name", "Rice", "--price", "10")
	assert.ErrorContains(t, err, "invalid product id")
}

func TestLoginReplaceLoadsServerCart(t *testing.T) {
	env := newCLIEnv(t)
	env.api.seed(9, 4)

	_, err := env.exec(t, "add", "1", "1", "--name", "Guest Item", "--price", "5000")
	require.NoError(t, err)

	view, err := env.exec(t, "login", "7", "--token", testToken)
	require.NoError(t, err)

	assert.Equal(t, int64(7), view.UserID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(9), view.Items[0].ProductID)
	assert.Equal(t, domain.ItemLinked, view.Items[0].State)
	assert.Equal(t, 1, env.api.count())

	// the session survives into the next invocation
	view, err = env.exec(t, "show")
	require.NoError(t, err)
	assert.Equal(t, int64(7), view.UserID)
}

func TestLoginMergePushesGuestLines(t *testing.T) {
	env := newCLIEnv(t)
	env.api.seed(9, 4)

	_, err := env.exec(t, "add", "1", "2", "--name", "Guest Item", "--price", "5000")
	require.NoError(t, err)

	view, err := env.exec(t, "--login-policy", "merge", "login", "7", "--token", testToken)
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	for _, item := range view.Items {
		assert.Equal(t, domain.ItemLinked, item.State, item.Name)
	}
	assert.Empty(t, view.Sync.Pending)
	assert.Equal(t, 2, env.api.count())
}

func TestAuthenticatedMutationsReachServer(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "login", "7", "--token", testToken)
	require.NoError(t, err)

	view, err := env.exec(t, "add", "3", "2", "--name", "Green Tea", "--price", "48000")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.NotNil(t, view.Items[0].ServerItemID)
	serverID := *view.Items[0].ServerItemID

	_, err = env.exec(t, "update", "3", "5")
	require.NoError(t, err)
	lines, _ := env.api.List(context.Background(), 7)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, serverID, lines[0].ID)

	view, err = env.exec(t, "remove", "3")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, env.api.count())
}

func TestLoginWithBadTokenStaysGuest(t *testing.T) {
	env := newCLIEnv(t)

	view, err := env.exec(t, "login", "7", "--token", "wrong")
	require.Error(t, err)
	assert.Zero(t, view.UserID)

	view, err = env.exec(t, "show")
	require.NoError(t, err)
	assert.Zero(t, view.UserID)
}

func TestLogoutClearsCart(t *testing.T) {
	env := newCLIEnv(t)
	env.api.seed(9, 1)

	_, err := env.exec(t, "login", "7", "--token", testToken)
	require.NoError(t, err)

	view, err := env.exec(t, "logout")
	require.NoError(t, err)
	assert.Zero(t, view.UserID)
	assert.Empty(t, view.Items)

	// server cart is untouched
	assert.Equal(t, 1, env.api.count())
}

func TestSaveForLaterAndNotes(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "add", "1", "1", "--name", "Coffee", "--price", "210000")
	require.NoError(t, err)

	view, err := env.exec(t, "save-for-later", "1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	require.Len(t, view.SavedForLater, 1)

	view, err = env.exec(t, "move-to-cart", "1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	view, err = env.exec(t, "note", "leave at the door")
	require.NoError(t, err)
	assert.Equal(t, "leave at the door", view.Notes)

	view, err = env.exec(t, "note", "--item", "1", "ground please")
	require.NoError(t, err)
	assert.Equal(t, "ground please", view.Items[0].Notes)

	_, err = env.exec(t, "remove", "42")
	assert.ErrorIs(t, err, domain.ErrItemNotInCart)
}

func TestSyncRequiresLogin(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "sync")
	assert.ErrorContains(t, err, "not logged in")
}

func TestClearAsGuest(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec(t, "add", "1", "1", "--name", "Noodles", "--price", "18000")
	require.NoError(t, err)

	view, err := env.exec(t, "clear")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0", view.Total)
}

func TestRenderText(t *testing.T) {
	var out bytes.Buffer
	err := renderText(&out, cartView{
		UserID: 7,
		Items: []itemView{
			{ProductID: 1, Name: "Rice", Quantity: 2, UnitPrice: "1000", Subtotal: "2000", State: domain.ItemPendingSync},
		},
		Total:       "2000",
		ShippingFee: "20000",
		GrandTotal:  "22000",
		Sync:        domain.SyncState{Pending: []int64{1}},
		Notifications: []domain.Notification{
			{Level: domain.LevelError, Message: "Rice could not be synced"},
		},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "[error] Rice could not be synced")
	assert.Contains(t, text, "User: 7")
	assert.Contains(t, text, "pending_sync")
	assert.Contains(t, text, "Grand total: 22000")
	assert.Contains(t, text, "Unsynced: 1 pending, 0 failed")
}

func TestWatchRetriesPendingLines(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("CART_DEBOUNCE_WINDOW", "1h")

	_, err := env.exec(t, "login", "7", "--token", testToken)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := openApp(ctx, &RootOptions{
		StorePath: env.storePath,
		APIURL:    env.server.URL,
		DeviceID:  "default",
		LogLevel:  "error",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	_, err = app.Cart.AddItem(ctx, domain.ProductSnapshot{
		ProductID: 4,
		Name:      "Green Tea",
		Price:     decimal.NewFromInt(48000),
	}, 1, "")
	require.NoError(t, err)
	require.Equal(t, domain.ItemPendingSync, app.Cart.ItemState(4))

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, &out, app, &WatchOptions{Interval: 10 * time.Millisecond})
	}()

	require.Eventually(t, func() bool { return env.api.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, domain.ItemLinked, app.Cart.ItemState(4))
	assert.Contains(t, out.String(), "items=1")

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var linked float64
	for _, f := range families {
		if f.GetName() == "cartsync_sync_items_linked_total" {
			linked = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), linked)
}

func TestWatchRejectsInterval(t *testing.T) {
	err := watch(context.Background(), &bytes.Buffer{}, nil, &WatchOptions{})
	assert.ErrorContains(t, err, "--interval must be positive")
}
