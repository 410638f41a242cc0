package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/cartsync/internal/adapters/httpgateway"
	"github.com/ammerola/cartsync/internal/adapters/localstore"
	"github.com/ammerola/cartsync/internal/adapters/notify"
	redis_a "github.com/ammerola/cartsync/internal/adapters/redis_adapter"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/core/services"
	"github.com/ammerola/cartsync/internal/pkg/config"
	"github.com/ammerola/cartsync/internal/pkg/logger"
	"github.com/ammerola/cartsync/internal/pkg/metrics"
)

const sessionKey = "session"

// session is the login state kept next to the cart snapshot
type session struct {
	UserID     int64     `json:"user_id"`
	Token      string    `json:"token"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// App is the cart controller of one cartctl invocation, restored from disk
type App struct {
	Cart     *services.CartService
	Observer *services.SessionObserver
	Notes    *notify.Recorder
	Registry *prometheus.Registry

	cfg      *config.Config
	db       *localstore.SQLite
	redis    *redis.Client
	session  session
	deviceID string
	logger   *slog.Logger
}

// Token implements httpgateway.CredentialSource with the stored session token
func (a *App) Token(context.Context) (string, error) {
	if a.session.Token == "" {
		return "", domain.ErrAuthExpired
	}
	return a.session.Token, nil
}

func openApp(ctx context.Context, opts *RootOptions) (*App, error) {
	l := logger.SetupCLILogger(opts.LogLevel).Logger

	cfg, err := config.Load(l)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	opts.apply(cfg)

	db, err := localstore.OpenSQLite(cfg.LocalStore.Path, l)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	app := &App{
		Notes:    notify.NewRecorder(),
		Registry: prometheus.NewRegistry(),
		cfg:      cfg,
		db:       db,
		deviceID: opts.DeviceID,
		logger:   l,
	}
	if err := app.loadSession(ctx); err != nil {
		app.close()
		return nil, err
	}

	store, err := app.cartStore(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	gateway, err := httpgateway.New(httpgateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		Timeout:   cfg.Gateway.Timeout,
		RateLimit: cfg.Gateway.RateLimit,
		RateBurst: cfg.Gateway.RateBurst,
		UserAgent: cfg.Gateway.UserAgent,
	}, app, l)
	if err != nil {
		app.close()
		return nil, err
	}

	policy, err := services.ParseLoginPolicy(cfg.Sync.LoginPolicy)
	if err != nil {
		app.close()
		return nil, err
	}

	app.Cart = services.NewCartService(store, gateway, notify.Fanout{app.Notes, notify.NewLogNotifier(l)},
		services.CartServiceConfig{
			DebounceWindow: cfg.Sync.DebounceWindow,
			BaseRetryDelay: cfg.Sync.BaseRetryDelay,
			MaxRetryCount:  cfg.Sync.MaxRetryCount,
			Shipping: domain.ShippingPolicy{
				FreeThreshold: cfg.Pricing.FreeShippingThreshold,
				FlatFee:       cfg.Pricing.FlatShippingFee,
			},
		}, l, services.WithMetrics(metrics.NewSync(app.Registry)))
	app.Observer = services.NewSessionObserver(app.Cart, policy, l)

	if err := app.Cart.Init(ctx); err != nil {
		app.close()
		return nil, err
	}
	app.Observer.Restore(app.session.UserID)
	return app, nil
}

// cartStore picks the snapshot backend; the session always lives in SQLite
func (a *App) cartStore(ctx context.Context) (ports.LocalCartStore, error) {
	switch a.cfg.LocalStore.Driver {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr(),
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return redis_a.NewCartStore(a.redis, a.deviceID, a.cfg.LocalStore.SessionTTL, a.logger), nil
	case "memory":
		return localstore.NewMemory(a.logger), nil
	default:
		return a.db, nil
	}
}

func (a *App) loadSession(ctx context.Context) error {
	raw, err := a.db.Get(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, &a.session); err != nil {
		a.logger.WarnContext(ctx, "discarding corrupt session", slog.String("error", err.Error()))
		a.session = session{}
	}
	return nil
}

// Login stores the token and switches the cart to the user's server cart
func (a *App) Login(ctx context.Context, userID int64, token string) error {
	if token == "" {
		return errors.New("a token is required to log in")
	}
	a.session = session{UserID: userID, Token: token, LoggedInAt: time.Now().UTC()}
	return a.Observer.Login(ctx, userID)
}

// Close stops the controller and persists the session state it ended in
func (a *App) Close(ctx context.Context) error {
	a.Cart.Teardown()

	var err error
	if state, userID := a.Observer.State(); state == services.SessionAuthenticated {
		a.session.UserID = userID
		var raw []byte
		if raw, err = json.Marshal(a.session); err == nil {
			err = a.db.Put(ctx, sessionKey, raw)
		}
	} else {
		err = a.db.Delete(ctx, sessionKey)
	}
	if err != nil {
		err = fmt.Errorf("failed to save session: %w", err)
	}
	return errors.Join(err, a.close())
}

func (a *App) close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
