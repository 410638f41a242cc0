package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/pkg/config"
	"github.com/ammerola/cartsync/test/helpers"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := config.Load(helpers.TestLogger())
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Sync.DebounceWindow)
	assert.Equal(t, time.Second, cfg.Sync.BaseRetryDelay)
	assert.Equal(t, 3, cfg.Sync.MaxRetryCount)
	assert.Equal(t, "replace", cfg.Sync.LoginPolicy)
	assert.True(t, cfg.Pricing.FreeShippingThreshold.Equal(decimal.NewFromInt(200000)))
	assert.True(t, cfg.Pricing.FlatShippingFee.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, "sqlite", cfg.LocalStore.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("CART_LOGIN_POLICY", "merge")
	t.Setenv("CART_DEBOUNCE_WINDOW", "250ms")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "150000")
	t.Setenv("CART_API_RATE_LIMIT", "2.5")
	t.Setenv("ASYNQ_QUEUES", "default:2,low:1")

	cfg, err := config.Load(helpers.TestLogger())
	require.NoError(t, err)

	assert.Equal(t, "merge", cfg.Sync.LoginPolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.DebounceWindow)
	assert.True(t, cfg.Pricing.FreeShippingThreshold.Equal(decimal.NewFromInt(150000)))
	assert.InDelta(t, 2.5, cfg.Gateway.RateLimit, 0.0001)
	assert.Equal(t, map[string]int{"default": 2, "low": 1}, cfg.Asynq.Queues)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{
			name:   "valid_test_config",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "missing_database_host",
			mutate:  func(c *config.Config) { c.Database.Host = "" },
			wantErr: "Database.Host",
		},
		{
			name:    "unknown_login_policy",
			mutate:  func(c *config.Config) { c.Sync.LoginPolicy = "union" },
			wantErr: "unknown login policy",
		},
		{
			name:    "zero_retry_count",
			mutate:  func(c *config.Config) { c.Sync.MaxRetryCount = 0 },
			wantErr: "max retry count",
		},
		{
			name:    "negative_shipping_fee",
			mutate:  func(c *config.Config) { c.Pricing.FlatShippingFee = decimal.NewFromInt(-1) },
			wantErr: "shipping amounts",
		},
		{
			name:    "unknown_store_driver",
			mutate:  func(c *config.Config) { c.LocalStore.Driver = "bolt" },
			wantErr: "unknown cart store driver",
		},
		{
			name: "production_requires_ssl",
			mutate: func(c *config.Config) {
				c.App.Environment = "production"
				c.Security.SecureHeaders = true
			},
			wantErr: "SSL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := helpers.LoadTestConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type stubSecrets struct {
	values map[string]string
	err    error
}

func (s stubSecrets) GetSecret(ctx context.Context, key string) (string, error) {
	return s.values[key], s.err
}

func (s stubSecrets) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	return s.values, s.err
}

func (s stubSecrets) RefreshSecrets(ctx context.Context) error { return nil }

func TestApplySecrets(t *testing.T) {
	cfg := helpers.LoadTestConfig()

	err := cfg.ApplySecrets(context.Background(), stubSecrets{values: map[string]string{
		"DB_PASSWORD":    "s3cret",
		"CART_API_TOKEN": "tok",
	}})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "tok", cfg.Gateway.Token)

	err = cfg.ApplySecrets(context.Background(), stubSecrets{err: errors.New("denied")})
	assert.ErrorContains(t, err, "denied")
}

func TestEnvSecretsManager(t *testing.T) {
	t.Setenv("CART_API_TOKEN", "from-env")
	sm := config.NewEnvSecretsManager()

	v, err := sm.GetSecret(context.Background(), "CART_API_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = sm.GetSecret(context.Background(), "NOT_SET_ANYWHERE")
	assert.Error(t, err)
}
