// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/adapters/db"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/pkg/config"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB creates a PostgreSQL container for integration tests
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_cartsync",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_cartsync",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	// Wait for database to be ready
	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")
	t.Cleanup(database.Close)

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: dbConfig.DSN(),
		UseEmbedded: true,
	}
	err = db.RunMigrationsWithRetry(context.Background(), migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		db.Close()
	})

	return mock, db
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "cartsync-test",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_cartsync",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Minute,
			PoolSize: 10,
		},
		Security: config.SecurityConfig{
			TokenTTL:          24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Sync: config.SyncConfig{
			DebounceWindow: time.Second,
			BaseRetryDelay: time.Second,
			MaxRetryCount:  domain.MaxRetryCount,
			LoginPolicy:    "replace",
		},
		Gateway: config.GatewayConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 5 * time.Second,
		},
		Pricing: config.PricingConfig{
			FreeShippingThreshold: decimal.NewFromInt(200000),
			FlatShippingFee:       decimal.NewFromInt(20000),
		},
		LocalStore: config.LocalStoreConfig{
			Driver:     "memory",
			SessionTTL: time.Hour,
		},
	}
}

// CreateTestCartItem creates an unlinked cart line priced at 10000
func CreateTestCartItem(overrides ...func(*domain.CartItem)) domain.CartItem {
	item := domain.CartItem{
		ProductID: 1,
		Name:      "Test Jasmine Rice",
		UnitPrice: decimal.NewFromInt(10000),
		Quantity:  1,
		Unit:      "bag",
	}

	for _, override := range overrides {
		override(&item)
	}

	return item
}

// CreateTestCart builds a cart holding items with totals and shipping computed
func CreateTestCart(items ...domain.CartItem) domain.Cart {
	cart := domain.NewCart()
	cart.Items = append(cart.Items, items...)
	cart.Recalculate()
	cart.ApplyShipping(domain.DefaultShippingPolicy())
	return cart
}

// CreateTestProduct creates an active catalog product
func CreateTestProduct(overrides ...func(*domain.Product)) *domain.Product {
	p := &domain.Product{
		ID:     1,
		Name:   "Test Jasmine Rice",
		Price:  decimal.NewFromInt(10000),
		Unit:   "bag",
		Active: true,
	}

	for _, override := range overrides {
		override(p)
	}

	return p
}

// CreateTestSnapshot creates the catalog snapshot of a product
func CreateTestSnapshot(productID int64, price int64) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ProductID: productID,
		Name:      fmt.Sprintf("Product %d", productID),
		Price:     decimal.NewFromInt(price),
		Unit:      "pcs",
	}
}

// CreateTestLine creates a persisted server cart row
func CreateTestLine(overrides ...func(*domain.CartLine)) *domain.CartLine {
	now := time.Now()
	line := &domain.CartLine{
		ID:        100,
		UserID:    7,
		ProductID: 1,
		Quantity:  1,
		Product:   *CreateTestProduct(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(line)
	}

	return line
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables truncates all tables in the test database
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	tables := []string{
		"cart_items",
		"api_tokens",
		"users",
		"products",
	}

	for _, table := range tables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		require.NoError(t, err, "Failed to truncate table: %s", table)
	}
}
