// internal/adapters/localstore/sqlite.go
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

// SQLite persists the cart snapshot as a single row of a key/value table
type SQLite struct {
	db     *sql.DB
	key    string
	path   string
	logger *slog.Logger
}

var _ ports.LocalCartStore = (*SQLite)(nil)

// OpenSQLite opens (creating when needed) the database at path
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		path = "cartsync.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store, err := NewSQLite(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.path = path
	return store, nil
}

// NewSQLite wraps an open database and ensures the kv table exists
func NewSQLite(db *sql.DB, logger *slog.Logger) (*SQLite, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLite{
		db:     db,
		key:    domain.SnapshotKey,
		logger: logger.With(slog.String("component", "sqlite_cart_store")),
	}, nil
}

func (s *SQLite) Load(ctx context.Context) (domain.Cart, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM kv WHERE key = ?`, s.key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewCart(), nil
		}
		return domain.NewCart(), fmt.Errorf("select cart: %w", err)
	}

	cart, err := domain.DecodeCart(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt cart snapshot", slog.String("error", err.Error()))
		return domain.NewCart(), nil
	}
	return cart, nil
}

func (s *SQLite) Save(ctx context.Context, cart domain.Cart) error {
	payload, err := domain.EncodeCart(cart)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, payload) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		s.key, payload); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// Get returns the payload stored under key, or nil when absent
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM kv WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// Put stores payload under key. The cart snapshot key is reserved.
func (s *SQLite) Put(ctx context.Context, key string, payload []byte) error {
	if key == s.key {
		return fmt.Errorf("key %q is reserved for the cart snapshot", key)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, payload) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		key, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path, empty when wrapping an external handle
func (s *SQLite) Path() string { return s.path }
