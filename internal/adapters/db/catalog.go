// internal/adapters/db/catalog.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// Catalog writes the products, users and tokens the cart API reads. It backs the
// seeder and the integration tests.
type Catalog struct {
	db     *Database
	logger *slog.Logger
}

func NewCatalog(db *Database, logger *slog.Logger) *Catalog {
	return &Catalog{db: db, logger: logger.With(slog.String("repository", "catalog"))}
}

// SaveProducts inserts the products in one transaction and fills in their ids
func (c *Catalog) SaveProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	return c.db.Transaction(ctx, func(tx pgx.Tx) error {
		for i := range products {
			p := &products[i]
			query, args, err := psql.Insert("products").
				Columns("name", "price", "discount_price", "image_url", "unit", "active").
				Values(p.Name, p.Price, p.DiscountPrice, p.ImageURL, p.Unit, p.Active).
				Suffix("RETURNING id").
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}
			if err := tx.QueryRow(ctx, query, args...).Scan(&p.ID); err != nil {
				return fmt.Errorf("failed to save product %q: %w", p.Name, err)
			}
		}
		c.logger.InfoContext(ctx, "products saved", slog.Int("count", len(products)))
		return nil
	})
}

// EnsureUser returns the user with the email, creating it when missing
func (c *Catalog) EnsureUser(ctx context.Context, email string) (*domain.User, error) {
	query, args, err := psql.Insert("users").
		Columns("email").
		Values(email).
		Suffix("ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email RETURNING id, email, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var u domain.User
	if err := c.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to ensure user %s: %w", email, err)
	}
	return &u, nil
}

// IssueToken stores an API token for the user. A zero ttl never expires.
func (c *Catalog) IssueToken(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	var expires any
	if ttl != 0 {
		expires = time.Now().Add(ttl)
	}

	query, args, err := psql.Insert("api_tokens").
		Columns("token", "user_id", "expires_at").
		Values(token, userID, expires).
		Suffix("ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := c.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	return nil
}

// CountProducts returns the number of catalog rows
func (c *Catalog) CountProducts(ctx context.Context) (int64, error) {
	return c.db.Count(ctx, "SELECT id FROM products")
}

// Truncate wipes every cart table
func (c *Catalog) Truncate(ctx context.Context) error {
	_, err := c.db.Exec(ctx, "TRUNCATE TABLE cart_items, api_tokens, users, products RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate: %w", err)
	}
	return nil
}
