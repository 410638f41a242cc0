// internal/adapters/db/cart_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var lineColumns = []string{
	"ci.id", "ci.user_id", "ci.product_id", "ci.quantity", "ci.notes", "ci.created_at", "ci.updated_at",
	"p.id", "p.name", "p.price", "p.discount_price", "p.image_url", "p.unit", "p.active",
}

// cartRepository implements ports.CartRepository
type cartRepository struct {
	db     ports.Database
	logger *slog.Logger
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db ports.Database, logger *slog.Logger) ports.CartRepository {
	return &cartRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "cart")),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func selectLines() squirrel.SelectBuilder {
	return psql.Select(lineColumns...).
		From("cart_items ci").
		Join("products p ON p.id = ci.product_id")
}

func scanLine(row rowScanner) (*domain.CartLine, error) {
	var (
		line     domain.CartLine
		discount decimal.NullDecimal
	)
	err := row.Scan(
		&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.Notes, &line.CreatedAt, &line.UpdatedAt,
		&line.Product.ID, &line.Product.Name, &line.Product.Price, &discount,
		&line.Product.ImageURL, &line.Product.Unit, &line.Product.Active,
	)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		d := discount.Decimal
		line.Product.DiscountPrice = &d
	}
	return &line, nil
}

// ListByUser returns the user's lines in insertion order
func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	query, args, err := selectLines().
		Where(squirrel.Eq{"ci.user_id": userID}).
		OrderBy("ci.created_at ASC", "ci.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart: %w", err)
	}
	return lines, nil
}

// FindByID returns a single line or domain.ErrNotFound
func (r *cartRepository) FindByID(ctx context.Context, id int64) (*domain.CartLine, error) {
	query, args, err := selectLines().Where(squirrel.Eq{"ci.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	line, err := scanLine(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return line, nil
}

// Upsert inserts a line or adds the quantity to the user's existing line for the
// product. The merged quantity is capped at domain.MaxQuantity and non-empty notes
// replace the stored ones.
func (r *cartRepository) Upsert(ctx context.Context, userID, productID int64, quantity int, notes string) (*domain.CartLine, error) {
	query, args, err := psql.Insert("cart_items").
		Columns("user_id", "product_id", "quantity", "notes").
		Values(userID, productID, quantity, notes).
		Suffix(fmt.Sprintf(`ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = LEAST(cart_items.quantity + EXCLUDED.quantity, %d),
			notes = CASE WHEN EXCLUDED.notes <> '' THEN EXCLUDED.notes ELSE cart_items.notes END,
			updated_at = NOW()
			RETURNING id`, domain.MaxQuantity)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	r.logger.DebugContext(ctx, "cart item upserted",
		slog.Int64("id", id),
		slog.Int64("user_id", userID),
		slog.Int64("product_id", productID))

	return r.FindByID(ctx, id)
}

// UpdateQuantity sets the quantity of a line
func (r *cartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	query, args, err := psql.Update("cart_items").
		Set("quantity", quantity).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a line
func (r *cartRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("cart_items").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindProduct loads a catalog product
func (r *cartRepository) FindProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	query, args, err := psql.Select("id", "name", "price", "discount_price", "image_url", "unit", "active").
		From("products").
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var (
		p        domain.Product
		discount decimal.NullDecimal
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Name, &p.Price, &discount, &p.ImageURL, &p.Unit, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if discount.Valid {
		d := discount.Decimal
		p.DiscountPrice = &d
	}
	return &p, nil
}

// FindUserByToken resolves an unexpired API token into its user
func (r *cartRepository) FindUserByToken(ctx context.Context, token string) (*domain.User, error) {
	query, args, err := psql.Select("u.id", "u.email", "u.created_at").
		From("api_tokens t").
		Join("users u ON u.id = t.user_id").
		Where(squirrel.Eq{"t.token": token}).
		Where("(t.expires_at IS NULL OR t.expires_at > NOW())").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var u domain.User
	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return &u, nil
}
