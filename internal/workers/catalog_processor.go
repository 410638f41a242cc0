// internal/workers/catalog_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/cartsync/internal/core/domain"
)

// catalog columns, in sheet order after the header row
const (
	colName = iota
	colPrice
	colDiscountPrice
	colUnit
	colImageURL
	colActive
)

// RowError reports a catalog row that could not be imported
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ProductSaver persists imported products
type ProductSaver interface {
	SaveProducts(ctx context.Context, products []domain.Product) error
}

// CatalogImportPayload is the body of a catalog:import task
type CatalogImportPayload struct {
	FilePath    string `json:"file_path"`
	RemoveAfter bool   `json:"remove_after,omitempty"`
}

// NewCatalogImportTask builds a catalog:import task for the workbook at path
func NewCatalogImportTask(path string, removeAfter bool) (*asynq.Task, error) {
	b, err := json.Marshal(CatalogImportPayload{FilePath: path, RemoveAfter: removeAfter})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog payload: %w", err)
	}
	return asynq.NewTask(TypeCatalogImport, b), nil
}

// CatalogProcessor imports product workbooks into the catalog
type CatalogProcessor struct {
	catalog ProductSaver
	logger  *slog.Logger
}

// NewCatalogProcessor creates a new catalog processor
func NewCatalogProcessor(catalog ProductSaver, logger *slog.Logger) *CatalogProcessor {
	return &CatalogProcessor{
		catalog: catalog,
		logger:  logger.With(slog.String("processor", "catalog")),
	}
}

// ImportCatalog loads the workbook named by the task and saves its products
func (p *CatalogProcessor) ImportCatalog(ctx context.Context, t *asynq.Task) error {
	var payload CatalogImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.FilePath == "" {
		return fmt.Errorf("catalog task without file_path: %w", asynq.SkipRetry)
	}

	p.logger.InfoContext(ctx, "importing catalog", slog.String("file_path", payload.FilePath))

	products, rejected, err := LoadCatalog(payload.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	for _, r := range rejected {
		p.logger.WarnContext(ctx, "catalog row skipped",
			slog.Int("row", r.Row),
			slog.String("error", r.Err.Error()))
	}

	if len(products) > 0 {
		if err := p.catalog.SaveProducts(ctx, products); err != nil {
			return fmt.Errorf("failed to save products: %w", err)
		}
	}

	if payload.RemoveAfter {
		if err := os.Remove(payload.FilePath); err != nil {
			p.logger.WarnContext(ctx, "failed to remove catalog file", slog.String("error", err.Error()))
		}
	}

	p.logger.InfoContext(ctx, "catalog import completed",
		slog.Int("products", len(products)),
		slog.Int("rejected", len(rejected)))
	return nil
}

// LoadCatalog reads products from the first sheet of an xlsx workbook. Rows
// without a name are skipped; malformed rows are returned as RowErrors.
func LoadCatalog(path string) ([]domain.Product, []RowError, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in catalog file")
	}
	sheet := file.Sheets[0]

	var (
		products []domain.Product
		rejected []RowError
	)

	rowIdx := 0
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		rowIdx++
		// Skip header
		if rowIdx == 1 {
			return nil
		}

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		if get(colName) == "" {
			return nil
		}

		product, err := parseProduct(get)
		if err != nil {
			rejected = append(rejected, RowError{Row: rowIdx, Err: err})
			return nil
		}
		products = append(products, product)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return products, rejected, nil
}

func parseProduct(get func(int) string) (domain.Product, error) {
	p := domain.Product{
		Name:     get(colName),
		Unit:     get(colUnit),
		ImageURL: get(colImageURL),
		Active:   true,
	}

	price, err := ParseMoney(get(colPrice))
	if err != nil {
		return p, fmt.Errorf("price: %w", err)
	}
	if !price.IsPositive() {
		return p, fmt.Errorf("price must be positive")
	}
	p.Price = price

	if raw := get(colDiscountPrice); raw != "" {
		discount, err := ParseMoney(raw)
		if err != nil {
			return p, fmt.Errorf("discount price: %w", err)
		}
		if discount.IsPositive() {
			p.DiscountPrice = &discount
		}
	}

	if raw := get(colActive); raw != "" {
		active, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return p, fmt.Errorf("active: %w", err)
		}
		p.Active = active
	}

	if p.Unit == "" {
		p.Unit = "pcs"
	}
	return p, nil
}

// ParseMoney accepts plain numbers as well as grouped values like "12,500"
func ParseMoney(val string) (decimal.Decimal, error) {
	val = strings.TrimSpace(val)
	val = strings.TrimPrefix(val, "$")
	val = strings.ReplaceAll(val, ",", "")
	if val == "" {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	return decimal.NewFromString(val)
}
