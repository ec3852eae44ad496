package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

const productColumns = `id, name, price, brand_id, store_id, categories, created_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (id, name, price, brand_id, store_id, categories)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by
// PostgreSQL. Category references are persisted canonically on write;
// reads decode any supported shape through the configured normalizer.
type ProductRepository struct {
	pool *pgxpool.Pool
	norm *refset.Normalizer
}

// NewProductRepository returns a ProductRepository that uses the given
// pool and decodes category references with norm.
func NewProductRepository(pool *pgxpool.Pool, norm *refset.Normalizer) *ProductRepository {
	if norm == nil {
		norm = refset.NewNormalizer(nil)
	}
	return &ProductRepository{pool: pool, norm: norm}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, r.scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, r.scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, r.scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	categories, err := json.Marshal(p.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories for %q: %w", p.ID, err)
	}

	if _, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Price, p.BrandID, p.StoreID, categories,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("product %q already exists: %w", p.ID, err)
		}
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepository) scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p          catalog.Product
		categories []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.BrandID, &p.StoreID, &categories, &p.CreatedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	if len(categories) > 0 {
		if p.Categories, err = r.norm.DecodeRef(categories); err != nil {
			return catalog.Product{}, fmt.Errorf("decoding categories for %q: %w", p.ID, err)
		}
	}
	return p, nil
}
