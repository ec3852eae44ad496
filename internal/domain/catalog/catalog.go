// Package catalog holds the product and category read models the coupon
// core evaluates against. Catalog data is owned by the marketplace
// backend; this service only reads it.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/pkg/refset"
)

// ErrNotFound is returned when a requested product or category does not
// exist. Callers evaluating a coupon must treat it as "coupon not
// applicable to this product", not as an outage.
var ErrNotFound = errors.New("catalog entry not found")

// Product is a catalog item. Categories holds the normalized category
// identifiers regardless of the shape the upstream populated.
type Product struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	BrandID    string
	StoreID    string
	Categories refset.Ref
	CreatedAt  time.Time
}

// Category is a product grouping. Only its name is used by presentation;
// the resolver works on identifiers alone.
type Category struct {
	ID        string
	Name      string
	ParentID  string
	CreatedAt time.Time
}

// ProductRepository defines catalog product operations.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
}

// CategoryRepository defines catalog category operations.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
}
