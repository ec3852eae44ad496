// Command seed-db loads a development dataset: a small category tree, a
// handful of products, and two demo coupons. It is idempotent; rows are
// upserted so the tool can run on every deploy.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartfox/market-admin/internal/repository"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCategories(ctx, pool); err != nil {
		return errors.Wrap(err, "seed categories")
	}
	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

const upsertCategorySQL = `
INSERT INTO categories (id, name, parent_id)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, parent_id = EXCLUDED.parent_id`

func seedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	categories := []struct {
		id, name string
		parent   *string
	}{
		{id: "cat-apparel", name: "Apparel"},
		{id: "cat-footwear", name: "Footwear", parent: ptr("cat-apparel")},
		{id: "cat-electronics", name: "Electronics"},
		{id: "cat-audio", name: "Audio", parent: ptr("cat-electronics")},
	}

	for _, c := range categories {
		if _, err := pool.Exec(ctx, upsertCategorySQL, c.id, c.name, c.parent); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.id)
		}
		slog.Info("upserted category", slog.String("id", c.id), slog.String("name", c.name))
	}
	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, price, brand_id, store_id, categories)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	brand_id = EXCLUDED.brand_id,
	store_id = EXCLUDED.store_id,
	categories = EXCLUDED.categories`

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id, name   string
		price      string
		brand      string
		store      string
		categories string
	}{
		{"prod-trail-shoe", "Trail Runner Shoe", "8999", "brand-peak", "store-main", `["cat-footwear"]`},
		{"prod-rain-jacket", "Rain Shell Jacket", "12900", "brand-peak", "store-main", `["cat-apparel"]`},
		{"prod-earbuds", "Wireless Earbuds", "5999", "brand-volt", "store-main", `[{"id":"cat-audio"},{"id":"cat-electronics"}]`},
		{"prod-speaker", "Portable Speaker", "7499", "brand-volt", "store-outlet", `"cat-audio"`},
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.id, p.name, p.price, p.brand, p.store, []byte(p.categories),
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (
	code, description, discount_type, value, min_order_value,
	max_discount_value, start_date, end_date, active, max_uses,
	max_uses_per_user, category_scope, product_scope
)
VALUES ($1, $2, $3, $4, $5, $6, current_date, current_date + $7::int, $8, $9, $10, $11, $12)
ON CONFLICT (code) DO UPDATE SET
	description = EXCLUDED.description,
	discount_type = EXCLUDED.discount_type,
	value = EXCLUDED.value,
	min_order_value = EXCLUDED.min_order_value,
	max_discount_value = EXCLUDED.max_discount_value,
	end_date = EXCLUDED.end_date,
	active = EXCLUDED.active,
	max_uses = EXCLUDED.max_uses,
	max_uses_per_user = EXCLUDED.max_uses_per_user,
	category_scope = EXCLUDED.category_scope,
	product_scope = EXCLUDED.product_scope,
	updated_at = now()`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	coupons := []struct {
		code, description, kind string
		value                   string
		minOrder                string
		maxDiscount             string
		validDays               int
		maxUses                 int
		perUser                 int
		categoryScope           string
		productScope            string
	}{
		{
			code: "WELCOME10", description: "Welcome: 10% off any order",
			kind: "percentage", value: "10", minOrder: "0", maxDiscount: "5000",
			validDays: 30, maxUses: 0, perUser: 1,
			categoryScope: "null", productScope: "null",
		},
		{
			code: "AUDIO500", description: "500 off audio gear",
			kind: "fixed", value: "500", minOrder: "2000", maxDiscount: "0",
			validDays: 14, maxUses: 1000, perUser: 2,
			categoryScope: `["cat-audio"]`, productScope: "null",
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.description, c.kind, c.value, c.minOrder, c.maxDiscount,
			c.validDays, true, c.maxUses, c.perUser,
			[]byte(c.categoryScope), []byte(c.productScope),
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}
	return nil
}

func ptr(s string) *string { return &s }
