package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartfox/market-admin/internal/domain/coupon"
	"github.com/cartfox/market-admin/pkg/refset"
)

const couponColumns = `code, description, discount_type, value, min_order_value,
	max_discount_value, start_date, end_date, active, max_uses, max_uses_per_user,
	category_scope, product_scope, created_at, updated_at`

const (
	createCouponSQL = `INSERT INTO coupons (code, description, discount_type, value,
		min_order_value, max_discount_value, start_date, end_date, active,
		max_uses, max_uses_per_user, category_scope, product_scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateCouponSQL = `UPDATE coupons SET description = $2, discount_type = $3,
		value = $4, min_order_value = $5, max_discount_value = $6, start_date = $7,
		end_date = $8, active = $9, max_uses = $10, max_uses_per_user = $11,
		category_scope = $12, product_scope = $13, updated_at = now()
		WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE $1 = '' OR code ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, code
		LIMIT $2 OFFSET $3`

	countCouponsSQL = `SELECT count(*) FROM coupons
		WHERE $1 = '' OR code ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'`

	setCouponActiveSQL = `UPDATE coupons SET active = $2, updated_at = now() WHERE code = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Scope references are written in their canonical shape (sorted id array
// or null); reads decode any supported shape through the configured
// normalizer, so rows written by external tools still resolve.
type CouponRepository struct {
	pool *pgxpool.Pool
	norm *refset.Normalizer
}

// NewCouponRepository returns a CouponRepository that uses the given
// pool and decodes scope references with norm.
func NewCouponRepository(pool *pgxpool.Pool, norm *refset.Normalizer) *CouponRepository {
	if norm == nil {
		norm = refset.NewNormalizer(nil)
	}
	return &CouponRepository{pool: pool, norm: norm}
}

// Create inserts a new coupon. Returns coupon.ErrCodeExists when the
// code is already taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	args, err := couponArgs(c)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, createCouponSQL, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update persists changes to an existing coupon, matched by code.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	args, err := couponArgs(c)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateCouponSQL, args...)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon rule. Usage history lives in coupon_usage and
// is deliberately left untouched.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// GetByCode looks up a coupon by its code (case-insensitive).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, r.scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// List returns a page of coupons filtered by a substring match over code
// and description, plus the total match count.
func (r *CouponRepository) List(ctx context.Context, params coupon.ListParams) ([]coupon.Coupon, int, error) {
	offset := (params.Page - 1) * params.PerPage

	rows, err := r.pool.Query(ctx, listCouponsSQL, params.Query, params.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}

	coupons, err := pgx.CollectRows(rows, r.scanCoupon)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countCouponsSQL, params.Query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting coupons: %w", err)
	}

	return coupons, total, nil
}

// SetActive toggles the active flag without touching the date window.
func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, code, active)
	if err != nil {
		return fmt.Errorf("toggling coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func couponArgs(c *coupon.Coupon) ([]any, error) {
	categoryScope, err := scopeJSON(c.CategoryScope)
	if err != nil {
		return nil, fmt.Errorf("encoding category scope for %q: %w", c.Code, err)
	}
	productScope, err := scopeJSON(c.ProductScope)
	if err != nil {
		return nil, fmt.Errorf("encoding product scope for %q: %w", c.Code, err)
	}

	return []any{
		c.Code, c.Description, string(c.Type), c.Value,
		c.MinOrderValue, c.MaxDiscountValue, c.StartDate, c.EndDate, c.Active,
		c.MaxUses, c.MaxUsesPerUser, categoryScope, productScope,
	}, nil
}

func scopeJSON(ref refset.Ref) ([]byte, error) {
	return json.Marshal(ref)
}

func (r *CouponRepository) scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c             coupon.Coupon
		discountType  string
		categoryScope []byte
		productScope  []byte
	)
	err := row.Scan(
		&c.Code, &c.Description, &discountType, &c.Value, &c.MinOrderValue,
		&c.MaxDiscountValue, &c.StartDate, &c.EndDate, &c.Active,
		&c.MaxUses, &c.MaxUsesPerUser, &categoryScope, &productScope,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.Type = coupon.DiscountType(discountType)

	if c.CategoryScope, err = r.decodeScope(categoryScope); err != nil {
		return coupon.Coupon{}, fmt.Errorf("decoding category scope for %q: %w", c.Code, err)
	}
	if c.ProductScope, err = r.decodeScope(productScope); err != nil {
		return coupon.Coupon{}, fmt.Errorf("decoding product scope for %q: %w", c.Code, err)
	}
	return c, nil
}

func (r *CouponRepository) decodeScope(data []byte) (refset.Ref, error) {
	if len(data) == 0 {
		return refset.Ref{}, nil
	}
	return r.norm.DecodeRef(data)
}
