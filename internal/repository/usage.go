package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartfox/market-admin/internal/domain/coupon"
)

const (
	snapshotUsageSQL = `SELECT
		COALESCE(SUM(uses), 0),
		COALESCE(SUM(uses) FILTER (WHERE user_id = $2), 0)
		FROM coupon_usage WHERE coupon_code = $1`

	lockCouponSQL = `SELECT 1 FROM coupons WHERE code = $1 FOR UPDATE`

	totalUsesSQL = `SELECT COALESCE(SUM(uses), 0) FROM coupon_usage WHERE coupon_code = $1`

	userUsesSQL = `SELECT COALESCE(uses, 0) FROM coupon_usage
		WHERE coupon_code = $1 AND user_id = $2`

	upsertUsageSQL = `INSERT INTO coupon_usage (coupon_code, user_id, uses, last_used_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (coupon_code, user_id)
		DO UPDATE SET uses = coupon_usage.uses + 1, last_used_at = now()`
)

var (
	_ coupon.UsageReader   = (*UsageRepository)(nil)
	_ coupon.UsageRecorder = (*UsageRepository)(nil)
)

// UsageRepository tracks coupon redemptions per user. Reads are plain
// snapshots; commits serialize on the coupon row so concurrent
// redemptions cannot blow past the caps.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Snapshot reads the current counters for a coupon and user in one query.
func (r *UsageRepository) Snapshot(ctx context.Context, code, userID string) (coupon.Usage, error) {
	var u coupon.Usage
	err := r.pool.QueryRow(ctx, snapshotUsageSQL, code, userID).Scan(&u.TotalUses, &u.UserUses)
	if err != nil {
		return coupon.Usage{}, fmt.Errorf("reading usage for coupon %q: %w", code, err)
	}
	return u, nil
}

// CommitRedemption re-checks both caps and increments the counters in a
// single transaction. The coupon row is locked first, so all commits for
// one coupon run serially; a commit that would exceed a cap returns the
// corresponding sentinel and leaves the counters untouched.
func (r *UsageRepository) CommitRedemption(ctx context.Context, code, userID string, maxUses, maxUsesPerUser int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockCouponSQL, code); err != nil {
			return fmt.Errorf("locking coupon: %w", err)
		}

		if maxUses > 0 {
			var total int
			if err := tx.QueryRow(ctx, totalUsesSQL, code).Scan(&total); err != nil {
				return fmt.Errorf("reading total uses: %w", err)
			}
			if total >= maxUses {
				return coupon.ErrTotalUsesExhausted
			}
		}

		if maxUsesPerUser > 0 {
			var userUses int
			err := tx.QueryRow(ctx, userUsesSQL, code, userID).Scan(&userUses)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("reading user uses: %w", err)
			}
			if userUses >= maxUsesPerUser {
				return coupon.ErrUserUsesExhausted
			}
		}

		if _, err := tx.Exec(ctx, upsertUsageSQL, code, userID); err != nil {
			return fmt.Errorf("incrementing usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("committing redemption of %q for user %q: %w", code, userID, err)
	}
	return nil
}
