// Package coupon implements the discount rules of the marketplace admin
// panel: scope matching, eligibility resolution, and discount
// computation, plus the persistence and usage-tracking contracts those
// rules depend on.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/pkg/refset"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the order subtotal,
	// optionally capped by MaxDiscountValue.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed discounts a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when creating a coupon whose code is taken.
	ErrCodeExists = errors.New("coupon code already exists")
	// ErrTotalUsesExhausted is returned by a redemption commit that would
	// exceed the coupon's total usage cap.
	ErrTotalUsesExhausted = errors.New("coupon total usage limit reached")
	// ErrUserUsesExhausted is returned by a redemption commit that would
	// exceed the coupon's per-user usage cap.
	ErrUserUsesExhausted = errors.New("coupon per-user usage limit reached")
)

// Coupon is a discount rule. Code is immutable after creation; every
// other field may be edited through the panel.
//
// StartDate and EndDate are calendar dates; the validity window is
// inclusive on both ends. MaxUses and MaxUsesPerUser of zero mean
// unlimited. CategoryScope and ProductScope keep whatever reference
// shape the upstream supplied and are normalized at matching time; both
// empty means the coupon is catalog-wide.
type Coupon struct {
	Code             string
	Description      string
	Type             DiscountType
	Value            decimal.Decimal
	MinOrderValue    decimal.Decimal
	MaxDiscountValue decimal.Decimal // zero means no cap
	StartDate        time.Time
	EndDate          time.Time
	Active           bool
	MaxUses          int
	MaxUsesPerUser   int
	CategoryScope    refset.Ref
	ProductScope     refset.Ref
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ListParams controls coupon listing. Query filters by substring match
// over code and description.
type ListParams struct {
	Page    int
	PerPage int
	Query   string
}

// Repository defines coupon persistence operations.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, params ListParams) ([]Coupon, int, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// Usage is a snapshot of redemption counters for one coupon and user,
// read from the usage-tracking collaborator. The resolver treats it as
// data supplied by the caller and never refreshes or mutates it.
type Usage struct {
	TotalUses int
	UserUses  int
}

// UsageReader reads usage counter snapshots.
type UsageReader interface {
	Snapshot(ctx context.Context, code, userID string) (Usage, error)
}

// UsageRecorder commits redemptions. CommitRedemption must re-check both
// caps and increment atomically, returning ErrTotalUsesExhausted or
// ErrUserUsesExhausted when a concurrent redemption won the race.
type UsageRecorder interface {
	CommitRedemption(ctx context.Context, code, userID string, maxUses, maxUsesPerUser int) error
}
