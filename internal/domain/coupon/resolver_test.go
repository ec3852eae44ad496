package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func validCoupon() *Coupon {
	return &Coupon{
		Code:          "SAVE10",
		Type:          DiscountPercentage,
		Value:         decimal.NewFromInt(10),
		MinOrderValue: decimal.Zero,
		StartDate:     testNow.AddDate(0, 0, -5),
		EndDate:       testNow.AddDate(0, 0, 5),
		Active:        true,
	}
}

func testProduct() *catalog.Product {
	return &catalog.Product{
		ID:         "p-1",
		Categories: refset.FromIDs("c-1"),
	}
}

func TestResolveCheckOrder(t *testing.T) {
	r := NewResolver(nil, 0)
	subtotal := decimal.NewFromInt(500000)

	tests := []struct {
		name   string
		mutate func(c *Coupon)
		usage  Usage
		want   RejectReason
	}{
		{
			name:   "inactive wins over everything",
			mutate: func(c *Coupon) { c.Active = false; c.EndDate = testNow.AddDate(0, 0, -1) },
			want:   ReasonInactive,
		},
		{
			name:   "date window before min order",
			mutate: func(c *Coupon) { c.EndDate = testNow.AddDate(0, 0, -1); c.MinOrderValue = decimal.NewFromInt(999999999) },
			want:   ReasonOutOfDateWindow,
		},
		{
			name:   "min order before scope",
			mutate: func(c *Coupon) { c.MinOrderValue = decimal.NewFromInt(999999999); c.CategoryScope = refset.FromIDs("c-9") },
			want:   ReasonBelowMinimumOrder,
		},
		{
			name:   "scope before usage caps",
			mutate: func(c *Coupon) { c.CategoryScope = refset.FromIDs("c-9"); c.MaxUses = 1 },
			usage:  Usage{TotalUses: 1},
			want:   ReasonScopeMismatch,
		},
		{
			name:   "total cap before per-user cap",
			mutate: func(c *Coupon) { c.MaxUses = 5; c.MaxUsesPerUser = 1 },
			usage:  Usage{TotalUses: 5, UserUses: 1},
			want:   ReasonTotalUsesExhausted,
		},
		{
			name:   "per-user cap last",
			mutate: func(c *Coupon) { c.MaxUsesPerUser = 2 },
			usage:  Usage{TotalUses: 100, UserUses: 2},
			want:   ReasonUserUsesExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.mutate(c)

			got := r.Resolve(c, testProduct(), subtotal, tt.usage, testNow)
			assert.False(t, got.Accepted)
			assert.Equal(t, tt.want, got.Reason)
			assert.True(t, got.Discount.IsZero())
		})
	}
}

func TestResolveUnlimitedUsageCaps(t *testing.T) {
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.MaxUses = 0
	c.MaxUsesPerUser = 0

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(1000), Usage{TotalUses: 9999, UserUses: 9999}, testNow)
	assert.True(t, got.Accepted)
}

func TestResolveDateBoundaries(t *testing.T) {
	r := NewResolver(nil, 0)
	subtotal := decimal.NewFromInt(1000)

	// start == end == today accepts any time of that day.
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	c := validCoupon()
	c.StartDate = day
	c.EndDate = day

	lateSameDay := day.Add(23*time.Hour + 59*time.Minute)
	got := r.Resolve(c, testProduct(), subtotal, Usage{}, lateSameDay)
	assert.True(t, got.Accepted)

	// The day after is rejected.
	got = r.Resolve(c, testProduct(), subtotal, Usage{}, day.AddDate(0, 0, 1))
	assert.False(t, got.Accepted)
	assert.Equal(t, ReasonOutOfDateWindow, got.Reason)

	// The day before is rejected too.
	got = r.Resolve(c, testProduct(), subtotal, Usage{}, day.AddDate(0, 0, -1))
	assert.Equal(t, ReasonOutOfDateWindow, got.Reason)
}

func TestResolvePercentageWithCap(t *testing.T) {
	// 10% of 800000 is 80000, capped at 50000.
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.Type = DiscountPercentage
	c.Value = decimal.NewFromInt(10)
	c.MaxDiscountValue = decimal.NewFromInt(50000)
	c.MinOrderValue = decimal.NewFromInt(100000)

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(800000), Usage{}, testNow)
	assert.True(t, got.Accepted)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(50000)), "got %s", got.Discount)
}

func TestResolvePercentageUncapped(t *testing.T) {
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.Value = decimal.NewFromInt(10)

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(800000), Usage{}, testNow)
	assert.True(t, got.Accepted)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(80000)), "got %s", got.Discount)
}

func TestResolveFixedCappedAtSubtotal(t *testing.T) {
	// Fixed 50000 on a 30000 order discounts exactly 30000.
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.Type = DiscountFixed
	c.Value = decimal.NewFromInt(50000)

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(30000), Usage{}, testNow)
	assert.True(t, got.Accepted)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(30000)), "got %s", got.Discount)
}

func TestResolveScopeMismatchScenario(t *testing.T) {
	// Coupon scoped to category C1; product belongs to C2 only.
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.CategoryScope = refset.FromIDs("C1")

	p := &catalog.Product{ID: "p-1", Categories: refset.FromIDs("C2")}

	got := r.Resolve(c, p, decimal.NewFromInt(1000), Usage{}, testNow)
	assert.False(t, got.Accepted)
	assert.Equal(t, ReasonScopeMismatch, got.Reason)
	assert.Equal(t, ScopeCategoryMismatch, got.Scope)
}

func TestResolveTotalUsesExhaustedScenario(t *testing.T) {
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.MaxUses = 5

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(1000), Usage{TotalUses: 5}, testNow)
	assert.False(t, got.Accepted)
	assert.Equal(t, ReasonTotalUsesExhausted, got.Reason)
}

func TestResolveDiscountRoundsDown(t *testing.T) {
	r := NewResolver(nil, 0)

	// 15% of 333 is 49.95: rounded down to 49, never up.
	c := validCoupon()
	c.Value = decimal.NewFromInt(15)

	got := r.Resolve(c, testProduct(), decimal.NewFromInt(333), Usage{}, testNow)
	assert.True(t, got.Accepted)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(49)), "got %s", got.Discount)

	// With a two-digit minor unit the same computation keeps the cents.
	r2 := NewResolver(nil, 2)
	got = r2.Resolve(c, testProduct(), decimal.NewFromInt(333), Usage{}, testNow)
	assert.True(t, got.Discount.Equal(decimal.RequireFromString("49.95")), "got %s", got.Discount)
}

func TestResolveMonetaryBounds(t *testing.T) {
	r := NewResolver(nil, 0)

	subtotals := []int64{1, 37, 1000, 99999, 800000}
	values := []int64{1, 10, 50, 100}

	for _, sub := range subtotals {
		for _, val := range values {
			c := validCoupon()
			c.Value = decimal.NewFromInt(val)
			subtotal := decimal.NewFromInt(sub)

			got := r.Resolve(c, testProduct(), subtotal, Usage{}, testNow)
			assert.True(t, got.Accepted)
			assert.False(t, got.Discount.IsNegative())
			assert.True(t, got.Discount.LessThanOrEqual(subtotal),
				"value %d subtotal %d discount %s", val, sub, got.Discount)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver(nil, 0)

	c := validCoupon()
	c.MaxUses = 10
	usage := Usage{TotalUses: 3, UserUses: 1}
	subtotal := decimal.NewFromInt(250000)

	first := r.Resolve(c, testProduct(), subtotal, usage, testNow)
	second := r.Resolve(c, testProduct(), subtotal, usage, testNow)

	assert.Equal(t, first.Accepted, second.Accepted)
	assert.Equal(t, first.Reason, second.Reason)
	assert.True(t, first.Discount.Equal(second.Discount))
}
