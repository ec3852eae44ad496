package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// RejectReason explains why a coupon was not applied. Rejections are
// ordinary values the panel shows to operators, not errors.
type RejectReason string

const (
	ReasonInactive           RejectReason = "inactive"
	ReasonOutOfDateWindow    RejectReason = "out_of_date_window"
	ReasonBelowMinimumOrder  RejectReason = "below_minimum_order"
	ReasonScopeMismatch      RejectReason = "scope_mismatch"
	ReasonTotalUsesExhausted RejectReason = "total_uses_exhausted"
	ReasonUserUsesExhausted  RejectReason = "user_uses_exhausted"
)

// Result is the outcome of resolving a coupon against a product, order
// subtotal, and usage snapshot.
type Result struct {
	Accepted bool
	// Reason is set on rejection; empty when accepted.
	Reason RejectReason
	// Scope carries the matcher verdict when Reason is
	// ReasonScopeMismatch, and ScopeApplies when accepted.
	Scope ScopeVerdict
	// Discount is the computed amount; zero unless accepted.
	Discount decimal.Decimal
}

func rejected(reason RejectReason) Result {
	return Result{Reason: reason}
}

// ScopeRejection builds the result for a scope verdict other than
// ScopeApplies. It is also used when the product itself cannot be
// resolved, which degrades to a product-scope mismatch.
func ScopeRejection(verdict ScopeVerdict) Result {
	return Result{Reason: ReasonScopeMismatch, Scope: verdict}
}

// Resolver combines scope matching with temporal, monetary, and usage
// constraints. It is a pure function of its inputs: no I/O, no hidden
// state, no clock of its own.
type Resolver struct {
	matcher *Matcher
	// exponent is the number of decimal digits in the smallest currency
	// unit. Discounts are rounded down to it, never by locale.
	exponent int32
}

// NewResolver returns a Resolver using the given matcher and currency
// minor-unit exponent.
func NewResolver(matcher *Matcher, exponent int32) *Resolver {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &Resolver{matcher: matcher, exponent: exponent}
}

// Resolve evaluates the checks in fixed order; the first failing check
// decides the rejection reason. The coupon is assumed to have passed
// save-time validation.
func (r *Resolver) Resolve(c *Coupon, p *catalog.Product, subtotal decimal.Decimal, usage Usage, now time.Time) Result {
	if !c.Active {
		return rejected(ReasonInactive)
	}
	if !withinWindow(now, c.StartDate, c.EndDate) {
		return rejected(ReasonOutOfDateWindow)
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return rejected(ReasonBelowMinimumOrder)
	}
	if verdict := r.matcher.Match(c, p); verdict != ScopeApplies {
		return ScopeRejection(verdict)
	}
	if c.MaxUses > 0 && usage.TotalUses >= c.MaxUses {
		return rejected(ReasonTotalUsesExhausted)
	}
	if c.MaxUsesPerUser > 0 && usage.UserUses >= c.MaxUsesPerUser {
		return rejected(ReasonUserUsesExhausted)
	}

	return Result{
		Accepted: true,
		Scope:    ScopeApplies,
		Discount: r.discount(c, subtotal),
	}
}

func (r *Resolver) discount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case DiscountFixed:
		// A fixed discount can never exceed the order total.
		amount = decimal.Min(c.Value, subtotal)
	case DiscountPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscountValue.IsPositive() {
			amount = decimal.Min(amount, c.MaxDiscountValue)
		}
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.RoundDown(r.exponent)
}

// withinWindow reports whether now falls inside [start, end] at calendar
// date granularity, inclusive on both ends. All three are truncated to
// UTC dates so a coupon valid "today" accepts the whole day.
func withinWindow(now, start, end time.Time) bool {
	day := dateOnly(now)
	return !day.Before(dateOnly(start)) && !day.After(dateOnly(end))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
