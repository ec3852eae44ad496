package coupon

import (
	"github.com/go-faster/errors"
)

// ErrInvalidConfig marks configuration errors caught at coupon save
// time. A coupon that fails Validate never reaches the resolver.
var ErrInvalidConfig = errors.New("invalid coupon configuration")

func configErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

// Validate checks the invariants a coupon must satisfy before it may be
// saved. Violations are rejected, never silently coerced. Scope
// consistency against the catalog is checked separately by the Service,
// since it needs a product lookup.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return configErrorf("code is required")
	}

	switch c.Type {
	case DiscountPercentage:
		if !c.Value.IsPositive() || c.Value.GreaterThan(hundred) {
			return configErrorf("percentage value must be in (0, 100], got %s", c.Value)
		}
	case DiscountFixed:
		if !c.Value.IsPositive() {
			return configErrorf("fixed value must be positive, got %s", c.Value)
		}
		if !c.MaxDiscountValue.IsZero() {
			return configErrorf("max_discount_value applies to percentage coupons only")
		}
	default:
		return configErrorf("unsupported discount type %q", c.Type)
	}

	if c.MinOrderValue.IsNegative() {
		return configErrorf("min_order_value must not be negative, got %s", c.MinOrderValue)
	}
	if c.MaxDiscountValue.IsNegative() {
		return configErrorf("max_discount_value must not be negative, got %s", c.MaxDiscountValue)
	}

	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return configErrorf("start_date and end_date are required")
	}
	if dateOnly(c.EndDate).Before(dateOnly(c.StartDate)) {
		return configErrorf("end_date %s precedes start_date %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}

	// A scope that carried content but no usable identifiers would be
	// stored as catalog-wide, silently widening the discount. Reject it.
	if c.CategoryScope.Unresolved() {
		return configErrorf("category_scope has no usable identifiers")
	}
	if c.ProductScope.Unresolved() {
		return configErrorf("product_scope has no usable identifiers")
	}

	if c.MaxUses < 0 {
		return configErrorf("max_uses must not be negative, got %d", c.MaxUses)
	}
	if c.MaxUsesPerUser < 0 {
		return configErrorf("max_uses_per_user must not be negative, got %d", c.MaxUsesPerUser)
	}

	return nil
}
