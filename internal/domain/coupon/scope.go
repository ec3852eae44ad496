package coupon

import (
	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

// ScopeVerdict is the outcome of matching a coupon's declared scope
// against a candidate product.
type ScopeVerdict string

const (
	// ScopeApplies means the coupon's scope covers the product.
	ScopeApplies ScopeVerdict = "applies"
	// ScopeCategoryMismatch means the product belongs to none of the
	// coupon's scoped categories.
	ScopeCategoryMismatch ScopeVerdict = "category_mismatch"
	// ScopeProductMismatch means the coupon is scoped to specific
	// products and this is not one of them.
	ScopeProductMismatch ScopeVerdict = "product_mismatch"
)

// Matcher decides whether a coupon's scope covers a product. All
// references go through the same normalizer, so heterogeneous upstream
// shapes cannot produce divergent verdicts.
type Matcher struct {
	norm *refset.Normalizer
}

// NewMatcher returns a Matcher using the given normalizer. A nil
// normalizer falls back to the default identifier-key table.
func NewMatcher(norm *refset.Normalizer) *Matcher {
	if norm == nil {
		norm = refset.NewNormalizer(nil)
	}
	return &Matcher{norm: norm}
}

// Match returns a single deterministic verdict. The category check is
// evaluated before the product check, so a product failing both is
// reported as a category mismatch.
func (m *Matcher) Match(c *Coupon, p *catalog.Product) ScopeVerdict {
	categoryScope := m.norm.Normalize(c.CategoryScope)
	productScope := m.norm.Normalize(c.ProductScope)

	// No scope at all: coupon is catalog-wide.
	if categoryScope.Empty() && productScope.Empty() {
		return ScopeApplies
	}

	if !categoryScope.Empty() {
		productCategories := m.norm.Normalize(p.Categories)
		if !categoryScope.Intersects(productCategories) {
			return ScopeCategoryMismatch
		}
	}

	if !productScope.Empty() && !productScope.Has(p.ID) {
		return ScopeProductMismatch
	}

	return ScopeApplies
}
