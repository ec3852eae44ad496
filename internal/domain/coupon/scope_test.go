package coupon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

func TestMatcherMatch(t *testing.T) {
	m := NewMatcher(nil)

	product := &catalog.Product{
		ID:         "p-1",
		Categories: refset.FromIDs("c-1", "c-2"),
	}

	tests := []struct {
		name          string
		categoryScope refset.Ref
		productScope  refset.Ref
		product       *catalog.Product
		want          ScopeVerdict
	}{
		{
			name:    "no scope applies to everything",
			product: product,
			want:    ScopeApplies,
		},
		{
			name:          "category scope matches",
			categoryScope: refset.FromIDs("c-2"),
			product:       product,
			want:          ScopeApplies,
		},
		{
			name:          "category scope disjoint",
			categoryScope: refset.FromIDs("c-9"),
			product:       product,
			want:          ScopeCategoryMismatch,
		},
		{
			name:         "product scope matches",
			productScope: refset.FromIDs("p-1"),
			product:      product,
			want:         ScopeApplies,
		},
		{
			name:         "product scope excludes",
			productScope: refset.FromIDs("p-9"),
			product:      product,
			want:         ScopeProductMismatch,
		},
		{
			name:          "both scopes match",
			categoryScope: refset.FromIDs("c-1"),
			productScope:  refset.FromIDs("p-1"),
			product:       product,
			want:          ScopeApplies,
		},
		{
			name:          "category check wins over product check",
			categoryScope: refset.FromIDs("c-9"),
			productScope:  refset.FromIDs("p-9"),
			product:       product,
			want:          ScopeCategoryMismatch,
		},
		{
			name:          "product without categories fails category scope",
			categoryScope: refset.FromIDs("c-1"),
			product:       &catalog.Product{ID: "p-2"},
			want:          ScopeCategoryMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{
				CategoryScope: tt.categoryScope,
				ProductScope:  tt.productScope,
			}
			assert.Equal(t, tt.want, m.Match(c, tt.product))
		})
	}
}

func TestMatcherHeterogeneousShapesAgree(t *testing.T) {
	m := NewMatcher(nil)

	// The same category scope arriving as bare id, object, or singleton
	// array must produce the same verdict.
	wireShapes := []string{
		`"c-1"`,
		`{"id":"c-1"}`,
		`["c-1"]`,
		`[{"_id":"c-1"}]`,
	}

	product := &catalog.Product{ID: "p-1", Categories: refset.FromIDs("c-1")}

	for _, shape := range wireShapes {
		var scope refset.Ref
		require.NoError(t, json.Unmarshal([]byte(shape), &scope))

		c := &Coupon{CategoryScope: scope}
		assert.Equal(t, ScopeApplies, m.Match(c, product), "shape %s", shape)
	}
}

func TestMatcherUnresolvableScopeUnderMatches(t *testing.T) {
	m := NewMatcher(nil)

	// A scope whose only element is unresolvable degrades to "no match",
	// never to "matches everything": the category scope stays non-empty
	// in intent but empty in identifiers, which is the unscoped case.
	var scope refset.Ref
	require.NoError(t, json.Unmarshal([]byte(`[{"slug":"not-an-id"}]`), &scope))
	assert.True(t, scope.IsZero())

	c := &Coupon{CategoryScope: scope, ProductScope: refset.FromIDs("p-9")}
	product := &catalog.Product{ID: "p-1", Categories: refset.FromIDs("c-1")}

	// The unresolvable category scope is empty, so the product scope
	// decides, and it excludes this product.
	assert.Equal(t, ScopeProductMismatch, m.Match(c, product))
}
