package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

type mockCouponRepo struct {
	created *Coupon
	updated *Coupon
	byCode  map[string]*Coupon
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	m.created = c
	return nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *Coupon) error {
	m.updated = c
	return nil
}

func (m *mockCouponRepo) Delete(context.Context, string) error { return nil }

func (m *mockCouponRepo) GetByCode(_ context.Context, code string) (*Coupon, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

func (m *mockCouponRepo) List(context.Context, ListParams) ([]Coupon, int, error) {
	return nil, 0, nil
}

func (m *mockCouponRepo) SetActive(context.Context, string, bool) error { return nil }

type mockProductRepo struct {
	products map[string]catalog.Product
	err      error
}

func (m *mockProductRepo) List(context.Context) ([]catalog.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := m.products[id]; ok {
		return &p, nil
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(context.Context, *catalog.Product) error { return nil }

func draftCoupon() *Coupon {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &Coupon{
		Code:      "spring24",
		Type:      DiscountFixed,
		Value:     decimal.NewFromInt(5000),
		StartDate: day,
		EndDate:   day.AddDate(0, 1, 0),
		Active:    true,
	}
}

func TestServiceCreateUppercasesCode(t *testing.T) {
	repo := &mockCouponRepo{}
	svc := NewService(repo, &mockProductRepo{}, nil)

	require.NoError(t, svc.Create(context.Background(), draftCoupon()))
	require.NotNil(t, repo.created)
	assert.Equal(t, "SPRING24", repo.created.Code)
}

func TestServiceCreateRejectsInvalidConfig(t *testing.T) {
	repo := &mockCouponRepo{}
	svc := NewService(repo, &mockProductRepo{}, nil)

	c := draftCoupon()
	c.EndDate = c.StartDate.AddDate(0, 0, -1)

	err := svc.Create(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Nil(t, repo.created)
}

func TestServiceScopeConsistency(t *testing.T) {
	products := &mockProductRepo{products: map[string]catalog.Product{
		"p-1": {ID: "p-1", Categories: refset.FromIDs("c-1")},
		"p-2": {ID: "p-2", Categories: refset.FromIDs("c-2")},
	}}

	tests := []struct {
		name          string
		categoryScope refset.Ref
		productScope  refset.Ref
		wantErr       bool
	}{
		{
			name:          "product inside scoped category",
			categoryScope: refset.FromIDs("c-1"),
			productScope:  refset.FromIDs("p-1"),
		},
		{
			name:          "product outside scoped category",
			categoryScope: refset.FromIDs("c-1"),
			productScope:  refset.FromIDs("p-2"),
			wantErr:       true,
		},
		{
			name:          "unknown product in scope",
			categoryScope: refset.FromIDs("c-1"),
			productScope:  refset.FromIDs("p-404"),
			wantErr:       true,
		},
		{
			name:         "product scope alone is not checked against categories",
			productScope: refset.FromIDs("p-2"),
		},
		{
			name:          "category scope alone needs no product lookup",
			categoryScope: refset.FromIDs("c-1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{}
			svc := NewService(repo, products, nil)

			c := draftCoupon()
			c.CategoryScope = tt.categoryScope
			c.ProductScope = tt.productScope

			err := svc.Create(context.Background(), c)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServiceScopeConsistencyCatalogFailure(t *testing.T) {
	products := &mockProductRepo{err: errors.New("catalog down")}
	svc := NewService(&mockCouponRepo{}, products, nil)

	c := draftCoupon()
	c.CategoryScope = refset.FromIDs("c-1")
	c.ProductScope = refset.FromIDs("p-1")

	err := svc.Create(context.Background(), c)
	require.Error(t, err)
	// A catalog outage is not a configuration error.
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestServiceUpdateKeepsCodeImmutable(t *testing.T) {
	existing := draftCoupon()
	existing.Code = "SPRING24"
	repo := &mockCouponRepo{byCode: map[string]*Coupon{"SPRING24": existing}}
	svc := NewService(repo, &mockProductRepo{}, nil)

	edit := draftCoupon()
	edit.Code = "HIJACKED"
	edit.Description = "updated terms"

	require.NoError(t, svc.Update(context.Background(), "SPRING24", edit))
	require.NotNil(t, repo.updated)
	assert.Equal(t, "SPRING24", repo.updated.Code)
	assert.Equal(t, "updated terms", repo.updated.Description)
}

func TestServiceUpdateUnknownCode(t *testing.T) {
	svc := NewService(&mockCouponRepo{}, &mockProductRepo{}, nil)

	err := svc.Update(context.Background(), "NOPE", draftCoupon())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
