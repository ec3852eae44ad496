package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

// Service wraps the coupon repository with save-time validation,
// including the scope-consistency check that needs the product catalog.
type Service struct {
	coupons  Repository
	products catalog.ProductRepository
	norm     *refset.Normalizer
}

// NewService creates a coupon Service.
func NewService(coupons Repository, products catalog.ProductRepository, norm *refset.Normalizer) *Service {
	if norm == nil {
		norm = refset.NewNormalizer(nil)
	}
	return &Service{
		coupons:  coupons,
		products: products,
		norm:     norm,
	}
}

// Create validates and persists a new coupon. Codes are stored
// upper-cased so lookups stay case-insensitive.
func (s *Service) Create(ctx context.Context, c *Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.checkScopeConsistency(ctx, c); err != nil {
		return err
	}
	return s.coupons.Create(ctx, c)
}

// Update validates and persists changes to an existing coupon. The code
// is immutable: whatever the payload carried, the stored code wins.
func (s *Service) Update(ctx context.Context, code string, c *Coupon) error {
	existing, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	c.Code = existing.Code
	c.CreatedAt = existing.CreatedAt

	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.checkScopeConsistency(ctx, c); err != nil {
		return err
	}
	return s.coupons.Update(ctx, c)
}

// Get returns a coupon by code.
func (s *Service) Get(ctx context.Context, code string) (*Coupon, error) {
	return s.coupons.GetByCode(ctx, code)
}

// List returns a page of coupons and the total match count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Coupon, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	return s.coupons.List(ctx, params)
}

// Delete removes a coupon. Usage history is kept by the usage tracker;
// only the rule itself goes away.
func (s *Service) Delete(ctx context.Context, code string) error {
	return s.coupons.Delete(ctx, code)
}

// SetActive toggles a coupon without touching its date window.
func (s *Service) SetActive(ctx context.Context, code string, active bool) error {
	return s.coupons.SetActive(ctx, code, active)
}

// checkScopeConsistency verifies that every product in ProductScope
// belongs to a category in CategoryScope when both scopes are set. It
// resolves the products through the catalog; unknown products are a
// configuration error at save time (unlike at resolution time, where
// they merely fail to match).
func (s *Service) checkScopeConsistency(ctx context.Context, c *Coupon) error {
	productIDs := s.norm.Normalize(c.ProductScope)
	categoryIDs := s.norm.Normalize(c.CategoryScope)
	if productIDs.Empty() || categoryIDs.Empty() {
		return nil
	}

	products, err := s.products.GetByIDs(ctx, productIDs.IDs())
	if err != nil {
		return errors.Wrap(err, "resolve product scope")
	}

	found := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		found[p.ID] = p
	}

	for _, id := range productIDs.IDs() {
		p, ok := found[id]
		if !ok {
			return configErrorf("product_scope references unknown product %q", id)
		}
		if !categoryIDs.Intersects(s.norm.Normalize(p.Categories)) {
			return configErrorf("product %q does not belong to the scoped category", id)
		}
	}
	return nil
}
