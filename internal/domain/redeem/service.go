// Package redeem orchestrates coupon evaluation: it gathers the coupon,
// the product, and a usage snapshot from their collaborators, runs the
// pure resolver, and optionally commits a redemption.
package redeem

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/internal/domain/coupon"
)

// Service evaluates and redeems coupons.
type Service struct {
	coupons  coupon.Repository
	products catalog.ProductRepository
	usage    coupon.UsageReader
	recorder coupon.UsageRecorder
	resolver *coupon.Resolver
	now      func() time.Time
}

// NewService creates a redeem Service with the required collaborators.
func NewService(
	coupons coupon.Repository,
	products catalog.ProductRepository,
	usage coupon.UsageReader,
	recorder coupon.UsageRecorder,
	resolver *coupon.Resolver,
) *Service {
	return &Service{
		coupons:  coupons,
		products: products,
		usage:    usage,
		recorder: recorder,
		resolver: resolver,
		now:      time.Now,
	}
}

// Request identifies what is being evaluated: one coupon against one
// product for one user's order subtotal.
type Request struct {
	Code      string
	ProductID string
	UserID    string
	Subtotal  decimal.Decimal
}

// Evaluation pairs the loaded coupon with its resolution result.
type Evaluation struct {
	Coupon *coupon.Coupon
	Result coupon.Result
}

// Evaluate resolves the coupon without mutating any usage counter.
//
// An unknown coupon code returns coupon.ErrNotFound. An unknown product
// is not an outage: the coupon is simply not applicable to it, reported
// as a product-scope rejection. Any other collaborator failure
// propagates as an error, so a transient backend outage is never
// misreported as an invalid coupon.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	c, err := s.coupons.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "load coupon")
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &Evaluation{
				Coupon: c,
				Result: coupon.ScopeRejection(coupon.ScopeProductMismatch),
			}, nil
		}
		return nil, errors.Wrap(err, "load product")
	}

	usage, err := s.usage.Snapshot(ctx, c.Code, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "read usage counters")
	}

	return &Evaluation{
		Coupon: c,
		Result: s.resolver.Resolve(c, p, req.Subtotal, usage, s.now()),
	}, nil
}

// Redeem evaluates the coupon and, on acceptance, commits the redemption
// through the usage recorder. The recorder re-checks both caps under a
// transaction; losing that race downgrades the result to the matching
// usage rejection instead of double-spending the coupon.
func (s *Service) Redeem(ctx context.Context, req Request) (*Evaluation, error) {
	ev, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ev.Result.Accepted {
		return ev, nil
	}

	err = s.recorder.CommitRedemption(ctx, ev.Coupon.Code, req.UserID, ev.Coupon.MaxUses, ev.Coupon.MaxUsesPerUser)
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, coupon.ErrTotalUsesExhausted):
		ev.Result = coupon.Result{Reason: coupon.ReasonTotalUsesExhausted}
		return ev, nil
	case errors.Is(err, coupon.ErrUserUsesExhausted):
		ev.Result = coupon.Result{Reason: coupon.ReasonUserUsesExhausted}
		return ev, nil
	default:
		return nil, errors.Wrap(err, "commit redemption")
	}
}
