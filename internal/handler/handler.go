// Package handler exposes the admin panel's REST API over chi.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/internal/domain/coupon"
	"github.com/cartfox/market-admin/internal/domain/redeem"
	"github.com/cartfox/market-admin/pkg/refset"
)

// Handler carries the services the HTTP layer delegates to.
type Handler struct {
	coupons    *coupon.Service
	redeem     *redeem.Service
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	norm       *refset.Normalizer
	validate   *validator.Validate
}

// New constructs a Handler with the required domain dependencies. The
// normalizer decodes scope and category references in request bodies,
// so the configured identifier keys apply to wire data.
func New(
	coupons *coupon.Service,
	redeemSvc *redeem.Service,
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	norm *refset.Normalizer,
) *Handler {
	if norm == nil {
		norm = refset.NewNormalizer(nil)
	}
	return &Handler{
		coupons:    coupons,
		redeem:     redeemSvc,
		products:   products,
		categories: categories,
		norm:       norm,
		validate:   validator.New(),
	}
}

// Routes mounts all API routes on a fresh router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.listCoupons)
		r.Post("/", h.createCoupon)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getCoupon)
			r.Put("/", h.updateCoupon)
			r.Delete("/", h.deleteCoupon)
			r.Post("/activate", h.setCouponActive(true))
			r.Post("/deactivate", h.setCouponActive(false))
			r.Post("/evaluate", h.evaluateCoupon)
			r.Post("/redeem", h.redeemCoupon)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Get("/{id}", h.getCategory)
	})

	return r
}
