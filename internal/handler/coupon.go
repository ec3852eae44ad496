package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/internal/domain/coupon"
	"github.com/cartfox/market-admin/pkg/refset"
)

const dateLayout = "2006-01-02"

// couponPayload is the create/update request body. Scope fields accept
// any supported reference shape and are kept raw until the handler's
// normalizer decodes them with the configured identifier keys.
type couponPayload struct {
	Code             string          `json:"code" validate:"required,min=3,max=32,alphanum"`
	Description      string          `json:"description" validate:"max=500"`
	Type             string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value            decimal.Decimal `json:"value"`
	MinOrderValue    decimal.Decimal `json:"min_order_value"`
	MaxDiscountValue decimal.Decimal `json:"max_discount_value"`
	StartDate        string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsActive         *bool           `json:"is_active"`
	MaxUses          int             `json:"max_uses" validate:"gte=0"`
	MaxUsesPerUser   *int            `json:"max_uses_per_user" validate:"omitempty,gte=0"`
	CategoryScope    json.RawMessage `json:"category_scope"`
	ProductScope     json.RawMessage `json:"product_scope"`
}

func (h *Handler) couponFromPayload(p *couponPayload) (*coupon.Coupon, error) {
	categoryScope, err := h.decodeScope(p.CategoryScope)
	if err != nil {
		return nil, errors.Wrap(err, "category_scope")
	}
	productScope, err := h.decodeScope(p.ProductScope)
	if err != nil {
		return nil, errors.Wrap(err, "product_scope")
	}

	start, _ := time.Parse(dateLayout, p.StartDate)
	end, _ := time.Parse(dateLayout, p.EndDate)

	// The panel's create form defaults to one redemption per user;
	// unlimited (0) must be asked for explicitly.
	perUser := 1
	if p.MaxUsesPerUser != nil {
		perUser = *p.MaxUsesPerUser
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}

	return &coupon.Coupon{
		Code:             p.Code,
		Description:      p.Description,
		Type:             coupon.DiscountType(p.Type),
		Value:            p.Value,
		MinOrderValue:    p.MinOrderValue,
		MaxDiscountValue: p.MaxDiscountValue,
		StartDate:        start,
		EndDate:          end,
		Active:           active,
		MaxUses:          p.MaxUses,
		MaxUsesPerUser:   perUser,
		CategoryScope:    categoryScope,
		ProductScope:     productScope,
	}, nil
}

func (h *Handler) decodeScope(raw json.RawMessage) (refset.Ref, error) {
	if len(raw) == 0 {
		return refset.Ref{}, nil
	}
	return h.norm.DecodeRef(raw)
}

type couponResponse struct {
	Code             string          `json:"code"`
	Description      string          `json:"description"`
	Type             string          `json:"type"`
	Value            decimal.Decimal `json:"value"`
	MinOrderValue    decimal.Decimal `json:"min_order_value"`
	MaxDiscountValue decimal.Decimal `json:"max_discount_value"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	IsActive         bool            `json:"is_active"`
	MaxUses          int             `json:"max_uses"`
	MaxUsesPerUser   int             `json:"max_uses_per_user"`
	CategoryScope    refset.Ref      `json:"category_scope"`
	ProductScope     refset.Ref      `json:"product_scope"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		Code:             c.Code,
		Description:      c.Description,
		Type:             string(c.Type),
		Value:            c.Value,
		MinOrderValue:    c.MinOrderValue,
		MaxDiscountValue: c.MaxDiscountValue,
		StartDate:        c.StartDate.Format(dateLayout),
		EndDate:          c.EndDate.Format(dateLayout),
		IsActive:         c.Active,
		MaxUses:          c.MaxUses,
		MaxUsesPerUser:   c.MaxUsesPerUser,
		CategoryScope:    c.CategoryScope,
		ProductScope:     c.ProductScope,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

type couponListResponse struct {
	Coupons []couponResponse `json:"coupons"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := coupon.ListParams{
		Page:    intQuery(q.Get("page"), 1),
		PerPage: intQuery(q.Get("per_page"), 20),
		Query:   q.Get("q"),
	}

	coupons, total, err := h.coupons.List(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := couponListResponse{
		Coupons: make([]couponResponse, len(coupons)),
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	for i := range coupons {
		resp.Coupons[i] = toCouponResponse(&coupons[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeValidationError(w, err)
		return
	}

	c, err := h.couponFromPayload(&payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	// The code in the payload is ignored; only the path identifies the
	// coupon. Relax the payload check accordingly.
	payload.Code = chi.URLParam(r, "code")
	if err := h.validate.Struct(&payload); err != nil {
		writeValidationError(w, err)
		return
	}

	c, err := h.couponFromPayload(&payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.coupons.Update(r.Context(), chi.URLParam(r, "code"), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCouponActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if err := h.coupons.SetActive(r.Context(), code, active); err != nil {
			writeDomainError(w, r, err)
			return
		}
		c, err := h.coupons.Get(r.Context(), code)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCouponResponse(c))
	}
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
