package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/internal/domain/coupon"
	"github.com/cartfox/market-admin/internal/domain/redeem"
)

type evaluatePayload struct {
	ProductID string          `json:"product_id" validate:"required"`
	UserID    string          `json:"user_id" validate:"required"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type evaluateResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Scope    string `json:"scope,omitempty"`
	// Discount and Total are present only on acceptance.
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
}

func toEvaluateResponse(ev *redeem.Evaluation, subtotal decimal.Decimal) evaluateResponse {
	res := ev.Result
	if !res.Accepted {
		out := evaluateResponse{Reason: string(res.Reason)}
		if res.Reason == coupon.ReasonScopeMismatch {
			out.Scope = string(res.Scope)
		}
		return out
	}

	total := subtotal.Sub(res.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	discount := res.Discount
	return evaluateResponse{
		Accepted: true,
		Discount: &discount,
		Total:    &total,
	}
}

// evaluateCoupon reports whether the coupon would apply, without
// consuming a redemption. The panel uses it for previews.
func (h *Handler) evaluateCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEvaluate(w, r)
	if !ok {
		return
	}

	ev, err := h.redeem.Evaluate(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluateResponse(ev, req.Subtotal))
}

// redeemCoupon evaluates and, on acceptance, commits the redemption.
func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEvaluate(w, r)
	if !ok {
		return
	}

	ev, err := h.redeem.Redeem(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluateResponse(ev, req.Subtotal))
}

func (h *Handler) decodeEvaluate(w http.ResponseWriter, r *http.Request) (redeem.Request, bool) {
	var payload evaluatePayload
	if !decodeBody(w, r, &payload) {
		return redeem.Request{}, false
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeValidationError(w, err)
		return redeem.Request{}, false
	}
	if payload.Subtotal.IsNegative() {
		writeError(w, http.StatusBadRequest, "subtotal must not be negative")
		return redeem.Request{}, false
	}

	return redeem.Request{
		Code:      chi.URLParam(r, "code"),
		ProductID: payload.ProductID,
		UserID:    payload.UserID,
		Subtotal:  payload.Subtotal,
	}, true
}
