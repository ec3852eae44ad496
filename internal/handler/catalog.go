package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartfox/market-admin/internal/domain/catalog"
	"github.com/cartfox/market-admin/pkg/refset"
)

type productPayload struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Price      decimal.Decimal `json:"price" validate:"required"`
	BrandID    string          `json:"brand_id"`
	StoreID    string          `json:"store_id"`
	Categories json.RawMessage `json:"categories"`
}

type productResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	BrandID    string          `json:"brand_id,omitempty"`
	StoreID    string          `json:"store_id,omitempty"`
	Categories refset.Ref      `json:"categories"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toProductResponse(p *catalog.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		BrandID:    p.BrandID,
		StoreID:    p.StoreID,
		Categories: p.Categories,
		CreatedAt:  p.CreatedAt,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeValidationError(w, err)
		return
	}
	if payload.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	categories, err := h.decodeScope(payload.Categories)
	if err != nil {
		writeError(w, http.StatusBadRequest, "categories: "+err.Error())
		return
	}

	p := catalog.Product{
		ID:         uuid.NewString(),
		Name:       payload.Name,
		Price:      payload.Price,
		BrandID:    payload.BrandID,
		StoreID:    payload.StoreID,
		Categories: categories,
	}
	if err := h.products.Create(r.Context(), &p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(&p))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type categoryPayload struct {
	Name     string `json:"name" validate:"required,max=200"`
	ParentID string `json:"parent_id"`
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponse(c *catalog.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryResponse(&categories[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeValidationError(w, err)
		return
	}

	c := catalog.Category{
		ID:       uuid.NewString(),
		Name:     payload.Name,
		ParentID: payload.ParentID,
	}
	if err := h.categories.Create(r.Context(), &c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(&c))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}
