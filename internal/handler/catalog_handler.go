package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/agrimarket/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListProducts(ctx context.Context, limit int) ([]*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	ListByCategory(ctx context.Context, categoryID string) ([]*model.Product, error)
}

// CatalogHandler は商品とカテゴリの参照APIのハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListProducts はランダム順の商品一覧を返す。
// GET /api/products?limit=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	products, err := h.service.ListProducts(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": toProductResponses(products)})
}

// GetProduct は商品詳細を返す。
// GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// ListByCategory はカテゴリに属する商品を返す。
// GET /api/categories/{id}/products
func (h *CatalogHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": toProductResponses(products)})
}
