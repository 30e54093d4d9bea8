package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/agrimarket/internal/catalog"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/shopspring/decimal"
)

// AdminServiceInterface は管理APIが必要とするカタログ操作。
type AdminServiceInterface interface {
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	CreateProduct(ctx context.Context, in catalog.NewProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	RecountAll(ctx context.Context) (int64, error)
}

// AdminHandler はカタログ管理のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	ImageURL    string          `json:"image_url"`
}

// CreateCategory はカテゴリを作成する。
// POST /api/admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// CreateProduct は商品を作成する。
// POST /api/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), catalog.NewProductInput{
		Name:        req.Name,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// DeleteProduct は商品を削除する。カート行とウィッシュリスト項目は残る。
// DELETE /api/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recount は全カテゴリのproductCountを再集計する。
// updatedは商品を持つカテゴリの数。
// POST /api/admin/categories/recount
func (h *AdminHandler) Recount(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.RecountAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
