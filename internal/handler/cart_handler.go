package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/agrimarket/internal/cart"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/shopspring/decimal"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*cart.UpdateResult, error)
	RemoveFromCart(ctx context.Context, userID, lineID string) error
	GetCart(ctx context.Context, userID string) (*model.CartView, error)
	GetTotal(ctx context.Context, userID string) (decimal.Decimal, error)
}

// CartHandler はカートのHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface) *CartHandler {
	return &CartHandler{service: service}
}

// addCartItemRequest はカート追加リクエストのボディ。quantity省略時は1。
type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// updateQuantityRequest は数量変更リクエストのボディ。
type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart はカートを商品付きで返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

// GetTotal はカート合計を返す。
// GET /api/cart/total
func (h *CartHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	total, err := h.service.GetTotal(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total})
}

// AddItem は商品をカートに追加する。同じ商品の行があれば数量を加算する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, err := h.service.AddToCart(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLineResponse(line))
}

// UpdateItem は数量を変更する。0の場合は行を削除し204を返す。
// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("quantity is required"))
		return
	}

	result, err := h.service.UpdateQuantity(r.Context(), userID, chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if result.Removed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toCartLineResponse(result.Line))
}

// RemoveItem はカート行を削除する。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
