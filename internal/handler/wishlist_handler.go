package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/agrimarket/internal/model"
)

// WishlistServiceInterface はウィッシュリストハンドラーが必要とするサービスインターフェース。
type WishlistServiceInterface interface {
	AddToWishlist(ctx context.Context, userID, productID string) (*model.WishlistEntry, bool, error)
	RemoveFromWishlist(ctx context.Context, userID, entryID string) error
	GetWishlist(ctx context.Context, userID string) ([]model.WishlistItem, error)
	MoveToCart(ctx context.Context, userID, entryID string) (*model.CartLine, error)
}

// WishlistHandler はウィッシュリストのHTTPハンドラー。
type WishlistHandler struct {
	service WishlistServiceInterface
}

// NewWishlistHandler はWishlistHandlerを生成する。
func NewWishlistHandler(service WishlistServiceInterface) *WishlistHandler {
	return &WishlistHandler{service: service}
}

type addWishlistItemRequest struct {
	ProductID string `json:"product_id"`
}

type wishlistEntryResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Created   bool   `json:"created"`
}

// GetWishlist はウィッシュリストを返す。
// GET /api/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items, err := h.service.GetWishlist(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishlistResponse(items))
}

// AddItem は商品をウィッシュリストに追加する。登録済みの場合は200で既存項目を返す。
// POST /api/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req addWishlistItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, created, err := h.service.AddToWishlist(r.Context(), userID, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, wishlistEntryResponse{
		ID:        entry.ID,
		ProductID: entry.ProductID,
		Created:   created,
	})
}

// RemoveItem はウィッシュリスト項目を削除する。
// DELETE /api/wishlist/items/{id}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFromWishlist(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveToCart は項目をカートへ移す。
// POST /api/wishlist/items/{id}/move-to-cart
func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	line, err := h.service.MoveToCart(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLineResponse(line))
}
