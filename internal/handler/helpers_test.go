package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/agrimarket/internal/cart"
	"github.com/hitoshi/agrimarket/internal/catalog"
	"github.com/hitoshi/agrimarket/internal/middleware"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/prediction"
	"github.com/hitoshi/agrimarket/internal/user"
	"github.com/shopspring/decimal"
)

// withUserID はリクエストコンテキストにユーザーIDを注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d", w.Code, status)
	}
	body := decodeBody[apiErrorResponse](t, w)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}

// --- モック定義 ---

type mockCatalogService struct {
	listProductsFn   func(ctx context.Context, limit int) ([]*model.Product, error)
	getProductFn     func(ctx context.Context, productID string) (*model.Product, error)
	listCategoriesFn func(ctx context.Context) ([]*model.Category, error)
	listByCategoryFn func(ctx context.Context, categoryID string) ([]*model.Product, error)
	createCategoryFn func(ctx context.Context, name, description string) (*model.Category, error)
	createProductFn  func(ctx context.Context, in catalog.NewProductInput) (*model.Product, error)
	deleteProductFn  func(ctx context.Context, productID string) error
	recountAllFn     func(ctx context.Context) (int64, error)
}

func (m *mockCatalogService) ListProducts(ctx context.Context, limit int) ([]*model.Product, error) {
	if m.listProductsFn != nil {
		return m.listProductsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCatalogService) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, productID)
	}
	return nil, model.NewProductNotFoundError(productID)
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) ListByCategory(ctx context.Context, categoryID string) ([]*model.Product, error) {
	if m.listByCategoryFn != nil {
		return m.listByCategoryFn(ctx, categoryID)
	}
	return nil, nil
}

func (m *mockCatalogService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	return m.createCategoryFn(ctx, name, description)
}

func (m *mockCatalogService) CreateProduct(ctx context.Context, in catalog.NewProductInput) (*model.Product, error) {
	return m.createProductFn(ctx, in)
}

func (m *mockCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	return m.deleteProductFn(ctx, productID)
}

func (m *mockCatalogService) RecountAll(ctx context.Context) (int64, error) {
	return m.recountAllFn(ctx)
}

type mockCartService struct {
	addToCartFn      func(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error)
	updateQuantityFn func(ctx context.Context, userID, lineID string, quantity int) (*cart.UpdateResult, error)
	removeFn         func(ctx context.Context, userID, lineID string) error
	getCartFn        func(ctx context.Context, userID string) (*model.CartView, error)
	getTotalFn       func(ctx context.Context, userID string) (decimal.Decimal, error)
}

func (m *mockCartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
	return m.addToCartFn(ctx, userID, productID, quantity)
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*cart.UpdateResult, error) {
	return m.updateQuantityFn(ctx, userID, lineID, quantity)
}

func (m *mockCartService) RemoveFromCart(ctx context.Context, userID, lineID string) error {
	return m.removeFn(ctx, userID, lineID)
}

func (m *mockCartService) GetCart(ctx context.Context, userID string) (*model.CartView, error) {
	if m.getCartFn != nil {
		return m.getCartFn(ctx, userID)
	}
	return &model.CartView{}, nil
}

func (m *mockCartService) GetTotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	return m.getTotalFn(ctx, userID)
}

type mockWishlistService struct {
	addFn         func(ctx context.Context, userID, productID string) (*model.WishlistEntry, bool, error)
	removeFn      func(ctx context.Context, userID, entryID string) error
	getWishlistFn func(ctx context.Context, userID string) ([]model.WishlistItem, error)
	moveToCartFn  func(ctx context.Context, userID, entryID string) (*model.CartLine, error)
}

func (m *mockWishlistService) AddToWishlist(ctx context.Context, userID, productID string) (*model.WishlistEntry, bool, error) {
	return m.addFn(ctx, userID, productID)
}

func (m *mockWishlistService) RemoveFromWishlist(ctx context.Context, userID, entryID string) error {
	return m.removeFn(ctx, userID, entryID)
}

func (m *mockWishlistService) GetWishlist(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	if m.getWishlistFn != nil {
		return m.getWishlistFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockWishlistService) MoveToCart(ctx context.Context, userID, entryID string) (*model.CartLine, error) {
	return m.moveToCartFn(ctx, userID, entryID)
}

type mockUserService struct {
	syncFn     func(ctx context.Context, p user.Profile) (*model.User, bool, error)
	meFn       func(ctx context.Context, userID string) (*model.User, error)
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Sync(ctx context.Context, p user.Profile) (*model.User, bool, error) {
	return m.syncFn(ctx, p)
}

func (m *mockUserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockCheckoutService struct {
	createOrderFn func(ctx context.Context, userID string) (*model.PaymentOrder, error)
}

func (m *mockCheckoutService) CreateOrder(ctx context.Context, userID string) (*model.PaymentOrder, error) {
	return m.createOrderFn(ctx, userID)
}

type mockNewsService struct {
	feed *model.NewsFeed
}

func (m *mockNewsService) Latest(ctx context.Context) *model.NewsFeed {
	return m.feed
}

type mockPredictionService struct {
	maxUpload int64
	predictFn func(ctx context.Context, u prediction.Upload) (*model.Prediction, error)
}

func (m *mockPredictionService) MaxUpload() int64 { return m.maxUpload }

func (m *mockPredictionService) Predict(ctx context.Context, u prediction.Upload) (*model.Prediction, error) {
	return m.predictFn(ctx, u)
}
