package handler

import (
	"time"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/shopspring/decimal"
)

// productResponse は商品のAPIレスポンス。価格は文字列の10進数で返す。
type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags"`
	ImageURL    string          `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// cartItemResponse はカート行のAPIレスポンス。
// 商品が削除済みの場合productはnull、subtotalは0になる。
type cartItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Product   *productResponse `json:"product"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
}

// cartResponse はカートのAPIレスポンス。
type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	Total      decimal.Decimal    `json:"total"`
	ItemCount  int                `json:"item_count"`
	Unresolved int                `json:"unresolved"`
}

// cartLineResponse は更新されたカート行のAPIレスポンス。
type cartLineResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// wishlistItemResponse はウィッシュリスト項目のAPIレスポンス。
type wishlistItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Product   *productResponse `json:"product"`
	CreatedAt time.Time        `json:"created_at"`
}

// wishlistResponse はウィッシュリストのAPIレスポンス。
type wishlistResponse struct {
	Items []wishlistItemResponse `json:"items"`
	Count int                    `json:"count"`
}

// userResponse はプロフィールのAPIレスポンス。
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

func toProductResponse(p *model.Product) *productResponse {
	if p == nil {
		return nil
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return &productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		Description: deref(p.Description),
		Tags:        tags,
		ImageURL:    deref(p.ImageURL),
		CreatedAt:   p.CreatedAt,
	}
}

func toProductResponses(products []*model.Product) []*productResponse {
	out := make([]*productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  deref(c.Description),
		ProductCount: c.ProductCount,
		CreatedAt:    c.CreatedAt,
	}
}

func toCartResponse(view *model.CartView) cartResponse {
	items := make([]cartItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		subtotal, _ := item.Subtotal()
		items = append(items, cartItemResponse{
			ID:        item.Line.ID,
			ProductID: item.Line.ProductID,
			Quantity:  item.Line.Quantity,
			Product:   toProductResponse(item.Product),
			Subtotal:  subtotal,
		})
	}
	return cartResponse{
		Items:      items,
		Total:      view.Total,
		ItemCount:  view.ItemCount,
		Unresolved: view.Unresolved,
	}
}

func toCartLineResponse(line *model.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UpdatedAt: line.UpdatedAt,
	}
}

func toWishlistResponse(items []model.WishlistItem) wishlistResponse {
	out := make([]wishlistItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, wishlistItemResponse{
			ID:        item.Entry.ID,
			ProductID: item.Entry.ProductID,
			Product:   toProductResponse(item.Product),
			CreatedAt: item.Entry.CreatedAt,
		})
	}
	return wishlistResponse{Items: out, Count: len(out)}
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		ImageURL: deref(u.ImageURL),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
