package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category は商品カテゴリを表す。
// ProductCount は非正規化カウンタで、再集計ジョブにより実際の商品数へ収束する。
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product はマーケットプレイスの商品を表す。
// カート行とウィッシュリスト項目からは読み取り専用で参照される。
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"category_id"`
	Description *string         `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasValidPrice は価格が合計計算に使える値かどうかを返す。
func (p *Product) HasValidPrice() bool {
	return p != nil && !p.Price.IsNegative()
}
