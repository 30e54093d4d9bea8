package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine は1ユーザー・1商品あたり1行のカート行を表す。
// (UserID, ProductID) はストア側の一意インデックスで保証される。
type CartLine struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem はカート行と参照先商品の結合結果。
// 商品が削除済みの場合 Product は nil になる。
type CartItem struct {
	Line    CartLine
	Product *Product
}

// Subtotal は行の小計を返す。商品が解決できない場合は false を返す。
func (c CartItem) Subtotal() (decimal.Decimal, bool) {
	if !c.Product.HasValidPrice() {
		return decimal.Zero, false
	}
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Line.Quantity))), true
}

// CartView はカートの結合ビュー。
// Total は Items から計算され、常に各行小計の和と一致する。
type CartView struct {
	Items      []CartItem
	Total      decimal.Decimal
	ItemCount  int
	Unresolved int
}
