package model

import "time"

// WishlistEntry は1ユーザー・1商品あたり高々1件のウィッシュリスト項目を表す。
type WishlistEntry struct {
	ID        string
	UserID    string
	ProductID string
	CreatedAt time.Time
}

// WishlistItem はウィッシュリスト項目と参照先商品の結合結果。
type WishlistItem struct {
	Entry   WishlistEntry
	Product *Product
}
