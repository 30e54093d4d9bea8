// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/agrimarket/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile は認証プロバイダーから同期したプロフィールを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// identities、cart_lines、wishlist_entriesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部認証IDの紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindUserIDBySubject は認証プロバイダのsubjectに紐づく利用者IDを返す。
	// 見つからない場合は空文字を返す。
	FindUserIDBySubject(ctx context.Context, provider, subject string) (string, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// List は全カテゴリを名前順で返す。
	List(ctx context.Context) ([]*model.Category, error)

	// Recount はproduct_countを実際の商品数で再計算し、更新後のカテゴリを返す。
	// 単一のUPDATE文で実行するため冪等で、商品の書き込みと並行しても安全。
	// カテゴリが存在しない場合はnilを返す。
	Recount(ctx context.Context, id string) (*model.Category, error)

	// RecountAll は全カテゴリのproduct_countを再計算し、商品を持つカテゴリの数を返す。
	RecountAll(ctx context.Context) (int64, error)
}

// ProductRepository は商品の永続化インターフェース。
type ProductRepository interface {
	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// ListRecent は作成日時の新しい順に最大limit件の商品を返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Product, error)

	// ListByCategory はcategory_idインデックスを使ってカテゴリの商品を返す。
	ListByCategory(ctx context.Context, categoryID string) ([]*model.Product, error)

	// Delete は商品を削除する。削除した場合はtrueを返す。
	// 参照しているカート行・ウィッシュリスト項目は残る。
	Delete(ctx context.Context, id string) (bool, error)
}

// CartRepository はカート行の永続化インターフェース。
type CartRepository interface {
	// Add は(user_id, product_id)の一意制約を使って行を原子的に追加またはマージする。
	// 既存行がある場合は数量を加算し、マージ後の行を返す。
	Add(ctx context.Context, line *model.CartLine) (*model.CartLine, error)

	// UpdateQuantity はユーザー所有の行の数量を設定する。見つからない場合はnilを返す。
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error)

	// Delete はユーザー所有の行を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, userID, lineID string) (bool, error)

	// ListItems はユーザーのカート行を商品とLEFT JOINして作成順に返す。
	// 商品が存在しない行はProductがnilになる。
	ListItems(ctx context.Context, userID string) ([]model.CartItem, error)
}

// WishlistRepository はウィッシュリストの永続化インターフェース。
type WishlistRepository interface {
	// Add は項目を冪等に追加する。既存の場合は既存項目とfalseを返す。
	Add(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, bool, error)

	// Delete はユーザー所有の項目を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, userID, entryID string) (bool, error)

	// ListItems はユーザーのウィッシュリストを商品とLEFT JOINして作成順に返す。
	ListItems(ctx context.Context, userID string) ([]model.WishlistItem, error)

	// MoveToCart は項目を削除し、同一トランザクションでカートに追加する。
	// 項目が見つからない場合はnilを、商品が存在しない場合はErrProductNotFoundを返す。
	MoveToCart(ctx context.Context, userID, entryID string, line *model.CartLine) (*model.CartLine, error)
}

// queryer は*sql.DBと*sql.Txの共通部分。
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
