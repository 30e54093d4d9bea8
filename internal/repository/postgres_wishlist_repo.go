package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/agrimarket/internal/model"
)

// ErrProductNotFound は移動対象の商品が既に存在しないことを示す。
var ErrProductNotFound = errors.New("product not found")

// PostgresWishlistRepo はPostgreSQLを使用したウィッシュリストリポジトリ。
type PostgresWishlistRepo struct {
	db *sql.DB
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db}
}

// Add は項目を冪等に追加する。
// ON CONFLICT DO NOTHINGで挿入されなかった場合は既存項目を読み直してfalseを返す。
// 読み直しの前に既存項目が削除されていた場合は挿入を1回だけやり直す。
func (r *PostgresWishlistRepo) Add(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, bool, error) {
	return retryVanished(func() (*model.WishlistEntry, bool, error) {
		return r.insertOrSelect(ctx, entry)
	})
}

// retryVanished はsql.ErrNoRowsで失敗した場合に限りfnをもう1回だけ実行する。
func retryVanished(fn func() (*model.WishlistEntry, bool, error)) (*model.WishlistEntry, bool, error) {
	saved, created, err := fn()
	if errors.Is(err, sql.ErrNoRows) {
		saved, created, err = fn()
	}
	if err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

func (r *PostgresWishlistRepo) insertOrSelect(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, bool, error) {
	saved := &model.WishlistEntry{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO wishlist_entries (id, user_id, product_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, product_id) DO NOTHING
		 RETURNING id, user_id, product_id, created_at`,
		entry.ID, entry.UserID, entry.ProductID, entry.CreatedAt,
	).Scan(&saved.ID, &saved.UserID, &saved.ProductID, &saved.CreatedAt)

	if err == nil {
		return saved, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("ウィッシュリスト項目の追加に失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, created_at FROM wishlist_entries
		 WHERE user_id = $1 AND product_id = $2`,
		entry.UserID, entry.ProductID,
	).Scan(&saved.ID, &saved.UserID, &saved.ProductID, &saved.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("既存ウィッシュリスト項目の取得に失敗しました: %w", err)
	}
	return saved, false, nil
}

// Delete はユーザー所有の項目を削除する。削除した場合はtrueを返す。
func (r *PostgresWishlistRepo) Delete(ctx context.Context, userID, entryID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_entries WHERE id = $1 AND user_id = $2`,
		entryID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("ウィッシュリスト項目の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// ListItems はユーザーのウィッシュリストを商品とLEFT JOINして作成順に返す。
func (r *PostgresWishlistRepo) ListItems(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.product_id, w.created_at, `+joinedProductColumns+`
		 FROM wishlist_entries w
		 LEFT JOIN products p ON p.id = w.product_id
		 WHERE w.user_id = $1
		 ORDER BY w.created_at ASC, w.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ウィッシュリストの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.WishlistItem{}
	for rows.Next() {
		var item model.WishlistItem
		var np nullableProduct
		dest := append([]any{
			&item.Entry.ID, &item.Entry.UserID, &item.Entry.ProductID, &item.Entry.CreatedAt,
		}, np.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ウィッシュリスト行の読み取りに失敗しました: %w", err)
		}
		item.Product = np.product()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ウィッシュリストの走査に失敗しました: %w", err)
	}
	return items, nil
}

// MoveToCart は項目を削除し、同一トランザクションでカートに追加する。
// 項目が見つからない場合はnilを返す。
// 商品が既に削除されている場合はErrProductNotFoundを返し、項目は残す。
// このときline.ProductIDには項目の商品IDが入る。
func (r *PostgresWishlistRepo) MoveToCart(ctx context.Context, userID, entryID string, line *model.CartLine) (*model.CartLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var productID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM wishlist_entries WHERE id = $1 AND user_id = $2 RETURNING product_id`,
		entryID, userID,
	).Scan(&productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ウィッシュリスト項目の削除に失敗しました: %w", err)
	}

	line.UserID = userID
	line.ProductID = productID

	// 移動中に商品が削除されないよう共有ロックを取る
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM products WHERE id = $1 FOR SHARE`, productID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("商品の確認に失敗しました: %w", err)
	}

	merged, err := addCartLine(ctx, tx, line)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return merged, nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
