package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/agrimarket/internal/model"
)

const cartLineColumns = `id, user_id, product_id, quantity, created_at, updated_at`

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
// 重複行の防止はuq_cart_lines_user_product一意制約に委ねる。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// Add は行を追加する。(user_id, product_id)が既に存在する場合は数量を加算する。
// INSERT ... ON CONFLICTの1文で実行するため、同時追加でも行は1つに保たれる。
func (r *PostgresCartRepo) Add(ctx context.Context, line *model.CartLine) (*model.CartLine, error) {
	return addCartLine(ctx, r.db, line)
}

func addCartLine(ctx context.Context, q queryer, line *model.CartLine) (*model.CartLine, error) {
	merged := &model.CartLine{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO cart_lines (id, user_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity,
		               updated_at = EXCLUDED.updated_at
		 RETURNING `+cartLineColumns,
		line.ID, line.UserID, line.ProductID, line.Quantity, line.CreatedAt,
	).Scan(&merged.ID, &merged.UserID, &merged.ProductID, &merged.Quantity, &merged.CreatedAt, &merged.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("カート行の追加に失敗しました: %w", err)
	}
	return merged, nil
}

// UpdateQuantity はユーザー所有の行の数量を設定する。見つからない場合はnilを返す。
func (r *PostgresCartRepo) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error) {
	line := &model.CartLine{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE cart_lines SET quantity = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+cartLineColumns,
		lineID, userID, quantity,
	).Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カート行の数量更新に失敗しました: %w", err)
	}
	return line, nil
}

// Delete はユーザー所有の行を削除する。削除した場合はtrueを返す。
func (r *PostgresCartRepo) Delete(ctx context.Context, userID, lineID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`,
		lineID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("カート行の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// ListItems はユーザーのカート行を商品とLEFT JOINして作成順に返す。
func (r *PostgresCartRepo) ListItems(ctx context.Context, userID string) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cl.id, cl.user_id, cl.product_id, cl.quantity, cl.created_at, cl.updated_at, `+joinedProductColumns+`
		 FROM cart_lines cl
		 LEFT JOIN products p ON p.id = cl.product_id
		 WHERE cl.user_id = $1
		 ORDER BY cl.created_at ASC, cl.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		var np nullableProduct
		dest := append([]any{
			&item.Line.ID, &item.Line.UserID, &item.Line.ProductID, &item.Line.Quantity,
			&item.Line.CreatedAt, &item.Line.UpdatedAt,
		}, np.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("カート行の読み取りに失敗しました: %w", err)
		}
		item.Product = np.product()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カートの走査に失敗しました: %w", err)
	}
	return items, nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
