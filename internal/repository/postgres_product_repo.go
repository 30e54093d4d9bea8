package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/lib/pq"
)

const productColumns = `id, name, price, category_id, description, tags, image_url, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

func scanProduct(s rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var tags pq.StringArray
	if err := s.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID, &p.Description, &tags, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tags = []string(tags)
	return p, nil
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, p *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Price, p.CategoryID, p.Description, pq.Array(p.Tags), p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return p, nil
}

// ListRecent は作成日時の新しい順に最大limit件の商品を返す。
func (r *PostgresProductRepo) ListRecent(ctx context.Context, limit int) ([]*model.Product, error) {
	return r.list(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
}

// ListByCategory はidx_products_category_idを使ってカテゴリの商品を返す。
func (r *PostgresProductRepo) ListByCategory(ctx context.Context, categoryID string) ([]*model.Product, error) {
	return r.list(ctx,
		`SELECT `+productColumns+` FROM products WHERE category_id = $1 ORDER BY created_at DESC, id DESC`,
		categoryID,
	)
}

// Delete は商品を削除する。削除した場合はtrueを返す。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresProductRepo) list(ctx context.Context, query string, args ...any) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("商品行の読み取りに失敗しました: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品一覧の走査に失敗しました: %w", err)
	}
	return products, nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
