package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/agrimarket/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, product_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Description, c.ProductCount, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, product_count, created_at FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	return c, nil
}

// List は全カテゴリを名前順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, product_count, created_at FROM categories ORDER BY name ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// Recount はproduct_countを実際の商品数で再計算し、更新後のカテゴリを返す。
// カテゴリが存在しない場合はnilを返す。
func (r *PostgresCategoryRepo) Recount(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE categories c
		 SET product_count = (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
		 WHERE c.id = $1
		 RETURNING c.id, c.name, c.description, c.product_count, c.created_at`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ProductCount, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品数の再計算に失敗しました: %w", err)
	}
	return c, nil
}

// RecountAll は全カテゴリのproduct_countを再計算し、商品を持つカテゴリの数を返す。
// 商品が1件もないカテゴリは0に更新される。
func (r *PostgresCategoryRepo) RecountAll(ctx context.Context) (int64, error) {
	var counted int64
	err := r.db.QueryRowContext(ctx,
		`WITH recounted AS (
		     UPDATE categories c
		     SET product_count = COALESCE(counts.n, 0)
		     FROM categories c2
		     LEFT JOIN (
		         SELECT category_id, COUNT(*) AS n FROM products GROUP BY category_id
		     ) counts ON counts.category_id = c2.id
		     WHERE c.id = c2.id
		     RETURNING c.product_count
		 )
		 SELECT COUNT(*) FILTER (WHERE product_count > 0) FROM recounted`,
	).Scan(&counted)
	if err != nil {
		return 0, fmt.Errorf("全カテゴリの商品数再計算に失敗しました: %w", err)
	}
	return counted, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
