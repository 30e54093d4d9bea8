package repository

import (
	"database/sql"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// joinedProductColumns はLEFT JOIN先のproductsテーブル（別名p）のカラム。
const joinedProductColumns = `p.id, p.name, p.price, p.category_id, p.description, p.tags, p.image_url, p.created_at, p.updated_at`

// nullableProduct はLEFT JOINで商品が存在しない行をスキャンするための受け皿。
type nullableProduct struct {
	id          sql.NullString
	name        sql.NullString
	price       decimal.NullDecimal
	categoryID  sql.NullString
	description sql.NullString
	tags        pq.StringArray
	imageURL    sql.NullString
	createdAt   sql.NullTime
	updatedAt   sql.NullTime
}

func (n *nullableProduct) dest() []any {
	return []any{&n.id, &n.name, &n.price, &n.categoryID, &n.description, &n.tags, &n.imageURL, &n.createdAt, &n.updatedAt}
}

// product は商品が解決できた場合のみ*model.Productを返す。
func (n *nullableProduct) product() *model.Product {
	if !n.id.Valid {
		return nil
	}
	p := &model.Product{
		ID:         n.id.String,
		Name:       n.name.String,
		Price:      n.price.Decimal,
		CategoryID: n.categoryID.String,
		Tags:       []string(n.tags),
		CreatedAt:  n.createdAt.Time,
		UpdatedAt:  n.updatedAt.Time,
	}
	if n.description.Valid {
		d := n.description.String
		p.Description = &d
	}
	if n.imageURL.Valid {
		u := n.imageURL.String
		p.ImageURL = &u
	}
	return p
}
