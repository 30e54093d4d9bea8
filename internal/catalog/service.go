// Package catalog は商品とカテゴリの参照・管理のドメインロジックを提供する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/cache"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/repository"
	"github.com/hitoshi/agrimarket/internal/security"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultListLimit はlimit未指定時の一覧件数。
	DefaultListLimit = 75
	// MaxListLimit は一覧件数の上限。
	MaxListLimit = 200
)

// RecountRecorder は再集計結果の記録先。
type RecountRecorder interface {
	RecordRecount(updated int64)
}

// NewProductInput は商品作成の入力。
type NewProductInput struct {
	Name        string
	Price       decimal.Decimal
	CategoryID  string
	Description string
	Tags        []string
	ImageURL    string
}

// Service はカタログのサービス層。
type Service struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        cache.ProductCache
	sanitizer    security.Sanitizer
	recorder     RecountRecorder
	sfg          singleflight.Group
	shuffle      func(n int, swap func(i, j int))
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	productCache cache.ProductCache,
	sanitizer security.Sanitizer,
	recorder RecountRecorder,
) *Service {
	if productCache == nil {
		productCache = cache.NoopCache{}
	}
	return &Service{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        productCache,
		sanitizer:    sanitizer,
		recorder:     recorder,
		shuffle:      rand.Shuffle,
	}
}

// ListProducts は新着順に最大limit件を取得し、ランダムな順序で返す。
func (s *Service) ListProducts(ctx context.Context, limit int) ([]*model.Product, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	products, err := s.productRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}

	s.shuffle(len(products), func(i, j int) {
		products[i], products[j] = products[j], products[i]
	})
	return products, nil
}

// GetProduct は商品を取得する。キャッシュミス時の同時読み込みは1回にまとめる。
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if err := model.ValidateID("product_id", productID); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(productID, func() (any, error) {
		p, err := s.cache.Get(ctx, productID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("商品キャッシュの読み込みに失敗しました",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}

		p, err = s.productRepo.FindByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
		}
		if p == nil {
			return nil, model.NewProductNotFoundError(productID)
		}

		go func(p *model.Product) {
			if err := s.cache.Set(context.Background(), p); err != nil {
				slog.Warn("商品キャッシュの書き込みに失敗しました",
					slog.String("product_id", p.ID),
					slog.String("error", err.Error()),
				)
			}
		}(p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Product), nil
}

// ListByCategory はカテゴリに属する商品を返す。
func (s *Service) ListByCategory(ctx context.Context, categoryID string) ([]*model.Product, error) {
	if _, err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	products, err := s.productRepo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ商品の取得に失敗しました: %w", err)
	}
	return products, nil
}

// ListCategories は全カテゴリを名前順で返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// RecountCategory はカテゴリのproductCountを実際の商品数に合わせる。
func (s *Service) RecountCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	if err := model.ValidateID("category_id", categoryID); err != nil {
		return nil, err
	}

	c, err := s.categoryRepo.Recount(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの再集計に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}
	return c, nil
}

// RecountAll は全カテゴリを再集計し、商品を持つカテゴリの数を返す。
func (s *Service) RecountAll(ctx context.Context) (int64, error) {
	n, err := s.categoryRepo.RecountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("全カテゴリの再集計に失敗しました: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordRecount(n)
	}
	slog.Info("カテゴリを再集計しました", slog.Int64("updated", n))
	return n, nil
}

// CreateCategory はカテゴリを作成する。
func (s *Service) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewInvalidRequestError("name is required")
	}

	c := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	if d := strings.TrimSpace(description); d != "" {
		c.Description = &d
	}

	if err := s.categoryRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return c, nil
}

// CreateProduct は商品を作成する。説明文は保存前に無害化する。
func (s *Service) CreateProduct(ctx context.Context, in NewProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.NewInvalidRequestError("name is required")
	}
	if in.Price.IsNegative() {
		return nil, model.NewInvalidPriceError(in.Price.String())
	}
	if _, err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Product{
		ID:         uuid.New().String(),
		Name:       name,
		Price:      in.Price.Round(2),
		CategoryID: in.CategoryID,
		Tags:       normalizeTags(in.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d := s.sanitizer.SanitizeDescription(in.Description); d != "" {
		p.Description = &d
	}
	if in.ImageURL != "" {
		if err := security.ValidatePublicURL(in.ImageURL); err != nil {
			return nil, model.NewInvalidRequestError("image_url: " + err.Error())
		}
		u := in.ImageURL
		p.ImageURL = &u
	}

	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	s.recountQuietly(ctx, p.CategoryID)
	return p, nil
}

// DeleteProduct は商品を削除する。参照しているカート行等は残り、読み取り時に検出される。
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	if err := model.ValidateID("product_id", productID); err != nil {
		return err
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewProductNotFoundError(productID)
	}

	deleted, err := s.productRepo.Delete(ctx, productID)
	if err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewProductNotFoundError(productID)
	}

	if err := s.cache.Delete(ctx, productID); err != nil {
		slog.Warn("商品キャッシュの削除に失敗しました",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	s.recountQuietly(ctx, p.CategoryID)

	slog.Info("商品を削除しました", slog.String("product_id", productID))
	return nil
}

func (s *Service) requireCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	if err := model.ValidateID("category_id", categoryID); err != nil {
		return nil, err
	}
	c, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}
	return c, nil
}

// recountQuietly は商品の増減後にカウンタを更新する。
// 失敗しても定期ジョブで収束するため警告ログのみ。
func (s *Service) recountQuietly(ctx context.Context, categoryID string) {
	if _, err := s.categoryRepo.Recount(ctx, categoryID); err != nil {
		slog.Warn("カテゴリ商品数の更新に失敗しました",
			slog.String("category_id", categoryID),
			slog.String("error", err.Error()),
		)
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
