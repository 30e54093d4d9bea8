// Package cart はカート操作のドメインロジックを提供する。
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/live"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/repository"
	"github.com/shopspring/decimal"
)

// MaxQuantity は1回の操作で指定できる数量の上限。
const MaxQuantity = 999

// Publisher はコミット済みの変更を通知する。
type Publisher interface {
	Publish(ctx context.Context, topic string) live.Event
}

// Recorder はカート操作のメトリクス記録先。
type Recorder interface {
	RecordCartMutation(op string)
	RecordDanglingReference(collection string)
}

// UpdateResult は数量変更の結果。Removedがtrueの場合Lineはnil。
type UpdateResult struct {
	Line    *model.CartLine
	Removed bool
}

// Service はカートのサービス層。
type Service struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	publisher   Publisher
	recorder    Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	publisher Publisher,
	recorder Recorder,
) *Service {
	return &Service{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		publisher:   publisher,
		recorder:    recorder,
	}
}

// AddToCart は商品をカートに追加する。同じ商品の行がある場合は数量を加算する。
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
	if err := validateQuantity(quantity, 1); err != nil {
		return nil, err
	}
	if err := model.ValidateID("product_id", productID); err != nil {
		return nil, err
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	now := time.Now()
	line, err := s.cartRepo.Add(ctx, &model.CartLine{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, userID, "add")
	return line, nil
}

// UpdateQuantity はカート行の数量を設定する。0を指定すると行を削除する。
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*UpdateResult, error) {
	if err := validateQuantity(quantity, 0); err != nil {
		return nil, err
	}
	if err := model.ValidateID("line_id", lineID); err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.remove(ctx, userID, lineID); err != nil {
			return nil, err
		}
		return &UpdateResult{Removed: true}, nil
	}

	line, err := s.cartRepo.UpdateQuantity(ctx, userID, lineID, quantity)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, model.NewCartLineNotFoundError(lineID)
	}

	s.committed(ctx, userID, "update")
	return &UpdateResult{Line: line}, nil
}

// RemoveFromCart はカート行を削除する。存在しない場合はNotFound。
func (s *Service) RemoveFromCart(ctx context.Context, userID, lineID string) error {
	if err := model.ValidateID("line_id", lineID); err != nil {
		return err
	}
	return s.remove(ctx, userID, lineID)
}

func (s *Service) remove(ctx context.Context, userID, lineID string) error {
	deleted, err := s.cartRepo.Delete(ctx, userID, lineID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewCartLineNotFoundError(lineID)
	}
	s.committed(ctx, userID, "remove")
	return nil
}

// GetCart はカートの結合ビューを返す。合計は同じ行集合から計算する。
func (s *Service) GetCart(ctx context.Context, userID string) (*model.CartView, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &model.CartView{Items: items, Total: decimal.Zero}
	for _, item := range items {
		view.ItemCount += item.Line.Quantity
		subtotal, ok := item.Subtotal()
		if !ok {
			view.Unresolved++
			s.reportDangling(userID, item)
			continue
		}
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}

// GetTotal はカートの合計金額を返す。
func (s *Service) GetTotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Total, nil
}

// Count はカート内の商品数量の合計を返す。
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range items {
		n += item.Line.Quantity
	}
	return n, nil
}

func (s *Service) committed(ctx context.Context, userID, op string) {
	if s.recorder != nil {
		s.recorder.RecordCartMutation(op)
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, live.CartTopic(userID))
	}
}

func (s *Service) reportDangling(userID string, item model.CartItem) {
	reason := "product missing"
	if item.Product != nil {
		reason = "negative price"
	}
	slog.Warn("カート行の商品を解決できません",
		slog.String("user_id", userID),
		slog.String("line_id", item.Line.ID),
		slog.String("product_id", item.Line.ProductID),
		slog.String("reason", reason),
	)
	if s.recorder != nil {
		s.recorder.RecordDanglingReference("cart")
	}
}

func validateQuantity(quantity, min int) error {
	if quantity < min || quantity > MaxQuantity {
		return model.NewInvalidQuantityError(quantity)
	}
	return nil
}
