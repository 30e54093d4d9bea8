// Package wishlist はウィッシュリスト操作のドメインロジックを提供する。
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/live"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/repository"
)

// Publisher はコミット済みの変更を通知する。
type Publisher interface {
	Publish(ctx context.Context, topic string) live.Event
}

// Recorder はウィッシュリスト操作のメトリクス記録先。
type Recorder interface {
	RecordWishlistMutation(op string)
	RecordCartMutation(op string)
	RecordDanglingReference(collection string)
}

// Service はウィッシュリストのサービス層。
type Service struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
	publisher    Publisher
	recorder     Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
	publisher Publisher,
	recorder Recorder,
) *Service {
	return &Service{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
		publisher:    publisher,
		recorder:     recorder,
	}
}

// AddToWishlist は商品をウィッシュリストに追加する。
// 既に登録済みの場合は既存項目とcreated=falseを返す。
func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) (*model.WishlistEntry, bool, error) {
	if err := model.ValidateID("product_id", productID); err != nil {
		return nil, false, err
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, false, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, false, model.NewProductNotFoundError(productID)
	}

	entry, created, err := s.wishlistRepo.Add(ctx, &model.WishlistEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.committed(ctx, userID, "add")
	}
	return entry, created, nil
}

// RemoveFromWishlist は項目を削除する。存在しない場合はNotFound。
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, entryID string) error {
	if err := model.ValidateID("entry_id", entryID); err != nil {
		return err
	}

	deleted, err := s.wishlistRepo.Delete(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewWishlistEntryNotFoundError(entryID)
	}

	s.committed(ctx, userID, "remove")
	return nil
}

// GetWishlist はウィッシュリストを商品付きで返す。
func (s *Service) GetWishlist(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Product != nil {
			continue
		}
		slog.Warn("ウィッシュリスト項目の商品を解決できません",
			slog.String("user_id", userID),
			slog.String("entry_id", item.Entry.ID),
			slog.String("product_id", item.Entry.ProductID),
		)
		if s.recorder != nil {
			s.recorder.RecordDanglingReference("wishlist")
		}
	}
	return items, nil
}

// MoveToCart は項目をウィッシュリストから外し、数量1でカートに追加する。
func (s *Service) MoveToCart(ctx context.Context, userID, entryID string) (*model.CartLine, error) {
	if err := model.ValidateID("entry_id", entryID); err != nil {
		return nil, err
	}

	now := time.Now()
	pending := &model.CartLine{
		ID:        uuid.New().String(),
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	line, err := s.wishlistRepo.MoveToCart(ctx, userID, entryID, pending)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, model.NewProductNotFoundError(pending.ProductID)
	}
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, model.NewWishlistEntryNotFoundError(entryID)
	}

	s.committed(ctx, userID, "move")
	if s.recorder != nil {
		s.recorder.RecordCartMutation("add")
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, live.CartTopic(userID))
	}
	return line, nil
}

func (s *Service) committed(ctx context.Context, userID, op string) {
	if s.recorder != nil {
		s.recorder.RecordWishlistMutation(op)
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, live.WishlistTopic(userID))
	}
}
