package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/shopspring/decimal"
)

// CartTotaler はカートの合計を返す。
type CartTotaler interface {
	GetTotal(ctx context.Context, userID string) (decimal.Decimal, error)
}

// OrderCreator はゲートウェイに注文を作成する。
type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*model.PaymentOrder, error)
}

// CheckoutService はカート合計から決済注文を作成する。
// 金額は常にサーバー側で計算し、クライアントの申告値は使わない。
type CheckoutService struct {
	carts   CartTotaler
	gateway OrderCreator
}

// NewCheckoutService はCheckoutServiceを生成する。
func NewCheckoutService(carts CartTotaler, gateway OrderCreator) *CheckoutService {
	return &CheckoutService{carts: carts, gateway: gateway}
}

// CreateOrder はユーザーのカート合計で注文を作成する。
func (s *CheckoutService) CreateOrder(ctx context.Context, userID string) (*model.PaymentOrder, error) {
	total, err := s.carts.GetTotal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カート合計の取得に失敗しました: %w", err)
	}
	if !total.IsPositive() {
		return nil, model.NewEmptyCartError()
	}

	req := OrderRequest{
		Amount:   ToMinorUnits(total),
		Currency: Currency,
		Receipt:  "receipt_" + uuid.New().String(),
	}
	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	slog.Info("注文を作成しました",
		slog.String("user_id", userID),
		slog.String("order_id", order.OrderID),
		slog.Int64("amount", order.Amount),
	)
	return order, nil
}

// ToMinorUnits はルピー金額をパイサに変換する。端数は四捨五入する。
func ToMinorUnits(total decimal.Decimal) int64 {
	return total.Shift(2).Round(0).IntPart()
}
