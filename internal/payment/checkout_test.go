package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/shopspring/decimal"
)

type mockTotaler struct {
	getTotalFn func(ctx context.Context, userID string) (decimal.Decimal, error)
}

func (m *mockTotaler) GetTotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	return m.getTotalFn(ctx, userID)
}

type mockGateway struct {
	createOrderFn func(ctx context.Context, req OrderRequest) (*model.PaymentOrder, error)
	calls         int
}

func (m *mockGateway) CreateOrder(ctx context.Context, req OrderRequest) (*model.PaymentOrder, error) {
	m.calls++
	return m.createOrderFn(ctx, req)
}

func totalOf(s string) *mockTotaler {
	return &mockTotaler{getTotalFn: func(context.Context, string) (decimal.Decimal, error) {
		return decimal.RequireFromString(s), nil
	}}
}

func TestCheckout_CreateOrder(t *testing.T) {
	var got OrderRequest
	gw := &mockGateway{createOrderFn: func(_ context.Context, req OrderRequest) (*model.PaymentOrder, error) {
		got = req
		return &model.PaymentOrder{OrderID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt}, nil
	}}
	svc := NewCheckoutService(totalOf("935.50"), gw)

	order, err := svc.CreateOrder(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got.Amount != 93550 {
		t.Errorf("Amount = %d, want 93550", got.Amount)
	}
	if got.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", got.Currency)
	}
	if !strings.HasPrefix(got.Receipt, "receipt_") || len(got.Receipt) != len("receipt_")+36 {
		t.Errorf("Receipt = %q, want receipt_<uuid>", got.Receipt)
	}
	if order.OrderID != "order_1" {
		t.Errorf("OrderID = %q", order.OrderID)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	gw := &mockGateway{}
	svc := NewCheckoutService(totalOf("0"), gw)

	_, err := svc.CreateOrder(context.Background(), "user-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyCart {
		t.Fatalf("error = %v, want EMPTY_CART", err)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times, want 0", gw.calls)
	}
}

func TestCheckout_TotalError(t *testing.T) {
	svc := NewCheckoutService(&mockTotaler{getTotalFn: func(context.Context, string) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("db down")
	}}, &mockGateway{})

	if _, err := svc.CreateOrder(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1", 100},
		{"9.35", 935},
		{"0.005", 1},
		{"1234.56", 123456},
	}
	for _, tt := range tests {
		if got := ToMinorUnits(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("ToMinorUnits(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
