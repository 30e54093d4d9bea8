// Package payment は決済ゲートウェイでの注文作成とチェックアウトを提供する。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/resilience"
	"github.com/sony/gobreaker/v2"
)

// Currency は注文の通貨。金額は最小単位（パイサ）で送る。
const Currency = "INR"

const maxResponseSize = 1 << 20

// Recorder は外部呼び出しのメトリクス記録先。
type Recorder interface {
	RecordOutboundLatency(target string, duration time.Duration)
}

// OrderRequest はゲートウェイへの注文作成リクエスト。
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway は決済ゲートウェイのOrders APIクライアント。
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	breaker    *gobreaker.CircuitBreaker[*model.PaymentOrder]
	recorder   Recorder
}

// NewGateway はGatewayを生成する。
func NewGateway(httpClient *http.Client, baseURL, keyID, keySecret string, recorder Recorder) *Gateway {
	return &Gateway{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		breaker:    resilience.NewBreaker[*model.PaymentOrder]("payment", resilience.DefaultBreakerSettings()),
		recorder:   recorder,
	}
}

// CreateOrder はゲートウェイに注文を作成する。
func (g *Gateway) CreateOrder(ctx context.Context, req OrderRequest) (*model.PaymentOrder, error) {
	order, err := g.breaker.Execute(func() (*model.PaymentOrder, error) {
		return g.send(ctx, req)
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return nil, model.NewServiceUnavailableError("payment")
		}
		slog.Error("注文の作成に失敗しました",
			slog.String("receipt", req.Receipt),
			slog.Int64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPaymentFailedError()
	}
	return order, nil
}

func (g *Gateway) send(ctx context.Context, req OrderRequest) (*model.PaymentOrder, error) {
	start := time.Now()
	defer func() {
		if g.recorder != nil {
			g.recorder.RecordOutboundLatency("payment", time.Since(start))
		}
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み込みに失敗: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out orderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("レスポンスに注文IDがありません")
	}

	return &model.PaymentOrder{
		OrderID:  out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}
