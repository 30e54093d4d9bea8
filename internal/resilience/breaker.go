// Package resilience は外部サービス呼び出しのサーキットブレーカーと計装を提供する。
package resilience

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BreakerSettings はブレーカーの閾値。
type BreakerSettings struct {
	// ConsecutiveFailures は連続失敗がこの回数に達するとOpenになる。
	ConsecutiveFailures uint32
	// OpenTimeout はOpenからHalf-Openへ移るまでの時間。
	OpenTimeout time.Duration
	// HalfOpenRequests はHalf-Open中に通す試行数。
	HalfOpenRequests uint32
}

// DefaultBreakerSettings は外部APIの既定値を返す。
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// NewBreaker は名前付きのサーキットブレーカーを生成する。状態遷移はログに残す。
func NewBreaker[T any](name string, s BreakerSettings) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// IsOpen はエラーがブレーカーによる遮断かどうかを返す。
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// InstrumentClient はクライアントの送信をOpenTelemetryのスパンで計装する。
// 元のTransportは維持するため、SSRF対策済みクライアントにも使える。
func InstrumentClient(c *http.Client) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out := *c
	out.Transport = otelhttp.NewTransport(base)
	return &out
}
