package recount

import (
	"context"
	"log/slog"
	"time"
)

const (
	// initialBackoff は失敗後の初回再試行までの遅延。
	initialBackoff = 30 * time.Second
)

// CalculateBackoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回30秒、2倍ずつ増加し、通常の実行間隔を上限とする。
func CalculateBackoff(consecutiveErrors int, ceiling time.Duration) time.Duration {
	delay := initialBackoff
	if delay > ceiling {
		return ceiling
	}
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > ceiling {
			return ceiling
		}
	}
	return delay
}

// Runner はジョブの1回分の実行。
type Runner interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler はジョブを一定間隔で実行する。失敗時は間隔を待たずにバックオフで再試行する。
type Scheduler struct {
	job    Runner
	logger *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(job Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{job: job, logger: logger}
}

// Start は起動直後に1回実行し、以降interval間隔で実行する。
// コンテキストがキャンセルされるまで戻らない。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("再集計スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("再集計スケジューラを停止しました")
			return
		case <-timer.C:
			next := interval
			if _, err := s.job.Run(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				next = CalculateBackoff(consecutiveErrors, interval)
				consecutiveErrors++
				s.logger.Warn("再集計を再試行します",
					slog.Int("consecutive_errors", consecutiveErrors),
					slog.Duration("retry_in", next),
				)
			} else {
				consecutiveErrors = 0
			}
			timer.Reset(next)
		}
	}
}
