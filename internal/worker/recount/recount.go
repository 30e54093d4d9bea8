// Package recount はカテゴリの商品数を定期的に再集計するバックグラウンドジョブを提供する。
// 商品の追加・削除時の再集計はベストエフォートのため、取りこぼしをここで補正する。
package recount

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recounter は全カテゴリの再集計を行う。catalog.Serviceが満たす。
type Recounter interface {
	RecountAll(ctx context.Context) (int64, error)
}

// Job は全カテゴリのproduct_countを実数に合わせるジョブ。
// 何度実行しても結果は同じになる。
type Job struct {
	recounter Recounter
	logger    *slog.Logger
}

// NewJob はJobを生成する。
func NewJob(recounter Recounter, logger *slog.Logger) *Job {
	return &Job{recounter: recounter, logger: logger}
}

// Run は再集計を1回実行し、更新したカテゴリ数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	updated, err := j.recounter.RecountAll(ctx)
	if err != nil {
		j.logger.Error("カテゴリ再集計ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("カテゴリ再集計の実行に失敗: %w", err)
	}

	j.logger.Info("カテゴリ再集計ジョブが完了しました",
		slog.Int64("updated_count", updated),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return updated, nil
}
