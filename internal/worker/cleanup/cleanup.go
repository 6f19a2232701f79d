// Package cleanup は更新のない訪問者スコープの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超えて書き込みのないスコープの
// カート・ユーザー・セッションをまとめて削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/storefront/internal/repository"
)

// DefaultRetentionDays はスコープの保持日数のデフォルト値。
const DefaultRetentionDays = 90

// MetricsRecorder は削除件数を記録するインターフェース。
type MetricsRecorder interface {
	RecordScopesPurged(count int64)
}

// CleanupJob は保持期間を超過した訪問者スコープの削除ジョブ。
// 冪等で、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	purger        repository.ScopePurger
	logger        *slog.Logger
	metrics       MetricsRecorder
	now           func() time.Time
	RetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(purger repository.ScopePurger, logger *slog.Logger, metrics MetricsRecorder) *CleanupJob {
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は最終更新がRetentionDays日より前のスコープを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deleted, err := j.purger.PurgeIdleScopes(ctx, cutoff)
	if err != nil {
		j.logger.Error("scope cleanup failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("failed to purge idle scopes: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordScopesPurged(deleted)
	}

	j.logger.Info("scope cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、以降intervalごとにRunを繰り返す。
// ctxがキャンセルされるまでブロックする。失敗はログに残して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *CleanupJob) runOnce(ctx context.Context) {
	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)
}
