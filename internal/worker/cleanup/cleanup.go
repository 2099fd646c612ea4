// Package cleanup はリフレッシュトークンの自動削除ジョブを提供する。
// 保持期間（デフォルト60日）を超過したトークンと失効済みのトークンを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupMetrics はクリーンアップメトリクスの収集インターフェース。
type CleanupMetrics interface {
	// RecordTokensCleaned は削除されたトークン数を記録する。
	RecordTokensCleaned(count int)
}

// CleanupJob は保持期間を超過したリフレッシュトークンの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
// 失効済みトークンは再利用検出の手がかりとして保持期間の半分だけ残し、
// その後削除する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	metrics       CleanupMetrics
	RetentionDays int // トークンの保持日数（デフォルト: 60）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は60日。metricsはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, metrics CleanupMetrics) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		metrics:       metrics,
		RetentionDays: 60,
	}
}

// Run は保持期間を超過したリフレッシュトークンを削除する。
// created_atがRetentionDays日前より古いトークン、および
// RetentionDaysの半分を超過した失効済みトークンをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	retention := fmt.Sprintf("%d days", j.RetentionDays)
	revokedRetention := fmt.Sprintf("%d days", j.RetentionDays/2)

	query := `DELETE FROM refresh_tokens
	          WHERE created_at < now() - $1::interval
	             OR (revoked = true AND created_at < now() - $2::interval)`
	result, err := j.db.ExecContext(ctx, query, retention, revokedRetention)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordTokensCleaned(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
