// Package cleanup は期限切れデータの定期削除ジョブを提供する。
// 期限切れのセッションとパスワード再設定トークンを削除し、
// 掲載期限を過ぎたゲームのピン留めを解除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は期限切れセッションを削除する。
type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenPurger は期限切れのパスワード再設定トークンを削除する。
type TokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PinExpirer はピン留め期限を過ぎたゲームのピン留めを解除する。
type PinExpirer interface {
	UnpinExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は期限切れデータの削除ジョブ。
// 各処理は冪等で、対象がなくてもエラーにならない。
type CleanupJob struct {
	sessions SessionPurger
	tokens   TokenPurger
	pins     PinExpirer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions SessionPurger, tokens TokenPurger, pins PinExpirer, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		tokens:   tokens,
		pins:     pins,
		logger:   logger,
		now:      time.Now,
	}
}

type step struct {
	name string
	run  func(ctx context.Context, now time.Time) (int64, error)
}

// Run は全ての削除処理を1回実行する。
// 1つの処理が失敗しても残りは実行し、失敗をまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now()

	steps := []step{
		{"sessions", j.sessions.DeleteExpired},
		{"reset_tokens", j.tokens.DeleteExpired},
		{"pins", j.pins.UnpinExpired},
	}

	var errs []error
	for _, s := range steps {
		affected, err := s.run(ctx, now)
		if err != nil {
			j.logger.Error("クリーンアップ処理に失敗しました",
				slog.String("target", s.name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%sのクリーンアップに失敗: %w", s.name, err))
			continue
		}
		j.logger.Info("クリーンアップ処理が完了しました",
			slog.String("target", s.name),
			slog.Int64("affected_count", affected),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int("failed", len(errs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return errors.Join(errs...)
}

// DefaultInterval はクリーンアップ間隔の既定値。
const DefaultInterval = time.Hour

// Start はintervalごとにRunを実行する。起動直後にも1回実行する。
// intervalが0以下の場合はDefaultIntervalを使う。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	_ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
