// Package domaincheck は登録済みドメインのDNS定期再検証を提供する。
package domaincheck

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/gameportal/internal/model"
)

// DomainVerifier はドメインの一覧取得と検証を行う。sitedomain.Serviceが実装する。
type DomainVerifier interface {
	List(ctx context.Context) ([]*model.DomainBinding, error)
	Verify(ctx context.Context, binding *model.DomainBinding) (*model.DomainCheckResult, error)
}

// DefaultInterval は再検証間隔の既定値。
const DefaultInterval = time.Hour

// Scheduler はドメイン再検証のスケジューリングと並列制御を行う。
type Scheduler struct {
	verifier       DomainVerifier
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(verifier DomainVerifier, logger *slog.Logger, maxConcurrency int) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		verifier:       verifier,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はintervalごとに全ドメインを再検証する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。intervalが0以下の場合はDefaultIntervalを使う。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ドメイン検証スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	s.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ドメイン検証スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("ドメイン検証サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Summary は1サイクルの検証結果の集計。
type Summary struct {
	Total   int
	Valid   int
	Invalid int
	Errors  int
}

// RunOnce は全ドメインを並列で1回検証し、結果の集計を返す。
// 個々のドメインの検証失敗はログに記録し、サイクル全体は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()

	bindings, err := s.verifier.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(bindings)}
	if len(bindings) == 0 {
		s.logger.Info("検証対象のドメインはありません")
		return summary, nil
	}

	statuses := make([]model.DomainCheckStatus, len(bindings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, b := range bindings {
		g.Go(func() error {
			result, err := s.verifier.Verify(gctx, b)
			if err != nil {
				s.logger.Error("ドメイン検証に失敗しました",
					slog.String("domain_id", b.ID),
					slog.String("domain", b.Domain),
					slog.String("error", err.Error()),
				)
				statuses[i] = model.DomainCheckError
				return nil
			}
			statuses[i] = result.Status
			return nil
		})
	}
	_ = g.Wait()

	for _, st := range statuses {
		switch st {
		case model.DomainCheckValid:
			summary.Valid++
		case model.DomainCheckInvalid:
			summary.Invalid++
		default:
			summary.Errors++
		}
	}

	s.logger.Info("ドメイン検証サイクルが完了しました",
		slog.Int("domain_count", summary.Total),
		slog.Int("valid", summary.Valid),
		slog.Int("invalid", summary.Invalid),
		slog.Int("errors", summary.Errors),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return summary, nil
}
