// Package catalog はゲーム配信ネットワークのRSS/Atomフィードからゲームを一括登録する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/gameportal/internal/game"
	"github.com/hitoshi/gameportal/internal/metrics"
	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/security"
)

// GameCreator はゲームを登録する。*game.Serviceが実装する。
type GameCreator interface {
	Create(ctx context.Context, in game.Input) (*model.Game, error)
}

// Result はインポート結果の件数。
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Importer はフィードを取得してゲームを登録する。
type Importer struct {
	games   GameCreator
	urls    security.URLGuard
	client  *http.Client
	maxSize int64
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewImporter はImporterを生成する。
// 取得にはSSRF対策済みのHTTPクライアントを使い、レスポンスはmaxSizeバイトまで読む。
func NewImporter(games GameCreator, urls security.URLGuard, timeout time.Duration, maxSize int64, collector metrics.MetricsCollector, logger *slog.Logger) *Importer {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		games:   games,
		urls:    urls,
		client:  urls.NewSafeClient(timeout),
		maxSize: maxSize,
		metrics: collector,
		logger:  logger,
	}
}

// Import はフィードの各エントリをゲームとして登録する。
// スラッグが既存のものや必須項目が欠けたエントリはスキップする。
func (im *Importer) Import(ctx context.Context, feedURL, category string) (*Result, error) {
	start := time.Now()

	// 1. URL検証
	feedURL = strings.TrimSpace(feedURL)
	if err := im.urls.ValidateURL(feedURL); err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("feed_url: %v", err))
	}

	// 2. 取得とパース
	feed, err := im.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	// 3. エントリごとに登録
	result := &Result{}
	for _, item := range feed.Items {
		in := toInput(item, category)
		_, err := im.games.Create(ctx, in)
		if err == nil {
			result.Created++
			continue
		}

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			return result, fmt.Errorf("failed to import %q: %w", in.Title, err)
		}
		if apiErr.Category != model.CategoryValidation && apiErr.Category != model.CategoryConflict {
			return result, apiErr
		}
		im.logger.Info("skipped feed entry",
			slog.String("title", in.Title),
			slog.String("reason", apiErr.Code),
		)
		result.Skipped++
	}

	im.metrics.RecordGamesImported(result.Created)
	im.logger.Info("catalogue import completed",
		slog.String("feed_url", feedURL),
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return result, nil
}

func (im *Importer) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("feed_url: %v", err))
	}
	req.Header.Set("User-Agent", "GamePortal/1.0 Catalogue Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("フィードを取得できません: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewValidationError(fmt.Sprintf("フィードの取得に失敗しました（HTTP %d）", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("フィードを解析できません: %v", err))
	}
	return feed, nil
}

// toInput はフィードのエントリをゲームの入力に変換する。
// 本文は説明文が空の場合のみ使い、サムネイルは画像のエンクロージャーを優先する。
func toInput(item *gofeed.Item, category string) game.Input {
	description := item.Description
	if strings.TrimSpace(description) == "" {
		description = item.Content
	}
	return game.Input{
		Title:        item.Title,
		GameURL:      item.Link,
		Description:  description,
		ThumbnailURL: thumbnail(item),
		Category:     category,
		Tags:         item.Categories,
	}
}

func thumbnail(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}
