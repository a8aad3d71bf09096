// Package game はゲームカタログの管理、ピン留め、アクセストークンによる起動を提供する。
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gameportal/internal/metrics"
	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
	"github.com/hitoshi/gameportal/internal/security"
)

const (
	defaultListLimit = 24
	maxListLimit     = 100
	probeTimeout     = 10 * time.Second
)

// Invalidator はページキャッシュの無効化を依頼する。
type Invalidator interface {
	InvalidatePaths(ctx context.Context, paths ...string) error
}

// DescriptionSanitizer はゲーム説明文を無害化する。
type DescriptionSanitizer interface {
	Description(rawHTML string) string
}

// Input は管理画面から登録・更新されるゲームの内容。
type Input struct {
	Slug         string
	Title        string
	Description  string
	ThumbnailURL string
	GameURL      string
	Category     string
	Tags         []string
}

// Visit はゲーム起動時の訪問者情報。
type Visit struct {
	UserID  string
	Country string
	Device  string
	IsBot   bool
}

// ProbeResult はゲームURLの疎通確認結果。
type ProbeResult struct {
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Service はゲームに関するビジネスロジックを提供する。
type Service struct {
	games       repository.GameRepository
	categories  repository.CategoryRepository
	plays       repository.PlayRepository
	signer      *TokenSigner
	invalidator Invalidator
	urls        security.URLGuard
	sanitizer   DescriptionSanitizer
	metrics     metrics.MetricsCollector
	client      *http.Client
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	games repository.GameRepository,
	categories repository.CategoryRepository,
	plays repository.PlayRepository,
	signer *TokenSigner,
	invalidator Invalidator,
	urls security.URLGuard,
	sanitizer DescriptionSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		games:       games,
		categories:  categories,
		plays:       plays,
		signer:      signer,
		invalidator: invalidator,
		urls:        urls,
		sanitizer:   sanitizer,
		metrics:     collector,
		client:      urls.NewSafeClient(probeTimeout),
		now:         time.Now,
	}
}

// List は公開一覧を返す。有効なピン留めのゲームが先頭に並ぶ。
func (s *Service) List(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Query = strings.TrimSpace(filter.Query)

	games, err := s.games.List(ctx, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Get はIDでゲームを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Game, error) {
	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	if game == nil {
		return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", id)
	}
	return game, nil
}

// GetBySlug はスラッグでゲームを取得する。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Game, error) {
	game, err := s.games.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find game by slug: %w", err)
	}
	if game == nil {
		return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", slug)
	}
	return game, nil
}

// Create はゲームを登録する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Game, error) {
	// 1. 入力の検証と正規化
	game := &model.Game{}
	if err := s.apply(ctx, game, in); err != nil {
		return nil, err
	}

	// 2. 保存
	now := s.now()
	game.ID = uuid.New().String()
	game.CreatedAt = now
	game.UpdatedAt = now
	if err := s.games.Create(ctx, game); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, slugTakenError(game.Slug)
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	// 3. 一覧と詳細ページのキャッシュを無効化
	s.invalidate(ctx, pagePaths(game.Slug)...)

	slog.Info("game created",
		slog.String("game_id", game.ID),
		slog.String("slug", game.Slug),
	)
	return game, nil
}

// Update はゲームの内容を更新する。ピン留め状態とプレイ数は変更しない。
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Game, error) {
	game, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := game.Slug

	if err := s.apply(ctx, game, in); err != nil {
		return nil, err
	}
	game.UpdatedAt = s.now()

	if err := s.games.Update(ctx, game); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, slugTakenError(game.Slug)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", id)
		}
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	paths := pagePaths(game.Slug)
	if oldSlug != game.Slug {
		paths = append(paths, "/games/"+oldSlug)
	}
	s.invalidate(ctx, paths...)
	return game, nil
}

// Delete はゲームを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	game, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.games.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", id)
		}
		return fmt.Errorf("failed to delete game: %w", err)
	}
	s.invalidate(ctx, pagePaths(game.Slug)...)

	slog.Info("game deleted", slog.String("game_id", id))
	return nil
}

// SetPin はピン留め状態を変更する。
// 解除時は指定値に関わらず順序を0、期限をnilに戻す。
func (s *Service) SetPin(ctx context.Context, id string, pin model.Pin) (*model.Game, error) {
	pinned, order, expiresAt := pin.Normalize()

	game, err := s.games.UpdatePin(ctx, id, pinned, order, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update pin: %w", err)
	}
	if game == nil {
		return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", id)
	}

	s.invalidate(ctx, "/", "/admin/games", "/games")

	slog.Info("game pin updated",
		slog.String("game_id", id),
		slog.Bool("pinned", pinned),
		slog.Int("order", order),
	)
	return game, nil
}

// IssueAccessToken はゲーム起動用のアクセストークンを発行する。
func (s *Service) IssueAccessToken(ctx context.Context, gameID string) (string, time.Time, error) {
	if _, err := s.Get(ctx, gameID); err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Issue(gameID)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Redeem はアクセストークンを検証し、起動先のゲームを返す。
// プレイ記録は失敗してもエラーにしない。
func (s *Service) Redeem(ctx context.Context, gameID, token string, visit Visit) (*model.Game, error) {
	// 1. パラメータ確認
	if gameID == "" || token == "" {
		return nil, model.NewValidationError("gameIdとtokenは必須です")
	}

	// 2. トークン検証
	if apiErr := s.signer.Verify(token, gameID); apiErr != nil {
		s.metrics.RecordAccessTokenRejected(apiErr.Code)
		return nil, apiErr
	}

	// 3. ゲーム取得
	game, err := s.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	// 4. プレイ記録（ボットは除外）
	if !visit.IsBot {
		s.recordPlay(ctx, game.ID, visit)
	}
	return game, nil
}

func (s *Service) recordPlay(ctx context.Context, gameID string, visit Visit) {
	play := &model.GamePlay{
		ID:        uuid.New().String(),
		GameID:    gameID,
		UserID:    visit.UserID,
		Country:   orUnknown(visit.Country),
		Device:    orUnknown(visit.Device),
		CreatedAt: s.now(),
	}
	if err := s.plays.Record(ctx, play); err != nil {
		slog.Warn("failed to record game play",
			slog.String("game_id", gameID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.RecordGamePlay(play.Device)
}

// Probe はゲームURLに到達できるかどうかを確認する。
func (s *Service) Probe(ctx context.Context, id string) (*ProbeResult, error) {
	game, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, game.GameURL, nil)
	if err != nil {
		return &ProbeResult{Error: err.Error()}, nil
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &ProbeResult{Error: err.Error()}, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return &ProbeResult{
		Reachable:  resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
	}, nil
}

// apply は入力を検証し、正規化した値をgameに反映する。
func (s *Service) apply(ctx context.Context, game *model.Game, in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.NewValidationError("タイトルは必須です")
	}

	slug := model.Slugify(in.Slug)
	if slug == "" {
		slug = model.Slugify(title)
	}
	if slug == "" {
		return model.NewValidationError("スラッグを生成できません")
	}

	gameURL := strings.TrimSpace(in.GameURL)
	if err := s.urls.ValidateURL(gameURL); err != nil {
		return model.NewValidationError(fmt.Sprintf("game_url: %v", err))
	}
	thumbnail := strings.TrimSpace(in.ThumbnailURL)
	if thumbnail != "" {
		if err := s.urls.ValidateURL(thumbnail); err != nil {
			return model.NewValidationError(fmt.Sprintf("thumbnail_url: %v", err))
		}
	}

	category := strings.TrimSpace(in.Category)
	if category != "" {
		c, err := s.categories.FindByNameOrSlug(ctx, category, model.Slugify(category))
		if err != nil {
			return fmt.Errorf("failed to find category: %w", err)
		}
		if c == nil {
			return model.NewValidationError(fmt.Sprintf("カテゴリ「%s」は存在しません", category))
		}
		category = c.Name
	}

	game.Slug = slug
	game.Title = title
	game.Description = s.sanitizer.Description(in.Description)
	game.ThumbnailURL = thumbnail
	game.GameURL = gameURL
	game.Category = category
	game.Tags = normalizeTags(in.Tags)
	return nil
}

// normalizeTags は前後の空白を除き、空要素と重複を取り除く。
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *Service) invalidate(ctx context.Context, paths ...string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidatePaths(ctx, paths...); err != nil {
		slog.Warn("failed to publish cache invalidation",
			slog.Any("paths", paths),
			slog.String("error", err.Error()),
		)
	}
}

// pagePaths はゲームの変更で再生成が必要なページのパスを返す。
func pagePaths(slug string) []string {
	return []string{"/", "/games", "/games/" + slug, "/admin/games"}
}

func slugTakenError(slug string) *model.APIError {
	return model.NewConflictError(model.ErrCodeSlugTaken,
		fmt.Sprintf("スラッグ「%s」は既に使用されています。", slug))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
