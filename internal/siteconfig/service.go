// Package siteconfig はサイト設定とSEOテンプレートの管理を提供する。
package siteconfig

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

const (
	maxKeyLength   = 100
	maxValueLength = 10000
)

var plainText = bluemonday.StrictPolicy()

// defaultSiteName はsite_nameが未設定の場合に使うサイト名。
const defaultSiteName = "Game Portal"

// SEO はゲーム詳細ページのタイトルと説明文。
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Service はサイト設定のビジネスロジックを提供する。
type Service struct {
	config   repository.SettingRepository
	settings repository.SettingRepository
	games    repository.GameRepository
}

// NewService はServiceを生成する。
// configはsite_configs、settingsはsite_settingsを扱うリポジトリ。
func NewService(config, settings repository.SettingRepository, games repository.GameRepository) *Service {
	return &Service{config: config, settings: settings, games: games}
}

// Config はサイト設定の全件を返す。
func (s *Service) Config(ctx context.Context) (map[string]string, error) {
	values, err := s.config.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load site config: %w", err)
	}
	return values, nil
}

// UpdateConfig はサイト設定を登録・更新し、更新後の全件を返す。
func (s *Service) UpdateConfig(ctx context.Context, values map[string]string) (map[string]string, error) {
	if err := validate(values); err != nil {
		return nil, err
	}
	if err := s.config.Upsert(ctx, values); err != nil {
		return nil, fmt.Errorf("failed to save site config: %w", err)
	}
	return s.Config(ctx)
}

// SEOSettings はSEOテンプレートを含むsite_settingsの全件を返す。
func (s *Service) SEOSettings(ctx context.Context) (map[string]string, error) {
	values, err := s.settings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load seo settings: %w", err)
	}
	return values, nil
}

// UpdateSEOSettings はsite_settingsを登録・更新し、更新後の全件を返す。
func (s *Service) UpdateSEOSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	if err := validate(values); err != nil {
		return nil, err
	}
	if err := s.settings.Upsert(ctx, values); err != nil {
		return nil, fmt.Errorf("failed to save seo settings: %w", err)
	}
	return s.SEOSettings(ctx)
}

// GameSEO はゲーム詳細ページのタイトルと説明文をテンプレートから生成する。
func (s *Service) GameSEO(ctx context.Context, slug string) (*SEO, error) {
	// 1. ゲーム取得
	game, err := s.games.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find game by slug: %w", err)
	}
	if game == nil {
		return nil, model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", slug)
	}

	// 2. テンプレートとサイト名の取得
	templates, err := s.SEOSettings(ctx)
	if err != nil {
		return nil, err
	}
	config, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	siteName := config[model.SettingSiteName]
	if siteName == "" {
		siteName = defaultSiteName
	}

	// 3. プレースホルダー置換
	return &SEO{
		Title:       Render(templates[model.SettingSEOGameTitle], game, siteName),
		Description: Render(templates[model.SettingSEOGameDescription], game, siteName),
	}, nil
}

// Render はテンプレート内の{siteName}、{gameTitle}、{category}、{description}を置換する。
// 説明文はタグを除いて置換する。
func Render(template string, game *model.Game, siteName string) string {
	r := strings.NewReplacer(
		"{siteName}", siteName,
		"{gameTitle}", game.Title,
		"{category}", game.Category,
		"{description}", stripTags(game.Description),
	)
	return strings.TrimSpace(r.Replace(template))
}

func validate(values map[string]string) *model.APIError {
	if len(values) == 0 {
		return model.NewValidationError("設定が空です")
	}
	for k, v := range values {
		if strings.TrimSpace(k) == "" || len(k) > maxKeyLength {
			return model.NewValidationError(fmt.Sprintf("キーが正しくありません: %q", k))
		}
		if len(v) > maxValueLength {
			return model.NewValidationError(fmt.Sprintf("値が長すぎます: %s", k))
		}
	}
	return nil
}

// stripTags はタグを除去し、空白をまとめたテキストを返す。
func stripTags(description string) string {
	text := html.UnescapeString(plainText.Sanitize(description))
	return strings.Join(strings.Fields(text), " ")
}
