// Package taxonomy はカテゴリとタグの管理を提供する。
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

// Service はカテゴリとタグのビジネスロジックを提供する。
type Service struct {
	categories repository.CategoryRepository
	tags       repository.TagRepository
	games      repository.GameRepository
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	games repository.GameRepository,
) *Service {
	return &Service{
		categories: categories,
		tags:       tags,
		games:      games,
		now:        time.Now,
	}
}

// ListTags はタグを名前順で返す。
func (s *Service) ListTags(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// CreateTag はタグを作成する。
// 名前またはスラッグが既存のタグと重複する場合はTAG_EXISTSを返す。
func (s *Service) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	// 1. 名前とスラッグの検証
	name, slug, apiErr := nameAndSlug(name)
	if apiErr != nil {
		return nil, apiErr
	}

	// 2. 重複確認
	existing, err := s.tags.FindByNameOrSlug(ctx, name, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	if existing != nil {
		return nil, tagExistsError(name)
	}

	// 3. 保存（同時作成による一意制約違反も重複として扱う）
	tag := &model.Tag{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		CreatedAt: s.now(),
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, tagExistsError(name)
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	slog.Info("tag created", slog.String("tag_id", tag.ID), slog.String("slug", tag.Slug))
	return tag, nil
}

// DeleteTag はタグを削除する。ゲームとの紐付けも同時に削除される。
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	if err := s.tags.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError(model.ErrCodeTagNotFound, "タグ", id)
		}
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

// ListCategories はカテゴリを名前順で返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory はカテゴリを作成する。スラッグはタグと同じ規則で生成する。
func (s *Service) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name, slug, apiErr := nameAndSlug(name)
	if apiErr != nil {
		return nil, apiErr
	}

	existing, err := s.categories.FindByNameOrSlug(ctx, name, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if existing != nil {
		return nil, categoryExistsError(name)
	}

	category := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		CreatedAt: s.now(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, categoryExistsError(name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created", slog.String("category_id", category.ID), slog.String("slug", category.Slug))
	return category, nil
}

// DeleteCategory はカテゴリを削除する。
// いずれかのゲームが名前で参照している間は削除せずCATEGORY_IN_USEを返す。
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	// 1. 存在確認
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return model.NewNotFoundError(model.ErrCodeCategoryNotFound, "カテゴリ", id)
	}

	// 2. 参照中のゲーム数を確認
	count, err := s.games.CountByCategory(ctx, category.Name)
	if err != nil {
		return fmt.Errorf("failed to count games by category: %w", err)
	}
	if count > 0 {
		return model.NewCategoryInUseError(category.Name, count)
	}

	// 3. 削除
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError(model.ErrCodeCategoryNotFound, "カテゴリ", id)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("category deleted", slog.String("category_id", id), slog.String("name", category.Name))
	return nil
}

func nameAndSlug(raw string) (string, string, *model.APIError) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", "", model.NewValidationError("名前は必須です")
	}
	slug := model.Slugify(name)
	if slug == "" {
		return "", "", model.NewValidationError("名前に使用できる文字が含まれていません")
	}
	return name, slug, nil
}

func tagExistsError(name string) *model.APIError {
	return model.NewConflictError(model.ErrCodeTagExists,
		fmt.Sprintf("タグ「%s」は既に存在します。", name))
}

func categoryExistsError(name string) *model.APIError {
	return model.NewConflictError(model.ErrCodeCategoryExists,
		fmt.Sprintf("カテゴリ「%s」は既に存在します。", name))
}
