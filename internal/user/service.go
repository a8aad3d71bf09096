// Package user は管理画面向けのユーザー管理ロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service はユーザー管理のサービス層。
// 一覧取得とロール変更を提供する。アカウントは物理削除しない。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// List はユーザー一覧を新しい順で返す。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// ChangeRole は対象ユーザーのロールを変更する。
// 操作者自身の管理者権限は外せない。
func (s *Service) ChangeRole(ctx context.Context, actorID, userID string, role model.Role) (*model.User, error) {
	// 1. ロールの検証
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, model.NewValidationError(fmt.Sprintf("不明なロールです: %s", role))
	}
	if actorID == userID && role != model.RoleAdmin {
		return nil, model.NewValidationError("自分自身の管理者権限は解除できません")
	}

	// 2. ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError(model.ErrCodeUserNotFound, "ユーザー", userID)
	}
	if user.Role == role {
		return user, nil
	}

	// 3. ロールを更新
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewNotFoundError(model.ErrCodeUserNotFound, "ユーザー", userID)
		}
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}

	slog.Info("ユーザーのロールを変更しました",
		slog.String("user_id", userID),
		slog.String("actor_id", actorID),
		slog.String("role", string(role)),
	)

	user.Role = role
	return user, nil
}
