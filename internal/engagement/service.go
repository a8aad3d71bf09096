// Package engagement はレビュー、お気に入り、ダッシュボード集計を提供する。
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

const (
	maxCommentLength = 2000
	topCountriesN    = 10
)

// TextSanitizer はレビュー本文からタグを除去する。
type TextSanitizer interface {
	PlainText(raw string) string
}

// Principal は操作を行うユーザー。
type Principal struct {
	UserID string
	Role   model.Role
}

// Service はユーザーの反応に関するビジネスロジックを提供する。
type Service struct {
	games     repository.GameRepository
	users     repository.UserRepository
	plays     repository.PlayRepository
	reviews   repository.ReviewRepository
	favorites repository.FavoriteRepository
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	games repository.GameRepository,
	users repository.UserRepository,
	plays repository.PlayRepository,
	reviews repository.ReviewRepository,
	favorites repository.FavoriteRepository,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		games:     games,
		users:     users,
		plays:     plays,
		reviews:   reviews,
		favorites: favorites,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// ListReviews はゲームのレビューを返す。
func (s *Service) ListReviews(ctx context.Context, gameID string) ([]*model.GameReview, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// SubmitReview はユーザー自身のレビューを登録または更新する。
func (s *Service) SubmitReview(ctx context.Context, userID, gameID string, rating int, comment string) (*model.GameReview, error) {
	// 1. 入力検証
	if rating < 1 || rating > 5 {
		return nil, model.NewValidationError("評価は1〜5で指定してください")
	}
	comment = s.sanitizer.PlainText(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, model.NewValidationError(fmt.Sprintf("コメントは%d文字以内で入力してください", maxCommentLength))
	}

	// 2. ゲームの存在確認
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}

	// 3. 保存
	now := s.now()
	review := &model.GameReview{
		ID:        uuid.New().String(),
		GameID:    gameID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Upsert(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return review, nil
}

// DeleteReview はレビューを削除する。投稿者本人か管理者のみ削除できる。
func (s *Service) DeleteReview(ctx context.Context, p Principal, reviewID string) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("failed to find review: %w", err)
	}
	if review == nil {
		return model.NewNotFoundError(model.ErrCodeReviewNotFound, "レビュー", reviewID)
	}
	if review.UserID != p.UserID && p.Role != model.RoleAdmin {
		return model.NewUnauthorizedError()
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	slog.Info("review deleted",
		slog.String("review_id", reviewID),
		slog.String("deleted_by", p.UserID),
	)
	return nil
}

// Favorites はユーザーのお気に入りゲームを返す。
func (s *Service) Favorites(ctx context.Context, userID string) ([]*model.Game, error) {
	games, err := s.favorites.ListGames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return games, nil
}

// AddFavorite はゲームをお気に入りに追加する。追加済みの場合は何もしない。
func (s *Service) AddFavorite(ctx context.Context, userID, gameID string) error {
	if err := s.requireGame(ctx, gameID); err != nil {
		return err
	}
	if err := s.favorites.Add(ctx, userID, gameID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite はゲームをお気に入りから外す。
func (s *Service) RemoveFavorite(ctx context.Context, userID, gameID string) error {
	if err := s.favorites.Remove(ctx, userID, gameID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// Stats はダッシュボードの集計値を並行して取得する。
func (s *Service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.games.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count games: %w", err)
		}
		stats.Games = n
		return nil
	})
	g.Go(func() error {
		n, err := s.users.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		stats.Users = n
		return nil
	})
	g.Go(func() error {
		n, err := s.plays.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count plays: %w", err)
		}
		stats.Plays = n
		return nil
	})
	g.Go(func() error {
		countries, err := s.plays.TopCountries(ctx, topCountriesN)
		if err != nil {
			return fmt.Errorf("failed to load top countries: %w", err)
		}
		stats.TopCountries = countries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) requireGame(ctx context.Context, gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return model.NewValidationError("ゲームIDは必須です")
	}
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to find game: %w", err)
	}
	if game == nil {
		return model.NewNotFoundError(model.ErrCodeGameNotFound, "ゲーム", gameID)
	}
	return nil
}
