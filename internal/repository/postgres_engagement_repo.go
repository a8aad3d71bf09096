package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresPlayRepo はPostgreSQLを使用したプレイ記録リポジトリ。
type PostgresPlayRepo struct {
	db *sql.DB
}

// NewPostgresPlayRepo はPostgresPlayRepoを生成する。
func NewPostgresPlayRepo(db *sql.DB) *PostgresPlayRepo {
	return &PostgresPlayRepo{db: db}
}

// Record はプレイを記録し、ゲームのプレイ数と国別訪問数を同一トランザクションで加算する。
func (r *PostgresPlayRepo) Record(ctx context.Context, play *model.GamePlay) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID := sql.NullString{String: play.UserID, Valid: play.UserID != ""}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO game_plays (id, game_id, user_id, country, device, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		play.ID, play.GameID, userID, play.Country, play.Device, play.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game play: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET play_count = play_count + 1 WHERE id = $1`,
		play.GameID,
	); err != nil {
		return fmt.Errorf("failed to increment play count: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO visitor_countries (country, visits, updated_at) VALUES ($1, 1, $2)
		 ON CONFLICT (country) DO UPDATE SET visits = visitor_countries.visits + 1, updated_at = EXCLUDED.updated_at`,
		play.Country, play.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert visitor country: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count は総プレイ数を返す。
func (r *PostgresPlayRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM game_plays`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return n, nil
}

// TopCountries は訪問数の多い国を上位limit件返す。
func (r *PostgresPlayRepo) TopCountries(ctx context.Context, limit int) ([]model.VisitorCountry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT country, visits, updated_at FROM visitor_countries ORDER BY visits DESC, country LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitor countries: %w", err)
	}
	defer rows.Close()

	var countries []model.VisitorCountry
	for rows.Next() {
		var c model.VisitorCountry
		if err := rows.Scan(&c.Country, &c.Visits, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visitor country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visitor countries: %w", err)
	}
	return countries, nil
}

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// ListByGame はゲームのレビューを投稿者名付きで新しい順に返す。
func (r *PostgresReviewRepo) ListByGame(ctx context.Context, gameID string) ([]*model.GameReview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.game_id, rv.user_id, u.name, rv.rating, rv.comment, rv.created_at, rv.updated_at
		 FROM game_reviews rv JOIN users u ON u.id = rv.user_id
		 WHERE rv.game_id = $1
		 ORDER BY rv.updated_at DESC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.GameReview
	for rows.Next() {
		rv := &model.GameReview{}
		if err := rows.Scan(&rv.ID, &rv.GameID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.GameReview, error) {
	rv := &model.GameReview{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, game_id, user_id, rating, comment, created_at, updated_at FROM game_reviews WHERE id = $1`,
		id,
	).Scan(&rv.ID, &rv.GameID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if isMissingRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return rv, nil
}

// Upsert は(game_id, user_id)単位でレビューを登録・更新する。
func (r *PostgresReviewRepo) Upsert(ctx context.Context, review *model.GameReview) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO game_reviews (id, game_id, user_id, rating, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (game_id, user_id)
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		review.ID, review.GameID, review.UserID, review.Rating, review.Comment, review.UpdatedAt,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert review: %w", err)
	}
	return nil
}

// Delete は指定IDのレビューを削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM game_reviews WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return requireRowAffected(result)
}

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// ListGames はユーザーのお気に入りゲームを追加日時の新しい順に返す。
func (r *PostgresFavoriteRepo) ListGames(ctx context.Context, userID string) ([]*model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		gameSelect+`
		JOIN favorites f ON f.game_id = g.id
		WHERE f.user_id = $1
		GROUP BY g.id, f.created_at
		ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return scanGames(rows)
}

// Add はお気に入りを追加する。登録済みの場合は何もしない。
func (r *PostgresFavoriteRepo) Add(ctx context.Context, userID, gameID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, game_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Remove はお気に入りを削除する。
func (r *PostgresFavoriteRepo) Remove(ctx context.Context, userID, gameID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND game_id = $2`,
		userID, gameID,
	)
	if isInvalidID(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ PlayRepository     = (*PostgresPlayRepo)(nil)
	_ ReviewRepository   = (*PostgresReviewRepo)(nil)
	_ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
)
