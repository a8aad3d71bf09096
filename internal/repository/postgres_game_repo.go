package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresGameRepo はPostgreSQLを使用したゲームリポジトリ。
type PostgresGameRepo struct {
	db *sql.DB
}

// NewPostgresGameRepo はPostgresGameRepoを生成する。
func NewPostgresGameRepo(db *sql.DB) *PostgresGameRepo {
	return &PostgresGameRepo{db: db}
}

// gameSelect はタグ名を配列に集約したゲームのSELECT句。末尾にWHERE句とGROUP BY g.idを続けて使う。
const gameSelect = `SELECT g.id, g.slug, g.title, g.description, g.thumbnail_url, g.game_url, g.category,
	g.is_pinned, g.pin_order, g.pin_expires_at, g.play_count, g.created_at, g.updated_at,
	COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
	FROM games g
	LEFT JOIN game_tags gt ON gt.game_id = g.id
	LEFT JOIN tags t ON t.id = gt.tag_id`

func scanGame(row interface{ Scan(...any) error }) (*model.Game, error) {
	g := &model.Game{}
	var pinExpiresAt sql.NullTime
	var tags pq.StringArray
	err := row.Scan(
		&g.ID, &g.Slug, &g.Title, &g.Description, &g.ThumbnailURL, &g.GameURL, &g.Category,
		&g.IsPinned, &g.PinOrder, &pinExpiresAt, &g.PlayCount, &g.CreatedAt, &g.UpdatedAt,
		&tags,
	)
	if err != nil {
		return nil, err
	}
	if pinExpiresAt.Valid {
		t := pinExpiresAt.Time
		g.PinExpiresAt = &t
	}
	g.Tags = []string(tags)
	return g, nil
}

func scanGames(rows *sql.Rows) ([]*model.Game, error) {
	defer rows.Close()
	var games []*model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return games, nil
}

// activePin は期限内のピン留めかどうかを判定するSQL式。$4に現在時刻を渡す。
// 期限切れのピンはクリーンアップ前でもpin_orderを並び順に使わない。
const activePin = `(g.is_pinned AND (g.pin_expires_at IS NULL OR g.pin_expires_at > $4))`

// List は条件に合うゲームを返す。
// 有効なピン留めのゲームをpin_order順で先頭に、その後は作成日時の新しい順に並べる。
func (r *PostgresGameRepo) List(ctx context.Context, filter model.GameFilter, now time.Time) ([]*model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		gameSelect+`
		WHERE ($1 = '' OR g.category = $1)
		  AND ($2 = '' OR EXISTS (
		      SELECT 1 FROM game_tags ft JOIN tags fg ON fg.id = ft.tag_id
		      WHERE ft.game_id = g.id AND fg.slug = $2))
		  AND ($3 = '' OR g.title ILIKE '%' || $3 || '%')
		GROUP BY g.id
		ORDER BY `+activePin+` DESC,
		         CASE WHEN `+activePin+` THEN g.pin_order ELSE 0 END ASC,
		         g.created_at DESC
		LIMIT $5 OFFSET $6`,
		filter.Category, filter.Tag, filter.Query, now, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return scanGames(rows)
}

// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
func (r *PostgresGameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	return r.findOne(ctx, `g.id = $1`, id)
}

// FindBySlug はスラッグでゲームを取得する。見つからない場合はnilを返す。
func (r *PostgresGameRepo) FindBySlug(ctx context.Context, slug string) (*model.Game, error) {
	return r.findOne(ctx, `g.slug = $1`, slug)
}

func (r *PostgresGameRepo) findOne(ctx context.Context, where string, arg string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		gameSelect+` WHERE `+where+` GROUP BY g.id`,
		arg,
	))
	if isMissingRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	return g, nil
}

// Create はゲームとタグの紐付けを同一トランザクションで作成する。
// 未登録のタグ名は紐付けない。スラッグ重複時はErrDuplicateを返す。
func (r *PostgresGameRepo) Create(ctx context.Context, game *model.Game) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, slug, title, description, thumbnail_url, game_url, category,
		                    is_pinned, pin_order, pin_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		game.ID, game.Slug, game.Title, game.Description, game.ThumbnailURL, game.GameURL, game.Category,
		game.IsPinned, game.PinOrder, game.PinExpiresAt, game.CreatedAt, game.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	if err := replaceGameTags(ctx, tx, game.ID, game.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はゲームとタグの紐付けを更新する。
// ピン留め状態とプレイ数はUpdatePin・プレイ記録でのみ更新する。
func (r *PostgresGameRepo) Update(ctx context.Context, game *model.Game) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE games
		 SET slug = $2, title = $3, description = $4, thumbnail_url = $5, game_url = $6,
		     category = $7, updated_at = $8
		 WHERE id = $1`,
		game.ID, game.Slug, game.Title, game.Description, game.ThumbnailURL, game.GameURL,
		game.Category, game.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	if err := replaceGameTags(ctx, tx, game.ID, game.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// replaceGameTags はゲームのタグ紐付けを指定したタグ名の集合で置き換える。
func replaceGameTags(ctx context.Context, tx *sql.Tx, gameID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM game_tags WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("failed to clear game tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO game_tags (game_id, tag_id)
		 SELECT $1, id FROM tags WHERE name = ANY($2)
		 ON CONFLICT DO NOTHING`,
		gameID, pq.Array(tags),
	)
	if err != nil {
		return fmt.Errorf("failed to insert game tags: %w", err)
	}
	return nil
}

// Delete は指定IDのゲームを削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresGameRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return requireRowAffected(result)
}

// UpdatePin はピン留め状態を更新し、更新後のゲームを返す。見つからない場合はnilを返す。
func (r *PostgresGameRepo) UpdatePin(ctx context.Context, id string, pinned bool, order int, expiresAt *time.Time) (*model.Game, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE games SET is_pinned = $2, pin_order = $3, pin_expires_at = $4, updated_at = now()
		 WHERE id = $1`,
		id, pinned, order, expiresAt,
	)
	if isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update pin: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// UnpinExpired はピン留め期限を過ぎたゲームのピン留めを解除し、件数を返す。
func (r *PostgresGameRepo) UnpinExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE games SET is_pinned = false, pin_order = 0, pin_expires_at = NULL, updated_at = now()
		 WHERE is_pinned = true AND pin_expires_at IS NOT NULL AND pin_expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to unpin expired games: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// CountByCategory は指定カテゴリ名を参照するゲーム数を返す。
func (r *PostgresGameRepo) CountByCategory(ctx context.Context, category string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM games WHERE category = $1`,
		category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count games by category: %w", err)
	}
	return n, nil
}

// Count は登録済みゲーム数を返す。
func (r *PostgresGameRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ GameRepository = (*PostgresGameRepo)(nil)
