package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// List はカテゴリを名前順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if isMissingRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}

// FindByNameOrSlug は名前またはスラッグが一致するカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE name = $1 OR slug = $2 LIMIT 1`,
		name, slug,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}
	return c, nil
}

// Create はカテゴリを作成する。重複時はErrDuplicateを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Slug, category.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// Delete は指定IDのカテゴリを削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireRowAffected(result)
}

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// List はタグを名前順で返す。
func (r *PostgresTagRepo) List(ctx context.Context) ([]*model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM tags ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		tag := &model.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// FindByNameOrSlug は名前またはスラッグが一致するタグを取得する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Tag, error) {
	tag := &model.Tag{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM tags WHERE name = $1 OR slug = $2 LIMIT 1`,
		name, slug,
	).Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	return tag, nil
}

// Create はタグを作成する。重複時はErrDuplicateを返す。
func (r *PostgresTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		tag.ID, tag.Name, tag.Slug, tag.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

// Delete は指定IDのタグを削除する。ゲームとの紐付けはCASCADE削除される。
func (r *PostgresTagRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return requireRowAffected(result)
}

// compile-time interface check
var (
	_ CategoryRepository = (*PostgresCategoryRepo)(nil)
	_ TagRepository      = (*PostgresTagRepo)(nil)
)
