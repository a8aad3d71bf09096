package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresAdvertisementRepo はPostgreSQLを使用した広告リポジトリ。
type PostgresAdvertisementRepo struct {
	db *sql.DB
}

// NewPostgresAdvertisementRepo はPostgresAdvertisementRepoを生成する。
func NewPostgresAdvertisementRepo(db *sql.DB) *PostgresAdvertisementRepo {
	return &PostgresAdvertisementRepo{db: db}
}

const adColumns = `id, name, location, ad_type, code, is_active, sort_order, start_date, end_date, created_at, updated_at`

func scanAdvertisement(row interface{ Scan(...any) error }) (*model.Advertisement, error) {
	ad := &model.Advertisement{}
	var start, end sql.NullTime
	err := row.Scan(&ad.ID, &ad.Name, &ad.Location, &ad.Type, &ad.Code, &ad.IsActive, &ad.SortOrder,
		&start, &end, &ad.CreatedAt, &ad.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time
		ad.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		ad.EndDate = &t
	}
	return ad, nil
}

func (r *PostgresAdvertisementRepo) query(ctx context.Context, query string, args ...any) ([]*model.Advertisement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}
	defer rows.Close()

	var ads []*model.Advertisement
	for rows.Next() {
		ad, err := scanAdvertisement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advertisement: %w", err)
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advertisements: %w", err)
	}
	return ads, nil
}

// ListActive は有効フラグの立った広告をsort_order昇順で返す。
func (r *PostgresAdvertisementRepo) ListActive(ctx context.Context, location string) ([]*model.Advertisement, error) {
	return r.query(ctx,
		`SELECT `+adColumns+` FROM advertisements
		 WHERE is_active = true AND ($1 = '' OR location = $1)
		 ORDER BY sort_order ASC, created_at ASC`,
		location,
	)
}

// List は全広告をsort_order昇順で返す。
func (r *PostgresAdvertisementRepo) List(ctx context.Context) ([]*model.Advertisement, error) {
	return r.query(ctx,
		`SELECT ` + adColumns + ` FROM advertisements ORDER BY sort_order ASC, created_at ASC`,
	)
}

// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
func (r *PostgresAdvertisementRepo) FindByID(ctx context.Context, id string) (*model.Advertisement, error) {
	ad, err := scanAdvertisement(r.db.QueryRowContext(ctx,
		`SELECT `+adColumns+` FROM advertisements WHERE id = $1`,
		id,
	))
	if isMissingRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find advertisement: %w", err)
	}
	return ad, nil
}

// Create は広告を作成する。
func (r *PostgresAdvertisementRepo) Create(ctx context.Context, ad *model.Advertisement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO advertisements (`+adColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ad.ID, ad.Name, ad.Location, ad.Type, ad.Code, ad.IsActive, ad.SortOrder,
		ad.StartDate, ad.EndDate, ad.CreatedAt, ad.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert advertisement: %w", err)
	}
	return nil
}

// Update は広告を更新する。見つからない場合はErrNotFoundを返す。
func (r *PostgresAdvertisementRepo) Update(ctx context.Context, ad *model.Advertisement) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE advertisements
		 SET name = $2, location = $3, ad_type = $4, code = $5, is_active = $6, sort_order = $7,
		     start_date = $8, end_date = $9, updated_at = $10
		 WHERE id = $1`,
		ad.ID, ad.Name, ad.Location, ad.Type, ad.Code, ad.IsActive, ad.SortOrder,
		ad.StartDate, ad.EndDate, ad.UpdatedAt,
	)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update advertisement: %w", err)
	}
	return requireRowAffected(result)
}

// Delete は広告を削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresAdvertisementRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM advertisements WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	return requireRowAffected(result)
}

// compile-time interface check
var _ AdvertisementRepository = (*PostgresAdvertisementRepo)(nil)
