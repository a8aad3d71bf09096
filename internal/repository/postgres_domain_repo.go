package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresDomainRepo はPostgreSQLを使用したカスタムドメインリポジトリ。
type PostgresDomainRepo struct {
	db *sql.DB
}

// NewPostgresDomainRepo はPostgresDomainRepoを生成する。
func NewPostgresDomainRepo(db *sql.DB) *PostgresDomainRepo {
	return &PostgresDomainRepo{db: db}
}

func scanDomain(row interface{ Scan(...any) error }) (*model.DomainBinding, error) {
	d := &model.DomainBinding{}
	var checked sql.NullTime
	if err := row.Scan(&d.ID, &d.Domain, &d.IsActive, &checked, &d.CreatedAt); err != nil {
		return nil, err
	}
	if checked.Valid {
		t := checked.Time
		d.LastCheckedAt = &t
	}
	return d, nil
}

// List は全ドメインを作成日時順で返す。
func (r *PostgresDomainRepo) List(ctx context.Context) ([]*model.DomainBinding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, domain, is_active, last_checked_at, created_at FROM domains ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []*model.DomainBinding
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domains: %w", err)
	}
	return domains, nil
}

// FindByID は指定IDのドメインを取得する。見つからない場合はnilを返す。
func (r *PostgresDomainRepo) FindByID(ctx context.Context, id string) (*model.DomainBinding, error) {
	d, err := scanDomain(r.db.QueryRowContext(ctx,
		`SELECT id, domain, is_active, last_checked_at, created_at FROM domains WHERE id = $1`,
		id,
	))
	if isMissingRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find domain: %w", err)
	}
	return d, nil
}

// Create はドメインを作成する。重複時はErrDuplicateを返す。
func (r *PostgresDomainRepo) Create(ctx context.Context, binding *model.DomainBinding) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (id, domain, is_active, created_at) VALUES ($1, $2, $3, $4)`,
		binding.ID, binding.Domain, binding.IsActive, binding.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert domain: %w", err)
	}
	return nil
}

// Delete はドメインを削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresDomainRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateCheck はDNS検証結果（有効フラグと検証日時）を保存する。
func (r *PostgresDomainRepo) UpdateCheck(ctx context.Context, id string, isActive bool, checkedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE domains SET is_active = $2, last_checked_at = $3 WHERE id = $1`,
		id, isActive, checkedAt,
	)
	if isInvalidID(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update domain check: %w", err)
	}
	return requireRowAffected(result)
}

// compile-time interface check
var _ DomainRepository = (*PostgresDomainRepo)(nil)
