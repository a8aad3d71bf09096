package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// PostgresResetTokenRepo はPostgreSQLを使用したパスワード再設定トークンリポジトリ。
type PostgresResetTokenRepo struct {
	db *sql.DB
}

// NewPostgresResetTokenRepo はPostgresResetTokenRepoを生成する。
func NewPostgresResetTokenRepo(db *sql.DB) *PostgresResetTokenRepo {
	return &PostgresResetTokenRepo{db: db}
}

// Create はトークンを保存する。
func (r *PostgresResetTokenRepo) Create(ctx context.Context, token *model.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (identifier, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token.Identifier, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reset token: %w", err)
	}
	return nil
}

// Find は識別子とトークンハッシュでトークンを取得する。見つからない場合はnilを返す。
// 期限切れのトークンも返すため、期限の判定は呼び出し側で行う。
func (r *PostgresResetTokenRepo) Find(ctx context.Context, identifier, tokenHash string) (*model.PasswordResetToken, error) {
	token := &model.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT identifier, token_hash, expires_at, created_at
		 FROM verification_tokens
		 WHERE identifier = $1 AND token_hash = $2`,
		identifier, tokenHash,
	).Scan(&token.Identifier, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset token: %w", err)
	}
	return token, nil
}

// Delete は指定トークンを削除し、削除できたかどうかを返す。
// 同時に消費された場合は片方だけがtrueになる。
func (r *PostgresResetTokenRepo) Delete(ctx context.Context, identifier, tokenHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1 AND token_hash = $2`,
		identifier, tokenHash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete reset token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByIdentifier は指定識別子の全トークンを削除する。
func (r *PostgresResetTokenRepo) DeleteByIdentifier(ctx context.Context, identifier string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1`,
		identifier,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reset tokens: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
func (r *PostgresResetTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ResetTokenRepository = (*PostgresResetTokenRepo)(nil)
