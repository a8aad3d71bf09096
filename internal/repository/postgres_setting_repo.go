package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// 設定テーブル名
const (
	SiteConfigTable   = "site_configs"
	SiteSettingsTable = "site_settings"
)

// PostgresSettingRepo はPostgreSQLを使用したキーバリュー設定リポジトリ。
// site_configsとsite_settingsは同じ構造のため、テーブル名を切り替えて共用する。
type PostgresSettingRepo struct {
	db    *sql.DB
	table string
}

// NewPostgresSettingRepo はPostgresSettingRepoを生成する。
// tableにはSiteConfigTableまたはSiteSettingsTableを指定する。それ以外はpanicする。
func NewPostgresSettingRepo(db *sql.DB, table string) *PostgresSettingRepo {
	if table != SiteConfigTable && table != SiteSettingsTable {
		panic(fmt.Sprintf("unknown setting table: %s", table))
	}
	return &PostgresSettingRepo{db: db, table: table}
}

// All は全設定をマップで返す。
func (r *PostgresSettingRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM `+r.table+` ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table, err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.table, err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.table, err)
	}
	return values, nil
}

// Upsert は複数の設定を同一トランザクションで登録・更新する。
func (r *PostgresSettingRepo) Upsert(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+r.table+` (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			k, v,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %s %q: %w", r.table, k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SettingRepository = (*PostgresSettingRepo)(nil)
