// Package model はドメインモデルを定義する。
package model

import "time"

// Role はアカウントの権限レベルを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "USER"
	// RoleAdmin は管理画面を操作できる管理者。
	RoleAdmin Role = "ADMIN"
)

// Valid はRoleが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User はサービス利用アカウントを表す。
// 物理削除はせず、ロール変更とパスワード再設定のみで更新される。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin は管理者ロールかどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session はユーザーのログインセッションを表す。
// 検索時にusersテーブルと結合し、メールアドレスとロールを保持する。
type Session struct {
	ID        string
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PasswordResetToken はパスワード再設定トークンを表す。
// トークン本体は保存せず、SHA-256ハッシュのみを保持する。
type PasswordResetToken struct {
	Identifier string // メールアドレス
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired は指定時刻の時点でトークンが期限切れかどうかを返す。
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
