// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// UserRepository はアカウントデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Count は登録済みユーザー数を返す。
	Count(ctx context.Context) (int, error)
	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateRole はロールを更新する。見つからない場合はErrNotFoundを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error
	// List はユーザー一覧を作成日時の新しい順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションをユーザー情報付きで取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GameRepository はゲームデータの永続化インターフェース。
type GameRepository interface {
	// List は条件に合うゲームを返す。
	// 有効なピン留めのゲームをpin_order順で先頭に、その後は作成日時の新しい順に並べる。
	List(ctx context.Context, filter model.GameFilter, now time.Time) ([]*model.Game, error)
	// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Game, error)
	// FindBySlug はスラッグでゲームを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Game, error)
	// Create はゲームとタグの紐付けを同一トランザクションで作成する。
	// スラッグ重複時はErrDuplicateを返す。
	Create(ctx context.Context, game *model.Game) error
	// Update はゲームとタグの紐付けを更新する。
	// 見つからない場合はErrNotFound、スラッグ重複時はErrDuplicateを返す。
	Update(ctx context.Context, game *model.Game) error
	// Delete は指定IDのゲームを削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
	// UpdatePin はピン留め状態を更新し、更新後のゲームを返す。見つからない場合はnilを返す。
	UpdatePin(ctx context.Context, id string, pinned bool, order int, expiresAt *time.Time) (*model.Game, error)
	// UnpinExpired はピン留め期限を過ぎたゲームのピン留めを解除し、件数を返す。
	UnpinExpired(ctx context.Context, now time.Time) (int64, error)
	// CountByCategory は指定カテゴリ名を参照するゲーム数を返す。
	CountByCategory(ctx context.Context, category string) (int, error)
	// Count は登録済みゲーム数を返す。
	Count(ctx context.Context) (int, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// List はカテゴリを名前順で返す。
	List(ctx context.Context) ([]*model.Category, error)
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)
	// FindByNameOrSlug は名前またはスラッグが一致するカテゴリを取得する。見つからない場合はnilを返す。
	FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Category, error)
	// Create はカテゴリを作成する。重複時はErrDuplicateを返す。
	Create(ctx context.Context, category *model.Category) error
	// Delete は指定IDのカテゴリを削除する。
	Delete(ctx context.Context, id string) error
}

// TagRepository はタグの永続化インターフェース。
type TagRepository interface {
	// List はタグを名前順で返す。
	List(ctx context.Context) ([]*model.Tag, error)
	// FindByNameOrSlug は名前またはスラッグが一致するタグを取得する。見つからない場合はnilを返す。
	FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Tag, error)
	// Create はタグを作成する。重複時はErrDuplicateを返す。
	Create(ctx context.Context, tag *model.Tag) error
	// Delete は指定IDのタグを削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// AdvertisementRepository は広告の永続化インターフェース。
type AdvertisementRepository interface {
	// ListActive は有効フラグの立った広告をsort_order昇順で返す。
	// locationが空でない場合はその掲載位置の広告のみを返す。掲載期間の判定は呼び出し側で行う。
	ListActive(ctx context.Context, location string) ([]*model.Advertisement, error)
	// List は全広告をsort_order昇順で返す。
	List(ctx context.Context) ([]*model.Advertisement, error)
	// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Advertisement, error)
	// Create は広告を作成する。
	Create(ctx context.Context, ad *model.Advertisement) error
	// Update は広告を更新する。見つからない場合はErrNotFoundを返す。
	Update(ctx context.Context, ad *model.Advertisement) error
	// Delete は広告を削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// DomainRepository はカスタムドメインの永続化インターフェース。
type DomainRepository interface {
	// List は全ドメインを作成日時順で返す。
	List(ctx context.Context) ([]*model.DomainBinding, error)
	// FindByID は指定IDのドメインを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.DomainBinding, error)
	// Create はドメインを作成する。重複時はErrDuplicateを返す。
	Create(ctx context.Context, binding *model.DomainBinding) error
	// Delete はドメインを削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
	// UpdateCheck はDNS検証結果（有効フラグと検証日時）を保存する。
	UpdateCheck(ctx context.Context, id string, isActive bool, checkedAt time.Time) error
}

// SettingRepository はキーバリュー設定の永続化インターフェース。
type SettingRepository interface {
	// All は全設定をマップで返す。
	All(ctx context.Context) (map[string]string, error)
	// Upsert は複数の設定を同一トランザクションで登録・更新する。
	Upsert(ctx context.Context, values map[string]string) error
}

// ResetTokenRepository はパスワード再設定トークンの永続化インターフェース。
type ResetTokenRepository interface {
	// Create はトークンを保存する。
	Create(ctx context.Context, token *model.PasswordResetToken) error
	// Find は識別子とトークンハッシュでトークンを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, identifier, tokenHash string) (*model.PasswordResetToken, error)
	// Delete は指定トークンを削除し、削除できたかどうかを返す。
	Delete(ctx context.Context, identifier, tokenHash string) (bool, error)
	// DeleteByIdentifier は指定識別子の全トークンを削除する。
	DeleteByIdentifier(ctx context.Context, identifier string) error
	// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PlayRepository はプレイ記録と訪問国集計の永続化インターフェース。
type PlayRepository interface {
	// Record はプレイを記録し、ゲームのプレイ数と国別訪問数を同一トランザクションで加算する。
	Record(ctx context.Context, play *model.GamePlay) error
	// Count は総プレイ数を返す。
	Count(ctx context.Context) (int64, error)
	// TopCountries は訪問数の多い国を上位limit件返す。
	TopCountries(ctx context.Context, limit int) ([]model.VisitorCountry, error)
}

// ReviewRepository はゲームレビューの永続化インターフェース。
type ReviewRepository interface {
	// ListByGame はゲームのレビューを投稿者名付きで新しい順に返す。
	ListByGame(ctx context.Context, gameID string) ([]*model.GameReview, error)
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.GameReview, error)
	// Upsert は(game_id, user_id)単位でレビューを登録・更新する。
	// review.ID、CreatedAtは保存後の値で上書きされる。
	Upsert(ctx context.Context, review *model.GameReview) error
	// Delete は指定IDのレビューを削除する。
	Delete(ctx context.Context, id string) error
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// ListGames はユーザーのお気に入りゲームを追加日時の新しい順に返す。
	ListGames(ctx context.Context, userID string) ([]*model.Game, error)
	// Add はお気に入りを追加する。登録済みの場合は何もしない。
	Add(ctx context.Context, userID, gameID string) error
	// Remove はお気に入りを削除する。
	Remove(ctx context.Context, userID, gameID string) error
}
