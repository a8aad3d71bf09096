// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, not_found, conflict, expired, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategoryExpired    = "expired"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeAccessExpired      = "ACCESS_EXPIRED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeGameNotFound       = "GAME_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeTagNotFound        = "TAG_NOT_FOUND"
	ErrCodeAdNotFound         = "ADVERTISEMENT_NOT_FOUND"
	ErrCodeDomainNotFound     = "DOMAIN_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeReviewNotFound     = "REVIEW_NOT_FOUND"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrCodeTagExists          = "TAG_EXISTS"
	ErrCodeCategoryExists     = "CATEGORY_EXISTS"
	ErrCodeCategoryInUse      = "CATEGORY_IN_USE"
	ErrCodeSlugTaken          = "SLUG_TAKEN"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeDomainExists       = "DOMAIN_EXISTS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeCSRFFailed         = "CSRF_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証・権限不足エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "権限のあるアカウントでログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認してください。",
	}
}

// NewValidationError は入力値エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
// codeには ErrCodeGameNotFound などの定義済みコードを指定する。
func NewNotFoundError(code, resource, id string) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", resource, id),
		Category: CategoryNotFound,
		Action:   "IDを確認してください。",
	}
}

// NewConflictError は一意制約・参照整合性違反エラーを生成する。
func NewConflictError(code, message string) *APIError {
	return &APIError{
		Code:     code,
		Message:  message,
		Category: CategoryConflict,
		Action:   "既存のデータを確認してください。",
	}
}

// NewCategoryInUseError は使用中カテゴリの削除エラーを生成する。
func NewCategoryInUseError(name string, games int) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryInUse,
		Message:  fmt.Sprintf("カテゴリ「%s」は%d件のゲームで使用中のため削除できません。", name, games),
		Category: CategoryConflict,
		Action:   "先にゲームのカテゴリを変更してください。",
	}
}

// NewAccessDeniedError はゲームアクセストークンの検証失敗エラーを生成する。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "アクセスが拒否されました。",
		Category: CategoryAuth,
		Action:   "ゲームページから再度開いてください。",
	}
}

// NewAccessExpiredError はゲームアクセストークンの期限切れエラーを生成する。
func NewAccessExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessExpired,
		Message:  "アクセストークンの有効期限が切れています。",
		Category: CategoryExpired,
		Action:   "ゲームページを再読み込みしてください。",
	}
}

// NewAccountNotFoundError はメールアドレスに対応するアカウントが存在しない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "このメールアドレスのアカウントは登録されていません。",
		Category: CategoryValidation,
		Action:   "メールアドレスを確認してください。",
	}
}

// NewInvalidTokenError はパスワード再設定トークンが無効な場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "無効なトークンです。",
		Category: CategoryValidation,
		Action:   "パスワード再設定をもう一度申請してください。",
	}
}

// NewTokenExpiredError はパスワード再設定トークンが期限切れの場合のエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: CategoryExpired,
		Action:   "パスワード再設定をもう一度申請してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: CategoryValidation,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: CategoryAuth,
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
