// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gameportal/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var principalContextKey = contextKey("principal")

// Principal はセッションから解決した認証済みユーザー。
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin は管理者ロールかどうかを返す。
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// resolvePrincipal はCookieのセッションIDから認証済みユーザーを解決する。
// Cookieが無い、または期限切れの場合はnilを返す。
func resolvePrincipal(r *http.Request, finder SessionFinder) *Principal {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := finder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		return nil
	}
	if session == nil {
		return nil
	}
	return &Principal{UserID: session.UserID, Email: session.Email, Role: session.Role}
}

// NewOptionalSessionMiddleware はセッションがあれば認証済みユーザーをコンテキストに注入する。
// 未認証でもリクエストは拒否しない。
func NewOptionalSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := resolvePrincipal(r, finder); p != nil {
				r = r.WithContext(ContextWithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 認証済みユーザーをリクエストコンテキストに注入する。
// 未認証リクエストには401 UNAUTHORIZEDを返す。
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 先行するミドルウェアで解決済みならそれを使う
			p := PrincipalFromContext(r.Context())
			if p == nil {
				p = resolvePrincipal(r, finder)
			}
			if p == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole は指定ロールを持たないユーザーを401 UNAUTHORIZEDで拒否する。
// NewSessionMiddlewareの後に配置する。
func RequireRole(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil || p.Role != role {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// ContextWithPrincipal はコンテキストに認証済みユーザーを注入する。
// ロギングミドルウェア配下であれば、ログ出力用にも記録する。
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	if slot, ok := ctx.Value(principalSlotKey).(*principalSlot); ok {
		slot.principal = p
	}
	return context.WithValue(ctx, principalContextKey, p)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return p.UserID, nil
}

// ContextWithUserID はコンテキストに一般ユーザーとしてユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithPrincipal(ctx, &Principal{UserID: userID, Role: model.RoleUser})
}
