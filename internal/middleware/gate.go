package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/gameportal/internal/model"
)

// loginPath はアクセス制御で未認証時のリダイレクト先。
const loginPath = "/login"

// NewAccessGate はページ遷移に対するアクセス制御ミドルウェアを返す。
//   - /admin で始まるパス: ADMINロールのセッションが必要
//   - /embed で始まるパス: 任意のセッションが必要
//
// 条件を満たさない場合は /login?callbackUrl=<元のパス> へ302でリダイレクトする。
// /api 配下はセッションミドルウェアとRequireRoleで個別に制御するため対象外。
func NewAccessGate(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requireAdmin := strings.HasPrefix(r.URL.Path, "/admin")
			requireSession := requireAdmin || strings.HasPrefix(r.URL.Path, "/embed")
			if !requireSession {
				next.ServeHTTP(w, r)
				return
			}

			p := PrincipalFromContext(r.Context())
			if p == nil {
				p = resolvePrincipal(r, finder)
			}
			if p == nil || (requireAdmin && p.Role != model.RoleAdmin) {
				http.Redirect(w, r, LoginRedirectURL(r.URL), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// LoginRedirectURL は元のパスとクエリをcallbackUrlに載せたログインURLを返す。
func LoginRedirectURL(original *url.URL) string {
	callback := original.Path
	if original.RawQuery != "" {
		callback += "?" + original.RawQuery
	}
	return loginPath + "?callbackUrl=" + url.QueryEscape(callback)
}
