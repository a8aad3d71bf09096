package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/gameportal/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// sessionsFor はセッションIDとロールの対応からモックを生成する。
func sessionsFor(roles map[string]model.Role) *mockSessionRepository {
	return &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			role, ok := roles[id]
			if !ok {
				return nil, nil
			}
			return &model.Session{
				ID:        id,
				UserID:    "user-" + id,
				Email:     id + "@example.com",
				Role:      role,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsPrincipal(t *testing.T) {
	mw := NewSessionMiddleware(sessionsFor(map[string]model.Role{"admin-sess": model.RoleAdmin}))

	var captured *Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "admin-sess"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured == nil || captured.UserID != "user-admin-sess" || !captured.IsAdmin() {
		t.Errorf("principal = %+v", captured)
	}
	if captured.Email != "admin-sess@example.com" {
		t.Errorf("Email = %q", captured.Email)
	}
}

func TestSessionMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		repo   *mockSessionRepository
	}{
		{"Cookieなし", "", sessionsFor(nil)},
		{"期限切れまたは不明なセッション", "expired", sessionsFor(nil)},
		{"リポジトリエラー", "any", &mockSessionRepository{findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("db down")
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if code := decodeErrorCode(t, w); code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestOptionalSessionMiddleware(t *testing.T) {
	mw := NewOptionalSessionMiddleware(sessionsFor(map[string]model.Role{"user-sess": model.RoleUser}))

	var captured *Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// 未認証でも通過する
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy-game", nil))
	if w.Code != http.StatusOK || captured != nil {
		t.Errorf("anonymous: status = %d, principal = %+v", w.Code, captured)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/proxy-game", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "user-sess"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if captured == nil || captured.UserID != "user-user-sess" {
		t.Errorf("principal = %+v, want user-user-sess", captured)
	}
}

func TestRequireRole(t *testing.T) {
	repo := sessionsFor(map[string]model.Role{"admin": model.RoleAdmin, "user": model.RoleUser})

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{"管理者は通過", "admin", http.StatusOK},
		{"一般ユーザーは401", "user", http.StatusUnauthorized},
		{"未認証は401", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(repo)(RequireRole(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/tags", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
		})
	}
}

func TestContextHelpers(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithUserID(context.Background(), "user-1")
	userID, err := UserIDFromContext(ctx)
	if err != nil || userID != "user-1" {
		t.Errorf("UserIDFromContext() = %q, %v", userID, err)
	}
	if p := PrincipalFromContext(ctx); p.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", p.Role, model.RoleUser)
	}
}
