// Package auth はアカウント登録、ログイン、セッション管理、パスワード再設定を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/repository"
)

// ResetNotifier はパスワード再設定メールの送信依頼を発行するインターフェース。
type ResetNotifier interface {
	PasswordResetRequested(ctx context.Context, email, resetURL string, expiresAt time.Time) error
}

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge   int           // セッション有効期間（秒）
	ResetTokenTTL   time.Duration // パスワード再設定トークンの有効期間
	BaseURL         string        // 再設定URLの組み立てに使うサイトURL
	AdminSetupKey   string        // 管理者初期設定キー。空の場合は無効
	AllowAdminSetup bool          // 本番環境ではfalse
	BcryptCost      int           // 0の場合はbcrypt.DefaultCost
}

// RegisterInput はアカウント登録の入力。
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.ResetTokenRepository
	notifier    ResetNotifier
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.ResetTokenRepository,
	notifier ResetNotifier,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		notifier:    notifier,
		config:      config,
		now:         time.Now,
	}
}

// NormalizeEmail はメールアドレスを比較用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register はアカウントを作成する。
// 最初に登録されたアカウントは自動的にADMINとなり、以降はUSERとなる。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)

	// 1. メールアドレスの重複を確認
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, emailTakenError()
	}

	// 2. 初回登録かどうかでロールを決定
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := model.RoleUser
	if count == 0 {
		role = model.RoleAdmin
	}

	// 3. パスワードをハッシュ化して保存
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, emailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はユーザーIDから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}

// RequestPasswordReset はパスワード再設定トークンを発行し、送信依頼イベントを発行する。
// 同じメールアドレスに発行済みのトークンは無効化する。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	// 1. アカウントの存在確認
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return model.NewAccountNotFoundError()
	}

	// 2. 発行済みトークンを削除
	if err := s.tokenRepo.DeleteByIdentifier(ctx, email); err != nil {
		return fmt.Errorf("failed to delete previous reset tokens: %w", err)
	}

	// 3. トークンを生成し、ハッシュのみを保存
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	now := s.now()
	record := &model.PasswordResetToken{
		Identifier: email,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(s.config.ResetTokenTTL),
		CreatedAt:  now,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	// 4. メール送信依頼を発行
	if err := s.notifier.PasswordResetRequested(ctx, email, s.resetURL(email, token), record.ExpiresAt); err != nil {
		return fmt.Errorf("failed to publish reset notification: %w", err)
	}

	slog.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ConfirmPasswordReset はトークンを検証してパスワードを更新する。
// トークンは1回だけ使用でき、成功時にはそのアカウントの全セッションを破棄する。
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	email = NormalizeEmail(email)
	tokenHash := hashToken(token)

	// 1. 新しいパスワードを先にハッシュ化する。失敗してもトークンは残る
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	// 2. トークンの存在と期限を確認
	record, err := s.tokenRepo.Find(ctx, email, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if record == nil {
		return model.NewInvalidTokenError()
	}
	if record.Expired(s.now()) {
		if _, err := s.tokenRepo.Delete(ctx, email, tokenHash); err != nil {
			return fmt.Errorf("failed to delete expired reset token: %w", err)
		}
		return model.NewTokenExpiredError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return model.NewAccountNotFoundError()
	}

	// 3. トークンを消費する。同時に使われた場合は先に削除した側だけが成功する
	consumed, err := s.tokenRepo.Delete(ctx, email, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if !consumed {
		return model.NewInvalidTokenError()
	}

	// 4. パスワードを更新する。失敗した場合は再試行できるようトークンを戻す
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if restoreErr := s.tokenRepo.Create(ctx, record); restoreErr != nil {
			slog.Error("failed to restore reset token",
				slog.String("user_id", user.ID),
				slog.String("error", restoreErr.Error()),
			)
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	// 5. 既存セッションを破棄
	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	slog.Info("password reset completed", slog.String("user_id", user.ID))
	return nil
}

// SetupAdmin は初期設定キーを使って管理者アカウントを作成または昇格する。
// 本番環境やキー未設定時は常に認証エラーとする。
func (s *Service) SetupAdmin(ctx context.Context, key string, in RegisterInput) (*model.User, error) {
	if !s.config.AllowAdminSetup || s.config.AdminSetupKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(s.config.AdminSetupKey)) != 1 {
		return nil, model.NewUnauthorizedError()
	}

	email := NormalizeEmail(in.Email)
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user != nil {
		// 既存アカウントはパスワードを再設定してADMINへ昇格
		if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
		if err := s.userRepo.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		user.PasswordHash = hash
		user.Role = model.RoleAdmin
		slog.Warn("admin setup promoted existing account", slog.String("user_id", user.ID))
		return user, nil
	}

	now := s.now()
	user = &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	slog.Warn("admin setup created account", slog.String("user_id", user.ID))
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// hashPassword はbcryptでパスワードをハッシュ化する。
// bcryptはバイト数で上限を判定するため、マルチバイト文字の長いパスワードは検証エラーとする。
func (s *Service) hashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で入力してください", MaxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) resetURL(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return strings.TrimRight(s.config.BaseURL, "/") + "/reset-password?" + q.Encode()
}

func emailTakenError() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: model.CategoryValidation,
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// generateToken は暗号的に安全な32バイトのランダム値を16進文字列で返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken はトークンのSHA-256ハッシュを16進文字列で返す。
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
