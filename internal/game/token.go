package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/gameportal/internal/model"
)

// DefaultAccessTokenTTL はゲームアクセストークンの既定の有効期間。
const DefaultAccessTokenTTL = 30 * time.Minute

// accessClaims はゲームアクセストークンのクレーム。
type accessClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// TokenSigner はゲームIDに紐付いた短命トークンを発行・検証する。
// HS256で署名し、発行時刻と有効期限をクレームに含める。
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner はTokenSignerを生成する。ttlが0以下の場合は既定値を使う。
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はゲームIDに対するトークンと有効期限を返す。
// クレームの時刻は秒単位のため、iatは発行時刻を秒に切り捨てた値になる。
func (s *TokenSigner) Issue(gameID string) (string, time.Time, error) {
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := accessClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンが指定ゲームに対して有効かどうかを検証する。
// 署名不正・形式不正・ゲームID不一致はACCESS_DENIED、
// 発行から有効期間を超えたものはACCESS_EXPIREDを返す。
// 経過時間は秒単位で比較し、ちょうど有効期間の時点までは受け付ける。
func (s *TokenSigner) Verify(token, gameID string) *model.APIError {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		// 期限切れでも別ゲームのトークンは拒否として扱う
		if claims.GameID != gameID {
			return model.NewAccessDeniedError()
		}
		return model.NewAccessExpiredError()
	default:
		return model.NewAccessDeniedError()
	}

	if claims.GameID != gameID {
		return model.NewAccessDeniedError()
	}
	if claims.IssuedAt == nil || s.now().Truncate(time.Second).Sub(claims.IssuedAt.Time) > s.ttl {
		return model.NewAccessExpiredError()
	}
	return nil
}
