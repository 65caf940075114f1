// Package token は署名付きアイデンティティトークンの発行と検証を提供する。
// トークンはHS256で署名されたJWTであり、{userId, email, role}と
// 発行時刻・有効期限を自己完結的に持つ。サーバー側の失効リストは持たない。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/cineman/internal/model"
)

// DefaultTTL はトークンのデフォルト有効期間（7日間）。
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrTokenExpired はトークンの有効期限切れを示す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid は署名不正・改ざん・形式不正のトークンを示す。
	// 期限切れ以外の検証失敗はすべてこのエラーに集約される。
	ErrTokenInvalid = errors.New("token invalid")
)

// claims はJWTに埋め込むクレーム構造。
type claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config はトークンサービスの設定。
type Config struct {
	Secret []byte        // HS256署名鍵。空は許可しない。
	TTL    time.Duration // トークン有効期間。0の場合はDefaultTTL。
}

// Service はトークンの発行と検証を行う。
// 署名鍵を排他的に保持し、ペイロードの完全性を保証する。
// now はテストで時刻を差し替えるために注入可能にしてある。
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService はServiceを生成する。署名鍵が空の場合はエラーを返す。
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: cfg.Secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock は時刻取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// Create はペイロードを埋め込んだ署名付きトークンを発行する。
func (s *Service) Create(payload model.TokenPayload) (string, error) {
	now := s.now()
	c := claims{
		Email: payload.Email,
		Role:  payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

// Verify はトークンの署名と有効期限を検証し、デコードしたペイロードを返す。
// 期限切れはErrTokenExpired、それ以外の検証失敗はErrTokenInvalidを返す。
// 呼び出し側（セッションリゾルバ）は両者を区別せず未認証として扱う。
func (s *Service) Verify(tokenStr string) (*model.TokenPayload, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(tokenStr, &c,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return &model.TokenPayload{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   c.Role,
	}, nil
}

// TTL はトークンの有効期間を返す。CookieのMax-Age設定に使用する。
func (s *Service) TTL() time.Duration {
	return s.ttl
}
