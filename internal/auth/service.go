// Package auth は登録・ログイン・ログアウトの認証フローを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/repository"
	"github.com/hitoshi/cineman/internal/security"
)

// bcryptCost はパスワードハッシュの計算コスト。
const bcryptCost = 12

// TokenIssuer はトークン発行に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenIssuer interface {
	Create(payload model.TokenPayload) (string, error)
	TTL() time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	sanitizer security.InputSanitizerService
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens TokenIssuer, sanitizer security.InputSanitizerService) *Service {
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		sanitizer: sanitizer,
	}
}

// Register は新規ユーザーを登録する。
// 作成されたアカウントは承認待ち（pending）状態であり、
// 管理者が承認するまでログインできない。トークンは発行しない。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = s.sanitizer.Sanitize(name)
	email = s.sanitizer.Sanitize(email)

	if name == "" || email == "" || password == "" {
		return nil, model.NewMissingFieldsError()
	}
	if !security.IsValidEmail(email) {
		return nil, model.NewInvalidEmailError()
	}
	if ok, msg := security.ValidatePassword(password); !ok {
		return nil, model.NewWeakPasswordError(msg)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Status:       model.StatusPending,
		IsBanned:     false,
		CreatedAt:    now,
		LastActive:   now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("status", string(user.Status)),
	)

	return user, nil
}

// BootstrapAdmin は最初の管理者アカウントを作成する。
// 新規デプロイ直後は承認済みの管理者が存在せず管理画面に到達できないため、
// create-adminサブコマンドからこのメソッドで初期管理者を投入する。
// 作成されるアカウントは承認済み・管理者ロールで、即座にログイン可能。
// 同じメールアドレスのユーザーが既に存在する場合はエラーを返す。
func (s *Service) BootstrapAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	name = s.sanitizer.Sanitize(name)
	email = s.sanitizer.Sanitize(email)

	if name == "" || email == "" || password == "" {
		return nil, model.NewMissingFieldsError()
	}
	if !security.IsValidEmail(email) {
		return nil, model.NewInvalidEmailError()
	}
	if ok, msg := security.ValidatePassword(password); !ok {
		return nil, model.NewWeakPasswordError(msg)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	admin := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Status:       model.StatusApproved,
		IsBanned:     false,
		CreatedAt:    now,
		LastActive:   now,
	}

	if err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("admin user bootstrapped",
		slog.String("user_id", admin.ID),
	)

	return admin, nil
}

// Login は認証情報を検証し、署名付きトークンを発行する。
//
// 判定順序:
//  1. ユーザー未検出 → 認証情報エラー（メールアドレスの存在は開示しない）
//  2. 凍結アカウント → 凍結エラー
//  3. 承認待ち → 審査中エラー
//  4. 却下済み → 却下エラー
//  5. パスワード不一致 → 認証情報エラー
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = s.sanitizer.Sanitize(email)

	if email == "" || password == "" {
		return nil, "", model.NewMissingFieldsError()
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if user.IsBanned {
		return nil, "", model.NewAccountBannedError()
	}
	switch user.Status {
	case model.StatusPending:
		return nil, "", model.NewAccountPendingError()
	case model.StatusRejected:
		return nil, "", model.NewAccountRejectedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	tokenStr, err := s.tokens.Create(model.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	// 最終アクティブ日時の更新失敗はログインを妨げない
	if err := s.userRepo.UpdateLastActive(ctx, user.ID); err != nil {
		slog.Warn("failed to update last_active",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, tokenStr, nil
}

// CurrentUser はセッションのユーザーIDからユーザーレコードの最新状態を取得する。
// トークン発行後に凍結されたアカウントはここで検出される。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.IsBanned {
		return nil, model.NewAccountBannedError()
	}

	// 最終アクティブ日時の更新失敗は取得を妨げない
	if err := s.userRepo.UpdateLastActive(ctx, user.ID); err != nil {
		slog.Warn("failed to update last_active",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// TokenTTL は発行するトークンの有効期間を返す。Cookieの有効期間に使用する。
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
