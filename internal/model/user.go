// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーを示す。
	RoleUser Role = "user"
	// RoleAdmin は管理者を示す。
	RoleAdmin Role = "admin"
)

// UserStatus はユーザーアカウントの承認状態を表す。
// 新規登録は pending で作成され、管理者の承認で approved、却下で rejected になる。
type UserStatus string

const (
	// StatusPending は管理者の承認待ち状態を示す。
	StatusPending UserStatus = "pending"
	// StatusApproved は承認済み状態を示す。
	StatusApproved UserStatus = "approved"
	// StatusRejected は登録却下状態を示す。
	StatusRejected UserStatus = "rejected"
)

// User はサービス利用ユーザーを表す。
// PasswordHash はbcryptハッシュであり、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	IsBanned     bool
	Avatar       string
	CreatedAt    time.Time
	LastActive   time.Time
}

// TokenPayload は署名付きトークンに埋め込むアイデンティティ情報を表す。
// 署名後は不変であり、内容を変更するには新しいトークンを発行する。
type TokenPayload struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin はペイロードが管理者ロールかどうかを返す。
func (p *TokenPayload) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
