package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountBanned      = "ACCOUNT_BANNED"
	ErrCodeAccountPending     = "ACCOUNT_PENDING"
	ErrCodeAccountRejected    = "ACCOUNT_REJECTED"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeContentNotFound    = "CONTENT_NOT_FOUND"
	ErrCodeDuplicateFavorite  = "DUPLICATE_FAVORITE"
	ErrCodeForbiddenSelf      = "FORBIDDEN_SELF"
	ErrCodeForbiddenAdmin     = "FORBIDDEN_ADMIN"
	ErrCodeUnsafeURL          = "UNSAFE_URL"
	ErrCodeCSRFTokenInvalid   = "CSRF_TOKEN_INVALID"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス不明とパスワード不一致を区別しない（列挙攻撃対策）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAccountBannedError はアカウント凍結エラーを生成する。
func NewAccountBannedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountBanned,
		Message:  "このアカウントは凍結されています。",
		Category: "auth",
		Action:   "サポートにお問い合わせください。",
	}
}

// NewAccountPendingError は承認待ちエラーを生成する。
func NewAccountPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountPending,
		Message:  "アカウントは現在審査中です。",
		Category: "auth",
		Action:   "管理者の承認をお待ちください。",
	}
}

// NewAccountRejectedError は登録却下エラーを生成する。
func NewAccountRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountRejected,
		Message:  "登録申請は却下されました。",
		Category: "auth",
		Action:   "詳細はサポートにお問い合わせください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewMissingFieldsError は必須項目不足エラーを生成する。
func NewMissingFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  "すべての項目を入力してください。",
		Category: "validation",
		Action:   "未入力の項目を確認してください。",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewWeakPasswordError はパスワード検証エラーを生成する。
func NewWeakPasswordError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  message,
		Category: "validation",
		Action:   "6文字以上128文字以下のパスワードを設定してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
// resetInSeconds は再試行可能になるまでの秒数。
func NewRateLimitedError(resetInSeconds int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  fmt.Sprintf("試行回数の上限に達しました。%d秒後に再度お試しください。", resetInSeconds),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewContentNotFoundError は作品未検出エラーを生成する。
func NewContentNotFoundError(contentID string) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("指定された作品が見つかりません: %s", contentID),
		Category: "catalog",
		Action:   "作品IDを確認してください。",
	}
}

// NewDuplicateFavoriteError はお気に入り重複登録エラーを生成する。
func NewDuplicateFavoriteError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFavorite,
		Message:  "この作品は既にお気に入りに登録されています。",
		Category: "catalog",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewForbiddenSelfError は自分自身への管理操作エラーを生成する。
func NewForbiddenSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenSelf,
		Message:  "自分自身に対してこの操作は実行できません。",
		Category: "auth",
		Action:   "対象ユーザーを確認してください。",
	}
}

// NewForbiddenAdminError は管理者への管理操作エラーを生成する。
func NewForbiddenAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenAdmin,
		Message:  "他の管理者に対してこの操作は実行できません。",
		Category: "auth",
		Action:   "対象ユーザーを確認してください。",
	}
}

// NewCSRFTokenError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "セキュリティトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みして再度お試しください。",
	}
}

// NewUnsafeURLError は安全でないURLエラーを生成する。
func NewUnsafeURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeURL,
		Message:  fmt.Sprintf("指定されたURLは使用できません: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps URLを指定してください。",
	}
}
