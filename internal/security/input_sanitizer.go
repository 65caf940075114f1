// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザー入力文字列をサニタイズし、
// XSS攻撃やインジェクションからサービスを保護する。
// bluemondayライブラリの厳格ポリシーで全HTMLタグを除去した上で、
// javascript: URIプレフィックスとインラインイベントハンドラ属性の
// パターンを取り除く。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力サニタイズ機能のインターフェースを定義する。
// 登録・ログイン等でユーザーが入力した文字列の保存前に使用される。
type InputSanitizerService interface {
	// Sanitize は入力文字列から危険な要素を除去して返す。
	// 前後の空白を除去し、scriptタグ（内容ごと）と全HTMLタグ、
	// javascript: プレフィックス、on*= イベント属性パターンを取り除く。
	// 失敗モードは持たず、最悪でも過剰に削られた文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

var (
	// javascriptURIPattern は javascript: URIプレフィックス（大文字小文字不問）。
	javascriptURIPattern = regexp.MustCompile(`(?i)javascript:`)
	// eventHandlerPattern は onclick= 等のインラインイベント属性パターン。
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+=`)
)

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayの厳格ポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// bluemondayの厳格ポリシー（許可タグなし）を使用するため、
// 全HTMLタグが除去され、script/style要素は内容ごと破棄される。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力文字列から危険な要素を除去して返す。
// bluemondayはタグ除去後のテキストをHTML実体参照にエスケープするが、
// エスケープは表示時にEscapeHTMLで行う責務のため、ここでは復元する。
func (s *inputSanitizer) Sanitize(raw string) string {
	cleaned := s.policy.Sanitize(strings.TrimSpace(raw))
	cleaned = html.UnescapeString(cleaned)
	cleaned = javascriptURIPattern.ReplaceAllString(cleaned, "")
	cleaned = eventHandlerPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// htmlEscaper は & < > " ' / を実体参照に置換する。
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// EscapeHTML はHTML特殊文字を実体参照にエスケープする。
// サニタイズ済みテキストをHTMLとして描画する直前に使用する。
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// emailPattern は意図的に緩いメールアドレス形式。
// RFC 5322完全準拠は目指さない（空白と@を含まないローカル部・ドメイン部と、
// ドメイン部にドットが1つ以上あることのみを要求する）。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail はメールアドレス形式として妥当かどうかを返す。
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// パスワード長の制約。複雑さの要件は設けない。
const (
	passwordMinLength = 6
	passwordMaxLength = 128
)

// ValidatePassword はパスワードの検証を行う。
// 不正な場合はfalseとユーザー向けメッセージを返す。
func ValidatePassword(password string) (bool, string) {
	if len(password) < passwordMinLength {
		return false, "パスワードは6文字以上で入力してください。"
	}
	if len(password) > passwordMaxLength {
		return false, "パスワードが長すぎます。"
	}
	return true, ""
}
