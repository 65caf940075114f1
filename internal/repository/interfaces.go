// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/cineman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスは小文字に正規化して保存されている前提で、完全一致で検索する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateLastActive は最終アクティブ日時を現在時刻に更新する。
	UpdateLastActive(ctx context.Context, id string) error

	// UpdateStatus はアカウントの承認状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.UserStatus) error

	// SetBanned は凍結フラグを更新する。
	SetBanned(ctx context.Context, id string, banned bool) error

	// SetRole は権限ロールを更新する。
	SetRole(ctx context.Context, id string, role model.Role) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するfavoritesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// List はユーザー一覧をページネーション付きで返す。
	// searchが空でない場合は名前またはメールアドレスの部分一致で絞り込む。
	// 戻り値の2番目は絞り込み後の総件数。
	List(ctx context.Context, search string, page, limit int) ([]*model.User, int, error)

	// ListPending は承認待ちユーザーを登録日時の昇順で返す。
	ListPending(ctx context.Context) ([]*model.User, error)
}

// ContentRepository はカタログ作品データの永続化インターフェース。
type ContentRepository interface {
	// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Content, error)

	// FindByTMDB はTMDB IDと種別で作品を検索する。見つからない場合はnilを返す。
	FindByTMDB(ctx context.Context, tmdbID int, contentType model.ContentType) (*model.Content, error)

	// List は作品一覧をフィルター条件付きで返す。
	// 戻り値の2番目は絞り込み後の総件数。
	List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error)

	// Create は作品を作成する。
	Create(ctx context.Context, content *model.Content) error

	// Update は作品情報を上書き更新する。
	Update(ctx context.Context, content *model.Content) error

	// DeleteByID は指定IDの作品を削除する。
	DeleteByID(ctx context.Context, id string) error

	// IncrementViews は視聴回数を1加算する。
	IncrementViews(ctx context.Context, id string) error

	// UpsertByTMDB はTMDB IDと種別をキーに作品を冪等に挿入する。
	// 既存作品がある場合はメタデータ（タイトル、あらすじ、画像、評価）のみ更新し、
	// 管理者が設定した動画URL・カテゴリー・注目フラグは維持する。
	UpsertByTMDB(ctx context.Context, content *model.Content) error
}

// FavoriteRepository はお気に入りデータの永続化インターフェース。
type FavoriteRepository interface {
	// ListByUserID はユーザーのお気に入り一覧を追加日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Favorite, error)

	// Find は(userID, tmdbID, type)でお気に入りを検索する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) (*model.Favorite, error)

	// Create はお気に入りを作成する。
	// (userID, tmdbID, type)の重複はUNIQUE制約違反のエラーを返す。
	Create(ctx context.Context, favorite *model.Favorite) error

	// Delete は(userID, tmdbID, type)のお気に入りを削除する。
	// 該当レコードがない場合もエラーとしない。
	Delete(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) error

	// DeleteByUserID はユーザーの全お気に入りを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// StatsRepository は管理ダッシュボード用の集計インターフェース。
type StatsRepository interface {
	// PortalStats はユーザー・作品・視聴の集計値を返す。
	PortalStats(ctx context.Context) (*model.PortalStats, error)
}
