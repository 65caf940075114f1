package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/cineman/internal/model"
)

// ErrDuplicateFavorite は(userID, tmdbID, type)のお気に入りが既に存在することを示す。
var ErrDuplicateFavorite = errors.New("favorite already exists")

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

const favoriteColumns = `id, user_id, tmdb_id, type, title, title_ar, poster, rating, year, added_at`

func scanFavorite(row interface{ Scan(...any) error }) (*model.Favorite, error) {
	favorite := &model.Favorite{}
	err := row.Scan(
		&favorite.ID, &favorite.UserID, &favorite.TMDBID, &favorite.Type,
		&favorite.Title, &favorite.TitleAr, &favorite.Poster,
		&favorite.Rating, &favorite.Year, &favorite.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return favorite, nil
}

// ListByUserID はユーザーのお気に入り一覧を追加日時の降順で返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE user_id = $1 ORDER BY added_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []*model.Favorite{}
	for rows.Next() {
		favorite, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, favorite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}

	return favorites, nil
}

// Find は(userID, tmdbID, type)でお気に入りを検索する。見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) Find(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) (*model.Favorite, error) {
	favorite, err := scanFavorite(r.db.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE user_id = $1 AND tmdb_id = $2 AND type = $3`,
		userID, tmdbID, contentType,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find favorite: %w", err)
	}
	return favorite, nil
}

// Create はお気に入りを作成する。
// UNIQUE(user_id, tmdb_id, type)制約違反はErrDuplicateFavoriteを返す。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, favorite *model.Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, tmdb_id, type, title, title_ar, poster, rating, year, added_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		favorite.ID, favorite.UserID, favorite.TMDBID, favorite.Type,
		favorite.Title, favorite.TitleAr, favorite.Poster,
		favorite.Rating, favorite.Year, favorite.AddedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateFavorite
		}
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// Delete は(userID, tmdbID, type)のお気に入りを削除する。
// 該当レコードがない場合もエラーとしない。
func (r *PostgresFavoriteRepo) Delete(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND tmdb_id = $2 AND type = $3`,
		userID, tmdbID, contentType,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全お気に入りを削除する。
func (r *PostgresFavoriteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorites by user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
