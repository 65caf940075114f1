// Package favorite はユーザーのお気に入り管理を提供する。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/repository"
	"github.com/hitoshi/cineman/internal/security"
)

// Service はお気に入りに関するビジネスロジックを提供する。
type Service struct {
	favoriteRepo repository.FavoriteRepository
	sanitizer    security.InputSanitizerService
}

// NewService はServiceを生成する。
func NewService(favoriteRepo repository.FavoriteRepository, sanitizer security.InputSanitizerService) *Service {
	return &Service{
		favoriteRepo: favoriteRepo,
		sanitizer:    sanitizer,
	}
}

// List はユーザーのお気に入り一覧を追加日時の降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Favorite, error) {
	favorites, err := s.favoriteRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}

// Add はお気に入りを追加する。
// (userID, tmdbID, type)が重複する場合は重複エラーを返す。
func (s *Service) Add(ctx context.Context, userID string, favorite *model.Favorite) (*model.Favorite, error) {
	favorite.Title = s.sanitizer.Sanitize(favorite.Title)
	favorite.TitleAr = s.sanitizer.Sanitize(favorite.TitleAr)

	if favorite.TMDBID == 0 || favorite.Title == "" {
		return nil, model.NewMissingFieldsError()
	}
	if favorite.Type != model.TypeMovie && favorite.Type != model.TypeSeries {
		return nil, model.NewMissingFieldsError()
	}

	favorite.ID = uuid.New().String()
	favorite.UserID = userID
	favorite.AddedAt = time.Now()

	if err := s.favoriteRepo.Create(ctx, favorite); err != nil {
		if errors.Is(err, repository.ErrDuplicateFavorite) {
			return nil, model.NewDuplicateFavoriteError()
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	slog.Info("favorite added",
		slog.String("user_id", userID),
		slog.Int("tmdb_id", favorite.TMDBID),
	)

	return favorite, nil
}

// Remove はお気に入りを削除する。該当レコードがない場合もエラーとしない。
func (s *Service) Remove(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) error {
	if err := s.favoriteRepo.Delete(ctx, userID, tmdbID, contentType); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// Check は指定作品がお気に入り登録済みかどうかを返す。
func (s *Service) Check(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) (bool, error) {
	favorite, err := s.favoriteRepo.Find(ctx, userID, tmdbID, contentType)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return favorite != nil, nil
}
