// Package content はカタログ作品の閲覧・管理を提供する。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/repository"
	"github.com/hitoshi/cineman/internal/security"
)

// Service はカタログ作品に関するビジネスロジックを提供する。
type Service struct {
	contentRepo repository.ContentRepository
	sanitizer   security.InputSanitizerService
	urlGuard    security.URLGuardService
}

// NewService はServiceを生成する。
func NewService(contentRepo repository.ContentRepository, sanitizer security.InputSanitizerService, urlGuard security.URLGuardService) *Service {
	return &Service{
		contentRepo: contentRepo,
		sanitizer:   sanitizer,
		urlGuard:    urlGuard,
	}
}

// List は作品一覧をフィルター条件付きで返す。
// 戻り値の2番目は絞り込み後の総件数。
func (s *Service) List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error) {
	filter.Search = s.sanitizer.Sanitize(filter.Search)
	return s.contentRepo.List(ctx, filter)
}

// Get は指定IDの作品を取得し、視聴回数を1加算する。
// 視聴回数の加算失敗は取得を妨げない。
func (s *Service) Get(ctx context.Context, id string) (*model.Content, error) {
	content, err := s.contentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find content: %w", err)
	}
	if content == nil {
		return nil, model.NewContentNotFoundError(id)
	}

	if err := s.contentRepo.IncrementViews(ctx, content.ID); err != nil {
		slog.Warn("failed to increment views",
			slog.String("content_id", content.ID),
			slog.String("error", err.Error()),
		)
	} else {
		content.Views++
	}

	return content, nil
}

// Create は新規作品を登録する（管理者専用）。
// テキスト項目はサニタイズし、動画・画像URLは安全性を検証する。
func (s *Service) Create(ctx context.Context, content *model.Content) (*model.Content, error) {
	if err := s.prepare(content); err != nil {
		return nil, err
	}

	now := time.Now()
	content.ID = uuid.New().String()
	content.Views = 0
	content.CreatedAt = now
	content.UpdatedAt = now

	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	slog.Info("content created",
		slog.String("content_id", content.ID),
		slog.String("type", string(content.Type)),
	)

	return content, nil
}

// Update は作品情報を更新する（管理者専用）。
func (s *Service) Update(ctx context.Context, content *model.Content) (*model.Content, error) {
	existing, err := s.contentRepo.FindByID(ctx, content.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find content: %w", err)
	}
	if existing == nil {
		return nil, model.NewContentNotFoundError(content.ID)
	}

	if err := s.prepare(content); err != nil {
		return nil, err
	}

	if err := s.contentRepo.Update(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to update content: %w", err)
	}

	slog.Info("content updated", slog.String("content_id", content.ID))

	return content, nil
}

// Delete は作品を削除する（管理者専用）。
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.contentRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find content: %w", err)
	}
	if existing == nil {
		return model.NewContentNotFoundError(id)
	}

	if err := s.contentRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	slog.Info("content deleted", slog.String("content_id", id))
	return nil
}

// prepare は作品の入力をサニタイズし、必須項目とURLの安全性を検証する。
func (s *Service) prepare(content *model.Content) error {
	content.Title = s.sanitizer.Sanitize(content.Title)
	content.TitleAr = s.sanitizer.Sanitize(content.TitleAr)
	content.Description = s.sanitizer.Sanitize(content.Description)
	content.DescriptionAr = s.sanitizer.Sanitize(content.DescriptionAr)
	content.Category = s.sanitizer.Sanitize(content.Category)
	for i, genre := range content.Genres {
		content.Genres[i] = s.sanitizer.Sanitize(genre)
	}

	if content.Title == "" || (content.Type != model.TypeMovie && content.Type != model.TypeSeries) {
		return model.NewMissingFieldsError()
	}

	// 管理者入力のURLもSSRF対策の検証を通す
	for _, rawURL := range []string{content.Poster, content.Backdrop, content.VideoURL, content.TrailerURL} {
		if rawURL == "" {
			continue
		}
		if err := s.urlGuard.ValidateMediaURL(rawURL); err != nil {
			return model.NewUnsafeURLError(err.Error())
		}
	}
	for _, ep := range content.Episodes {
		if ep.VideoURL == "" {
			continue
		}
		if err := s.urlGuard.ValidateMediaURL(ep.VideoURL); err != nil {
			return model.NewUnsafeURLError(err.Error())
		}
	}

	return nil
}
