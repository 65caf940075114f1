// Package sync はTMDBの人気作品をカタログへ定期的に取り込むバックグラウンド処理を提供する。
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cineman/internal/metadata"
	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/repository"
)

// TrendingSource は人気作品の取得インターフェース。
// metadata.Clientの部分集合として定義する。
type TrendingSource interface {
	TrendingMovies(ctx context.Context) ([]metadata.Title, error)
	TrendingSeries(ctx context.Context) ([]metadata.Title, error)
}

// SyncMetricsRecorder はカタログ同期のメトリクス記録インターフェース。
type SyncMetricsRecorder interface {
	RecordCatalogSync(upserted int)
}

// Syncer はTMDBの人気作品をカタログへ取り込むジョブを実行する。
// 既存作品はメタデータのみ更新され、管理者が設定した動画URLや
// カテゴリーは上書きされない（UpsertByTMDBの契約に従う）。
type Syncer struct {
	source      TrendingSource
	contentRepo repository.ContentRepository
	metrics     SyncMetricsRecorder
	logger      *slog.Logger
}

// NewSyncer はSyncerの新しいインスタンスを生成する。
func NewSyncer(source TrendingSource, contentRepo repository.ContentRepository, metrics SyncMetricsRecorder, logger *slog.Logger) *Syncer {
	return &Syncer{
		source:      source,
		contentRepo: contentRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// Start は指定間隔のティッカーで同期ジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("カタログ同期ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("カタログ同期に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("カタログ同期ジョブを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("カタログ同期に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は人気映画とTV番組を1回取得し、カタログへ取り込む。
// 一方の取得に失敗しても他方の取り込みは継続する。
func (s *Syncer) RunOnce(ctx context.Context) error {
	start := time.Now()
	upserted := 0
	var firstErr error

	movies, err := s.source.TrendingMovies(ctx)
	if err != nil {
		firstErr = fmt.Errorf("failed to fetch trending movies: %w", err)
	} else {
		upserted += s.upsertTitles(ctx, movies)
	}

	series, err := s.source.TrendingSeries(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to fetch trending series: %w", err)
		}
	} else {
		upserted += s.upsertTitles(ctx, series)
	}

	if upserted > 0 {
		s.metrics.RecordCatalogSync(upserted)
	}

	s.logger.Info("カタログ同期サイクルが完了しました",
		slog.Int("upserted", upserted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return firstErr
}

// upsertTitles は取得したメタデータをカタログの作品へ変換して取り込む。
// 個別の失敗はログに記録し、残りの取り込みを継続する。
func (s *Syncer) upsertTitles(ctx context.Context, titles []metadata.Title) int {
	upserted := 0
	for _, title := range titles {
		content := toContent(title)

		if err := s.contentRepo.UpsertByTMDB(ctx, content); err != nil {
			s.logger.Error("作品の取り込みに失敗しました",
				slog.Int("tmdb_id", title.TMDBID),
				slog.String("title", title.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		upserted++
	}
	return upserted
}

// toContent はTMDBメタデータをカタログ作品へ変換する。
// 動画URLは埋め込みプレイヤーのURLを既定値として設定する。
func toContent(title metadata.Title) *model.Content {
	now := time.Now()

	content := &model.Content{
		ID:          uuid.New().String(),
		TMDBID:      title.TMDBID,
		Title:       title.Title,
		Description: title.Description,
		Type:        title.Type,
		Poster:      metadata.PosterURL(title.PosterPath),
		Backdrop:    metadata.BackdropURL(title.BackdropPath),
		Year:        parseYear(title.ReleaseDate),
		Rating:      title.Rating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if title.Type == model.TypeMovie {
		content.VideoURL = metadata.MovieEmbedURL(title.TMDBID)
	}

	return content
}

// parseYear は"2010-07-16"形式の日付から年を取り出す。不正な場合は0を返す。
func parseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}
