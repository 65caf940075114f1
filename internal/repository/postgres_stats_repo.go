package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cineman/internal/model"
)

// PostgresStatsRepo は管理ダッシュボード用の集計クエリを提供する。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// PortalStats はユーザー・作品・視聴の集計値を返す。
// アクティブユーザーは過去24時間以内にアクティビティがあったユーザー。
func (r *PostgresStatsRepo) PortalStats(ctx context.Context) (*model.PortalStats, error) {
	stats := &model.PortalStats{}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE last_active > now() - interval '24 hours'),
			(SELECT COUNT(*) FROM users WHERE created_at > now() - interval '7 days'),
			(SELECT COUNT(*) FROM users WHERE status = 'pending'),
			(SELECT COUNT(*) FROM users WHERE is_banned = true),
			(SELECT COUNT(*) FROM contents),
			(SELECT COUNT(*) FROM contents WHERE type = 'movie'),
			(SELECT COUNT(*) FROM contents WHERE type = 'series'),
			(SELECT COALESCE(SUM(views), 0) FROM contents),
			(SELECT COUNT(*) FROM favorites)`,
	).Scan(
		&stats.TotalUsers, &stats.ActiveUsers, &stats.NewUsersWeek,
		&stats.PendingUsers, &stats.BannedUsers,
		&stats.TotalContent, &stats.TotalMovies, &stats.TotalSeries,
		&stats.TotalViews, &stats.TotalFavorites,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portal stats: %w", err)
	}

	return stats, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
