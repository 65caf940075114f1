package model

// PortalStats は管理ダッシュボードに表示する集計値。
type PortalStats struct {
	TotalUsers     int   `json:"totalUsers"`
	ActiveUsers    int   `json:"activeUsers"`
	NewUsersWeek   int   `json:"newUsersWeek"`
	PendingUsers   int   `json:"pendingUsers"`
	BannedUsers    int   `json:"bannedUsers"`
	TotalContent   int   `json:"totalContent"`
	TotalMovies    int   `json:"totalMovies"`
	TotalSeries    int   `json:"totalSeries"`
	TotalViews     int64 `json:"totalViews"`
	TotalFavorites int   `json:"totalFavorites"`
}
