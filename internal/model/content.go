package model

import "time"

// ContentType は作品の種別（映画/シリーズ）を表す。
type ContentType string

const (
	// TypeMovie は映画を示す。
	TypeMovie ContentType = "movie"
	// TypeSeries はシリーズ（TV番組）を示す。
	TypeSeries ContentType = "series"
)

// Episode はシリーズ作品の1エピソードを表す。
type Episode struct {
	Title         string `json:"title"`
	TitleAr       string `json:"titleAr,omitempty"`
	VideoURL      string `json:"videoUrl"`
	Duration      int    `json:"duration"`
	EpisodeNumber int    `json:"episodeNumber"`
	SeasonNumber  int    `json:"seasonNumber"`
}

// Content はカタログ上の作品（映画またはシリーズ）を表す。
// TMDBID は外部メタデータAPI上のID。Episodes はシリーズのみ持つ。
type Content struct {
	ID            string
	TMDBID        int
	Title         string
	TitleAr       string
	Description   string
	DescriptionAr string
	Type          ContentType
	Poster        string
	Backdrop      string
	VideoURL      string
	TrailerURL    string
	Category      string
	Genres        []string
	Year          int
	Rating        float64
	Duration      int
	Views         int64
	Episodes      []Episode
	Featured      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContentFilter はカタログ一覧の絞り込み条件を表す。
// ゼロ値のフィールドは条件として使用しない。
type ContentFilter struct {
	Type     ContentType
	Category string
	Featured bool
	Search   string
	Page     int
	Limit    int
}

// Favorite はユーザーのお気に入り登録を表す。
// (UserID, TMDBID, Type) の組み合わせで一意。
type Favorite struct {
	ID      string
	UserID  string
	TMDBID  int
	Type    ContentType
	Title   string
	TitleAr string
	Poster  string
	Rating  float64
	Year    string
	AddedAt time.Time
}
