// Package metadata はTMDB（The Movie Database）APIとの連携を提供する。
// 人気作品の取得と画像・埋め込みプレイヤーURLの構築を含む。
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/cineman/internal/model"
)

const (
	// defaultEndpoint はTMDB API v3のベースURL。
	defaultEndpoint = "https://api.themoviedb.org/3"
	// imageBaseURL はTMDB画像CDNのベースURL。
	imageBaseURL = "https://image.tmdb.org/t/p"
	// embedBaseURL は埋め込みプレイヤーのベースURL。
	embedBaseURL = "https://vidsrc.to/embed"
)

// Title はTMDBから取得した映画・TV番組のメタデータ。
type Title struct {
	TMDBID       int
	Type         model.ContentType
	Title        string
	Description  string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string
	Rating       float64
	GenreIDs     []int
}

// Client はTMDB APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	language   string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// languageはTMDBの言語コード（例: "ja-JP", "ar-SA"）。空の場合は"en-US"。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, language string) *Client {
	if language == "" {
		language = "en-US"
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		language:   language,
		endpoint:   defaultEndpoint,
	}
}

// TrendingMovies は今週の人気映画を取得する。
func (c *Client) TrendingMovies(ctx context.Context) ([]Title, error) {
	return c.trending(ctx, "movie", model.TypeMovie)
}

// TrendingSeries は今週の人気TV番組を取得する。
func (c *Client) TrendingSeries(ctx context.Context) ([]Title, error) {
	return c.trending(ctx, "tv", model.TypeSeries)
}

// tmdbListResponse はTMDBの一覧系レスポンス。
// 映画は title/release_date、TV番組は name/first_air_date を使用する。
type tmdbListResponse struct {
	Results []struct {
		ID           int     `json:"id"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		BackdropPath string  `json:"backdrop_path"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		VoteAverage  float64 `json:"vote_average"`
		GenreIDs     []int   `json:"genre_ids"`
	} `json:"results"`
}

func (c *Client) trending(ctx context.Context, mediaType string, contentType model.ContentType) ([]Title, error) {
	body, err := c.get(ctx, fmt.Sprintf("/trending/%s/week", mediaType))
	if err != nil {
		return nil, err
	}

	var result tmdbListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("TMDB APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.String("media_type", mediaType),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	titles := make([]Title, 0, len(result.Results))
	for _, r := range result.Results {
		title := Title{
			TMDBID:       r.ID,
			Type:         contentType,
			Title:        r.Title,
			Description:  r.Overview,
			PosterPath:   r.PosterPath,
			BackdropPath: r.BackdropPath,
			ReleaseDate:  r.ReleaseDate,
			Rating:       r.VoteAverage,
			GenreIDs:     r.GenreIDs,
		}
		// TV番組はフィールド名が異なる
		if title.Title == "" {
			title.Title = r.Name
		}
		if title.ReleaseDate == "" {
			title.ReleaseDate = r.FirstAirDate
		}
		titles = append(titles, title)
	}

	return titles, nil
}

// get はTMDB APIにGETリクエストを送り、レスポンスボディを返す。
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	reqURL, err := url.Parse(c.endpoint + path)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("TMDB APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("path", path),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("TMDB APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("path", path),
		)
		return nil, fmt.Errorf("TMDB APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	return body, nil
}

// PosterURL はポスター画像の完全なURLを返す。pathが空の場合は空文字列を返す。
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + "/w500" + path
}

// BackdropURL は背景画像の完全なURLを返す。pathが空の場合は空文字列を返す。
func BackdropURL(path string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + "/original" + path
}

// MovieEmbedURL は映画の埋め込みプレイヤーURLを返す。
func MovieEmbedURL(tmdbID int) string {
	return fmt.Sprintf("%s/movie/%d", embedBaseURL, tmdbID)
}

// EpisodeEmbedURL はTV番組エピソードの埋め込みプレイヤーURLを返す。
func EpisodeEmbedURL(tmdbID, season, episode int) string {
	return fmt.Sprintf("%s/tv/%d/%d/%d", embedBaseURL, tmdbID, season, episode)
}
