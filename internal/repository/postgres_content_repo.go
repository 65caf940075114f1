package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/cineman/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用したカタログ作品リポジトリ。
// genresはtext[]、episodesはJSONBカラムに格納する。
type PostgresContentRepo struct {
	db *sql.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

const contentColumns = `id, tmdb_id, title, title_ar, description, description_ar, type,
	poster, backdrop, video_url, trailer_url, category, genres, year, rating,
	duration, views, episodes, featured, created_at, updated_at`

func scanContent(row interface{ Scan(...any) error }) (*model.Content, error) {
	content := &model.Content{}
	var episodesJSON []byte
	err := row.Scan(
		&content.ID, &content.TMDBID, &content.Title, &content.TitleAr,
		&content.Description, &content.DescriptionAr, &content.Type,
		&content.Poster, &content.Backdrop, &content.VideoURL, &content.TrailerURL,
		&content.Category, pq.Array(&content.Genres), &content.Year, &content.Rating,
		&content.Duration, &content.Views, &episodesJSON, &content.Featured,
		&content.CreatedAt, &content.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(episodesJSON) > 0 {
		if err := json.Unmarshal(episodesJSON, &content.Episodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal episodes: %w", err)
		}
	}
	return content, nil
}

func marshalEpisodes(episodes []model.Episode) ([]byte, error) {
	if episodes == nil {
		episodes = []model.Episode{}
	}
	return json.Marshal(episodes)
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	content, err := scanContent(r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content by ID: %w", err)
	}
	return content, nil
}

// FindByTMDB はTMDB IDと種別で作品を検索する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByTMDB(ctx context.Context, tmdbID int, contentType model.ContentType) (*model.Content, error) {
	content, err := scanContent(r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE tmdb_id = $1 AND type = $2`,
		tmdbID, contentType,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content by TMDB ID: %w", err)
	}
	return content, nil
}

// List は作品一覧をフィルター条件付きで返す。
// 注目作品を先頭に、次いで作成日時の降順で並べる。
func (r *PostgresContentRepo) List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error) {
	conditions := []string{}
	args := []any{}

	addCondition := func(expr string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if filter.Type != "" {
		addCondition("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		addCondition("category = $%d", filter.Category)
	}
	if filter.Featured {
		conditions = append(conditions, "featured = true")
	}
	if filter.Search != "" {
		addCondition("(title ILIKE $%d OR title_ar ILIKE $%[1]d)", "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contents `+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count contents: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM contents %s ORDER BY featured DESC, created_at DESC LIMIT $%d OFFSET $%d`,
			contentColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contents: %w", err)
	}
	defer rows.Close()

	contents := []*model.Content{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate contents: %w", err)
	}

	return contents, total, nil
}

// Create は作品を作成する。
func (r *PostgresContentRepo) Create(ctx context.Context, content *model.Content) error {
	episodesJSON, err := marshalEpisodes(content.Episodes)
	if err != nil {
		return fmt.Errorf("failed to marshal episodes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contents (id, tmdb_id, title, title_ar, description, description_ar, type,
			poster, backdrop, video_url, trailer_url, category, genres, year, rating,
			duration, views, episodes, featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		content.ID, content.TMDBID, content.Title, content.TitleAr,
		content.Description, content.DescriptionAr, content.Type,
		content.Poster, content.Backdrop, content.VideoURL, content.TrailerURL,
		content.Category, pq.Array(content.Genres), content.Year, content.Rating,
		content.Duration, content.Views, episodesJSON, content.Featured,
		content.CreatedAt, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}

// Update は作品情報を上書き更新する。
func (r *PostgresContentRepo) Update(ctx context.Context, content *model.Content) error {
	episodesJSON, err := marshalEpisodes(content.Episodes)
	if err != nil {
		return fmt.Errorf("failed to marshal episodes: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE contents SET
			tmdb_id = $2, title = $3, title_ar = $4, description = $5, description_ar = $6,
			type = $7, poster = $8, backdrop = $9, video_url = $10, trailer_url = $11,
			category = $12, genres = $13, year = $14, rating = $15, duration = $16,
			episodes = $17, featured = $18, updated_at = now()
		 WHERE id = $1`,
		content.ID, content.TMDBID, content.Title, content.TitleAr,
		content.Description, content.DescriptionAr, content.Type,
		content.Poster, content.Backdrop, content.VideoURL, content.TrailerURL,
		content.Category, pq.Array(content.Genres), content.Year, content.Rating,
		content.Duration, episodesJSON, content.Featured,
	)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("content not found: %s", content.ID)
	}
	return nil
}

// DeleteByID は指定IDの作品を削除する。
func (r *PostgresContentRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contents WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("content not found: %s", id)
	}
	return nil
}

// IncrementViews は視聴回数を1加算する。
func (r *PostgresContentRepo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contents SET views = views + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// UpsertByTMDB はTMDB IDと種別をキーに作品を冪等に挿入する。
// 既存作品がある場合はメタデータのみ更新し、管理者の設定値は維持する。
func (r *PostgresContentRepo) UpsertByTMDB(ctx context.Context, content *model.Content) error {
	episodesJSON, err := marshalEpisodes(content.Episodes)
	if err != nil {
		return fmt.Errorf("failed to marshal episodes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contents (id, tmdb_id, title, title_ar, description, description_ar, type,
			poster, backdrop, video_url, trailer_url, category, genres, year, rating,
			duration, views, episodes, featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 ON CONFLICT (tmdb_id, type) DO UPDATE SET
			title = EXCLUDED.title,
			title_ar = EXCLUDED.title_ar,
			description = EXCLUDED.description,
			description_ar = EXCLUDED.description_ar,
			poster = EXCLUDED.poster,
			backdrop = EXCLUDED.backdrop,
			genres = EXCLUDED.genres,
			year = EXCLUDED.year,
			rating = EXCLUDED.rating,
			updated_at = now()`,
		content.ID, content.TMDBID, content.Title, content.TitleAr,
		content.Description, content.DescriptionAr, content.Type,
		content.Poster, content.Backdrop, content.VideoURL, content.TrailerURL,
		content.Category, pq.Array(content.Genres), content.Year, content.Rating,
		content.Duration, content.Views, episodesJSON, content.Featured,
		content.CreatedAt, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
