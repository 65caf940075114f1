package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/cineman/internal/metadata"
	"github.com/hitoshi/cineman/internal/model"
)

// mockTrendingSource はTrendingSourceのモック実装。
type mockTrendingSource struct {
	moviesFn func(ctx context.Context) ([]metadata.Title, error)
	seriesFn func(ctx context.Context) ([]metadata.Title, error)
}

func (m *mockTrendingSource) TrendingMovies(ctx context.Context) ([]metadata.Title, error) {
	if m.moviesFn != nil {
		return m.moviesFn(ctx)
	}
	return nil, nil
}

func (m *mockTrendingSource) TrendingSeries(ctx context.Context) ([]metadata.Title, error) {
	if m.seriesFn != nil {
		return m.seriesFn(ctx)
	}
	return nil, nil
}

// mockContentRepo はContentRepositoryのモック実装。UpsertByTMDBの呼び出しを記録する。
type mockContentRepo struct {
	upsertFn func(ctx context.Context, content *model.Content) error
	upserted []*model.Content
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	return nil, nil
}

func (m *mockContentRepo) FindByTMDB(ctx context.Context, tmdbID int, contentType model.ContentType) (*model.Content, error) {
	return nil, nil
}

func (m *mockContentRepo) List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error) {
	return nil, 0, nil
}

func (m *mockContentRepo) Create(ctx context.Context, content *model.Content) error { return nil }

func (m *mockContentRepo) Update(ctx context.Context, content *model.Content) error { return nil }

func (m *mockContentRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func (m *mockContentRepo) IncrementViews(ctx context.Context, id string) error { return nil }

func (m *mockContentRepo) UpsertByTMDB(ctx context.Context, content *model.Content) error {
	m.upserted = append(m.upserted, content)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, content)
	}
	return nil
}

// mockSyncMetrics はSyncMetricsRecorderのモック実装。
type mockSyncMetrics struct {
	total int
}

func (m *mockSyncMetrics) RecordCatalogSync(upserted int) { m.total += upserted }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSyncer_RunOnce_UpsertsMoviesAndSeries(t *testing.T) {
	source := &mockTrendingSource{
		moviesFn: func(ctx context.Context) ([]metadata.Title, error) {
			return []metadata.Title{
				{TMDBID: 27205, Type: model.TypeMovie, Title: "Inception", ReleaseDate: "2010-07-16", Rating: 8.4, PosterPath: "/poster.jpg"},
			}, nil
		},
		seriesFn: func(ctx context.Context) ([]metadata.Title, error) {
			return []metadata.Title{
				{TMDBID: 70523, Type: model.TypeSeries, Title: "Dark", ReleaseDate: "2017-12-01", Rating: 8.3},
			}, nil
		},
	}
	repo := &mockContentRepo{}
	metrics := &mockSyncMetrics{}
	s := NewSyncer(source, repo, metrics, testLogger())

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(repo.upserted) != 2 {
		t.Fatalf("upserted %d contents, want 2", len(repo.upserted))
	}
	if metrics.total != 2 {
		t.Errorf("metrics total = %d, want 2", metrics.total)
	}

	movie := repo.upserted[0]
	if movie.TMDBID != 27205 || movie.Type != model.TypeMovie {
		t.Errorf("unexpected movie: %+v", movie)
	}
	if movie.Year != 2010 {
		t.Errorf("year = %d, want 2010", movie.Year)
	}
	if movie.Poster != "https://image.tmdb.org/t/p/w500/poster.jpg" {
		t.Errorf("poster = %q", movie.Poster)
	}
	if movie.VideoURL != "https://vidsrc.to/embed/movie/27205" {
		t.Errorf("videoUrl = %q", movie.VideoURL)
	}
	if movie.ID == "" {
		t.Error("content ID should be generated")
	}

	// シリーズは埋め込みURLをエピソード単位で組み立てるため、作品のVideoURLは空
	series := repo.upserted[1]
	if series.VideoURL != "" {
		t.Errorf("series videoUrl = %q, want empty", series.VideoURL)
	}
}

func TestSyncer_RunOnce_MovieFetchFailure_ContinuesWithSeries(t *testing.T) {
	source := &mockTrendingSource{
		moviesFn: func(ctx context.Context) ([]metadata.Title, error) {
			return nil, errors.New("api down")
		},
		seriesFn: func(ctx context.Context) ([]metadata.Title, error) {
			return []metadata.Title{
				{TMDBID: 70523, Type: model.TypeSeries, Title: "Dark"},
			}, nil
		},
	}
	repo := &mockContentRepo{}
	metrics := &mockSyncMetrics{}
	s := NewSyncer(source, repo, metrics, testLogger())

	err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error from movie fetch failure")
	}

	// シリーズの取り込みは継続される
	if len(repo.upserted) != 1 {
		t.Errorf("upserted %d contents, want 1", len(repo.upserted))
	}
	if metrics.total != 1 {
		t.Errorf("metrics total = %d, want 1", metrics.total)
	}
}

func TestSyncer_RunOnce_UpsertFailure_ContinuesWithRest(t *testing.T) {
	source := &mockTrendingSource{
		moviesFn: func(ctx context.Context) ([]metadata.Title, error) {
			return []metadata.Title{
				{TMDBID: 1, Type: model.TypeMovie, Title: "First"},
				{TMDBID: 2, Type: model.TypeMovie, Title: "Second"},
			}, nil
		},
	}
	repo := &mockContentRepo{
		upsertFn: func(ctx context.Context, content *model.Content) error {
			if content.TMDBID == 1 {
				return errors.New("db error")
			}
			return nil
		},
	}
	metrics := &mockSyncMetrics{}
	s := NewSyncer(source, repo, metrics, testLogger())

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	// 1件目の失敗は同期全体を止めない
	if metrics.total != 1 {
		t.Errorf("metrics total = %d, want 1", metrics.total)
	}
}

func TestSyncer_Start_StopsOnContextCancel(t *testing.T) {
	source := &mockTrendingSource{}
	repo := &mockContentRepo{}
	s := NewSyncer(source, repo, &mockSyncMetrics{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("syncer did not stop after context cancellation")
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2010-07-16", 2010},
		{"2017", 2017},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		if got := parseYear(tt.date); got != tt.want {
			t.Errorf("parseYear(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
