package content

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/security"
)

// --- モック定義 ---

type mockContentRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Content, error)
	listFn           func(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error)
	createFn         func(ctx context.Context, content *model.Content) error
	updateFn         func(ctx context.Context, content *model.Content) error
	deleteByIDFn     func(ctx context.Context, id string) error
	incrementViewsFn func(ctx context.Context, id string) error
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockContentRepo) FindByTMDB(ctx context.Context, tmdbID int, contentType model.ContentType) (*model.Content, error) {
	return nil, nil
}
func (m *mockContentRepo) List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}
func (m *mockContentRepo) Create(ctx context.Context, content *model.Content) error {
	if m.createFn != nil {
		return m.createFn(ctx, content)
	}
	return nil
}
func (m *mockContentRepo) Update(ctx context.Context, content *model.Content) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, content)
	}
	return nil
}
func (m *mockContentRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}
func (m *mockContentRepo) IncrementViews(ctx context.Context, id string) error {
	if m.incrementViewsFn != nil {
		return m.incrementViewsFn(ctx, id)
	}
	return nil
}
func (m *mockContentRepo) UpsertByTMDB(ctx context.Context, content *model.Content) error {
	return nil
}

type mockURLGuard struct {
	validateFn func(rawURL string) error
}

func (m *mockURLGuard) NewSafeClient(timeout time.Duration) *http.Client { return http.DefaultClient }
func (m *mockURLGuard) ValidateMediaURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func newTestService(repo *mockContentRepo, guard *mockURLGuard) *Service {
	if guard == nil {
		guard = &mockURLGuard{}
	}
	return NewService(repo, security.NewInputSanitizer(), guard)
}

func validMovie() *model.Content {
	return &model.Content{
		Title:    "Inception",
		Type:     model.TypeMovie,
		VideoURL: "https://cdn.example.com/inception.mp4",
		Year:     2010,
	}
}

func assertAPIError(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError with code %s", err, wantCode)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

// --- テスト ---

// 取得で視聴回数が加算されることを検証
func TestGet_IncrementsViews(t *testing.T) {
	incremented := ""
	repo := &mockContentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Content, error) {
			return &model.Content{ID: id, Title: "Inception", Views: 10}, nil
		},
		incrementViewsFn: func(ctx context.Context, id string) error {
			incremented = id
			return nil
		},
	}
	s := newTestService(repo, nil)

	content, err := s.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if incremented != "c1" {
		t.Errorf("IncrementViews called with %q, want c1", incremented)
	}
	if content.Views != 11 {
		t.Errorf("Views = %d, want 11", content.Views)
	}
}

// 視聴回数の加算失敗でも取得は成功することを検証
func TestGet_IncrementFailureDoesNotBlockRead(t *testing.T) {
	repo := &mockContentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Content, error) {
			return &model.Content{ID: id, Views: 10}, nil
		},
		incrementViewsFn: func(ctx context.Context, id string) error {
			return errors.New("db unavailable")
		},
	}
	s := newTestService(repo, nil)

	content, err := s.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if content.Views != 10 {
		t.Errorf("Views = %d, want 10 (not incremented)", content.Views)
	}
}

// 存在しない作品の取得は未検出エラーを返すことを検証
func TestGet_NotFound(t *testing.T) {
	s := newTestService(&mockContentRepo{}, nil)

	_, err := s.Get(context.Background(), "missing")
	assertAPIError(t, err, model.ErrCodeContentNotFound)
}

// 新規作品の登録でIDとタイムスタンプが設定されることを検証
func TestCreate_SetsIDAndTimestamps(t *testing.T) {
	var created *model.Content
	repo := &mockContentRepo{
		createFn: func(ctx context.Context, content *model.Content) error {
			created = content
			return nil
		},
	}
	s := newTestService(repo, nil)

	content, err := s.Create(context.Background(), validMovie())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if content.ID == "" {
		t.Error("expected generated content ID")
	}
	if content.Views != 0 {
		t.Errorf("Views = %d, want 0", content.Views)
	}
	if content.CreatedAt.IsZero() || content.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if created == nil {
		t.Fatal("repo.Create was not called")
	}
}

// タイトルのサニタイズが適用されることを検証
func TestCreate_SanitizesTitle(t *testing.T) {
	var created *model.Content
	repo := &mockContentRepo{
		createFn: func(ctx context.Context, content *model.Content) error {
			created = content
			return nil
		},
	}
	s := newTestService(repo, nil)

	movie := validMovie()
	movie.Title = "  <script>alert(1)</script>Inception  "
	if _, err := s.Create(context.Background(), movie); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.Title != "Inception" {
		t.Errorf("Title = %q, want Inception", created.Title)
	}
}

// タイトルなし・種別不正の登録が拒否されることを検証
func TestCreate_MissingFields(t *testing.T) {
	s := newTestService(&mockContentRepo{}, nil)

	noTitle := validMovie()
	noTitle.Title = ""
	_, err := s.Create(context.Background(), noTitle)
	assertAPIError(t, err, model.ErrCodeMissingFields)

	badType := validMovie()
	badType.Type = "podcast"
	_, err = s.Create(context.Background(), badType)
	assertAPIError(t, err, model.ErrCodeMissingFields)
}

// 安全でない動画URLの登録が拒否されることを検証
func TestCreate_UnsafeURLRejected(t *testing.T) {
	guard := &mockURLGuard{
		validateFn: func(rawURL string) error {
			return errors.New("private address")
		},
	}
	s := newTestService(&mockContentRepo{}, guard)

	movie := validMovie()
	movie.VideoURL = "http://169.254.169.254/latest/meta-data"
	_, err := s.Create(context.Background(), movie)
	assertAPIError(t, err, model.ErrCodeUnsafeURL)
}

// エピソードの動画URLも検証されることを検証
func TestCreate_EpisodeURLValidated(t *testing.T) {
	var checked []string
	guard := &mockURLGuard{
		validateFn: func(rawURL string) error {
			checked = append(checked, rawURL)
			return nil
		},
	}
	repo := &mockContentRepo{}
	s := newTestService(repo, guard)

	series := &model.Content{
		Title: "Dark",
		Type:  model.TypeSeries,
		Episodes: []model.Episode{
			{Title: "Ep1", VideoURL: "https://cdn.example.com/dark-s1e1.mp4", EpisodeNumber: 1, SeasonNumber: 1},
		},
	}
	if _, err := s.Create(context.Background(), series); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	found := false
	for _, u := range checked {
		if u == "https://cdn.example.com/dark-s1e1.mp4" {
			found = true
		}
	}
	if !found {
		t.Errorf("episode URL not validated, checked = %v", checked)
	}
}

// 存在しない作品の更新・削除は未検出エラーを返すことを検証
func TestUpdateAndDelete_NotFound(t *testing.T) {
	s := newTestService(&mockContentRepo{}, nil)

	missing := validMovie()
	missing.ID = "missing"
	_, err := s.Update(context.Background(), missing)
	assertAPIError(t, err, model.ErrCodeContentNotFound)

	err = s.Delete(context.Background(), "missing")
	assertAPIError(t, err, model.ErrCodeContentNotFound)
}

// 削除が成功することを検証
func TestDelete_Success(t *testing.T) {
	deleted := ""
	repo := &mockContentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Content, error) {
			return &model.Content{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	s := newTestService(repo, nil)

	if err := s.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if deleted != "c1" {
		t.Errorf("deleted = %q, want c1", deleted)
	}
}

// 一覧の検索語がサニタイズされることを検証
func TestList_SanitizesSearch(t *testing.T) {
	var gotFilter model.ContentFilter
	repo := &mockContentRepo{
		listFn: func(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error) {
			gotFilter = filter
			return []*model.Content{}, 0, nil
		},
	}
	s := newTestService(repo, nil)

	_, _, err := s.List(context.Background(), model.ContentFilter{Search: "<script>x</script>dark"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if gotFilter.Search != "dark" {
		t.Errorf("Search = %q, want dark", gotFilter.Search)
	}
}
