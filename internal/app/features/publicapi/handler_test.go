package publicapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pagesettingsstore "github.com/dalemusser/pagecms/internal/app/store/pagesettings"
	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/settingscache"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/dalemusser/pagecms/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

type testEnv struct {
	store  *pagesettingsstore.Store
	cache  *settingscache.Cache
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	files, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defaults, err := pagedefaults.Embedded()
	if err != nil {
		t.Fatalf("Embedded() error = %v", err)
	}
	store := pagesettingsstore.New(db)
	cache := settingscache.New(store, time.Minute)

	h := NewHandler(cache, defaults, uploads.New(files, logger), nil, logger)
	return &testEnv{store: store, cache: cache, router: Routes(h, nil)}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) PageResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp PageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp
}

func TestList(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Pages []PageSummary `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Pages) != len(models.AllPageSlugs()) {
		t.Errorf("len(pages) = %d, want %d", len(body.Pages), len(models.AllPageSlugs()))
	}
}

func TestGet_UnknownPage(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGet_DefaultsWhenNeverSaved(t *testing.T) {
	e := newTestEnv(t)

	resp := decodePage(t, e.get(t, "/blogs"))

	if resp.UpdatedAt != nil {
		t.Errorf("updated_at = %v, want none", resp.UpdatedAt)
	}
	main, ok := resp.Forms[mainForm]
	if !ok {
		t.Fatalf("forms = %v, want %q", resp.Forms, mainForm)
	}
	if got := main.Values["banner_title"]; got != "Latest Blogs & Insights" {
		t.Errorf("banner_title = %q, want the default", got)
	}
	if got, ok := main.Values["banner_vector_left"]; !ok || got != "" {
		t.Errorf("banner_vector_left = %q (present %v), want empty", got, ok)
	}
}

func TestGet_StoredValuesAndMediaURLs(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := e.store.Update(ctx, models.PageBlogs, map[string]string{
		"page_title":         "Our Blog",
		"banner_vector_left": "pages/blogs/2026/01/abc.png",
	}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	resp := decodePage(t, e.get(t, "/blogs"))
	main := resp.Forms[mainForm]
	if got := main.Values["page_title"]; got != "Our Blog" {
		t.Errorf("page_title = %q, want %q", got, "Our Blog")
	}
	if got := main.Values["banner_title"]; got != "Latest Blogs & Insights" {
		t.Errorf("banner_title = %q, want the default", got)
	}
	if got := main.Values["banner_vector_left"]; !strings.HasPrefix(got, "/files/") || !strings.HasSuffix(got, "pages/blogs/2026/01/abc.png") {
		t.Errorf("banner_vector_left = %q, want a file URL", got)
	}
	if resp.UpdatedAt == nil {
		t.Error("updated_at should be set after a save")
	}
}

func TestGet_GroupedForms(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := e.store.Update(ctx, models.PageAboutMe, map[string]string{
		"banner:title":    "Banner heading",
		"corporate:title": "Journey heading",
	}, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	resp := decodePage(t, e.get(t, "/about-me"))
	if got := resp.Forms["banner"].Values["title"]; got != "Banner heading" {
		t.Errorf("banner.title = %q", got)
	}
	if got := resp.Forms["corporate"].Values["title"]; got != "Journey heading" {
		t.Errorf("corporate.title = %q", got)
	}
	if _, ok := resp.Forms[mainForm]; ok {
		t.Errorf("grouped page should not have a %q form", mainForm)
	}
}

func TestGet_Videos(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fromURL := models.VideoFromURL("https://www.youtube.com/embed/x")
	fromFile := models.VideoFromFile("pages/videos/2026/01/clip.mp4")
	err := e.store.Update(ctx, models.PageVideos, nil, map[string][]models.ListItem{
		"all_videos": {
			{ID: "a", Values: map[string]string{"title": "Remote"}, Video: &fromURL},
			{ID: "b", Values: map[string]string{"title": "Stored"}, Video: &fromFile},
		},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	resp := decodePage(t, e.get(t, "/videos"))
	items := resp.Forms[mainForm].Lists["all_videos"]
	if len(items) != 2 {
		t.Fatalf("len(all_videos) = %d, want 2", len(items))
	}
	if v := items[0].Video; v == nil || v.Type != "url" || v.URL != "https://www.youtube.com/embed/x" {
		t.Errorf("items[0].video = %+v", v)
	}
	if v := items[1].Video; v == nil || v.Type != "file" || v.Name != "clip.mp4" || !strings.HasSuffix(v.URL, "clip.mp4") {
		t.Errorf("items[1].video = %+v", v)
	}

	banner := resp.Forms[mainForm].Lists["banner_videos"]
	if len(banner) != 3 {
		t.Errorf("len(banner_videos) = %d, want 3 defaults", len(banner))
	}
}

func TestGet_CachedUntilInvalidated(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := e.store.Update(ctx, models.PageBooks, map[string]string{"page_title": "First"}, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := decodePage(t, e.get(t, "/books")).Forms[mainForm].Values["page_title"]; got != "First" {
		t.Fatalf("page_title = %q, want First", got)
	}

	if err := e.store.Update(ctx, models.PageBooks, map[string]string{"page_title": "Second"}, nil); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := decodePage(t, e.get(t, "/books")).Forms[mainForm].Values["page_title"]; got != "First" {
		t.Errorf("page_title = %q, want the cached value", got)
	}

	e.cache.Invalidate(models.PageBooks)
	if got := decodePage(t, e.get(t, "/books")).Forms[mainForm].Values["page_title"]; got != "Second" {
		t.Errorf("page_title = %q, want Second after invalidation", got)
	}
}

func TestRoutes_CORS(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := pagesettingsstore.New(db)
	h := NewHandler(settingscache.New(store, 0), nil, nil, nil, zap.NewNop())
	router := Routes(h, nil, "https://example.com")

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
	}
}
