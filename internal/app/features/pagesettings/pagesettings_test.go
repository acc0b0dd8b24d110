package pagesettings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	pagesettingsstore "github.com/dalemusser/pagecms/internal/app/store/pagesettings"
	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/settingscache"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/dalemusser/pagecms/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type testEnv struct {
	h      *Handler
	db     *mongo.Database
	store  *pagesettingsstore.Store
	cache  *settingscache.Cache
	dir    string
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	dir := t.TempDir()
	files, err := storage.NewLocal(storage.LocalConfig{BasePath: dir, BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defaults, err := pagedefaults.Embedded()
	if err != nil {
		t.Fatalf("Embedded() error = %v", err)
	}
	store := pagesettingsstore.New(db)
	cache := settingscache.New(store, time.Minute)

	h := NewHandler(db, Deps{
		Uploads:  uploads.New(files, logger),
		Cache:    cache,
		Defaults: defaults,
	}, logger)

	r := chi.NewRouter()
	h.MountRoutes(r)
	return &testEnv{h: h, db: db, store: store, cache: cache, dir: dir, router: r}
}

func (e *testEnv) post(t *testing.T, target string, values [][2]string, files map[string]testutil.File, asJSON bool) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewMultipartRequest(t, http.MethodPost, target, values, files)
	if asJSON {
		req = testutil.AcceptJSON(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func pngFile(name string) testutil.File {
	return testutil.File{Filename: name, ContentType: "image/png", Data: pngData}
}

func TestNewHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, Deps{}, zap.NewNop())

	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
	if h.maxUpload != DefaultMaxUpload {
		t.Errorf("maxUpload = %d, want %d", h.maxUpload, DefaultMaxUpload)
	}
	if h.errLog == nil {
		t.Error("errLog should default to a logger")
	}
}

func TestUpdate_JSONSuccess(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := e.post(t, "/admin/blogs-page-settings/update",
		[][2]string{{"page_title", "Our Blog"}, {"banner_title", "<b>Fresh</b> posts"}}, nil, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message  string               `json:"message"`
		Settings *models.PageSettings `json:"settings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "Blogs page settings updated successfully" {
		t.Errorf("message = %q", body.Message)
	}
	if v, _ := body.Settings.Value("page_title"); v != "Our Blog" {
		t.Errorf("returned settings page_title = %q, want the saved value", v)
	}

	s, err := e.store.Get(ctx, models.PageBlogs)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v, _ := s.Value("page_title"); v != "Our Blog" {
		t.Errorf("page_title = %q, want %q", v, "Our Blog")
	}
	if v, _ := s.Value("banner_title"); v != "Fresh posts" {
		t.Errorf("banner_title = %q, want tags stripped", v)
	}
}

func TestUpdate_HTMLSuccessRedirects(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/admin/books-page-settings/update", [][2]string{{"page_title", "Books"}}, nil, false)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/books-page-settings" {
		t.Errorf("Location = %q", loc)
	}
}

func TestUpdate_ValidationErrorJSON(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	rec := e.post(t, "/admin/entrepreneurship-page-settings/update", [][2]string{
		{"page_title", string(long)},
		{"_list", "quotes"},
		{"quotes[0][id]", "q1"},
		{"quotes[0][is_featured]", "maybe"},
	}, nil, true)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"page_title", "quotes.0.is_featured"} {
		if body.Errors[key] == "" {
			t.Errorf("missing error for %q in %v", key, body.Errors)
		}
	}

	exists, err := e.store.Exists(ctx, models.PageEntrepreneurship)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("rejected submit must not write settings")
	}
}

func TestUpdate_RejectsWrongFileType(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/admin/technology-page-settings/update", nil,
		map[string]testutil.File{"android_icon_svg": pngFile("android.png")}, true)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	entries, _ := os.ReadDir(e.dir)
	if len(entries) != 0 {
		t.Errorf("files stored for a rejected submit: %v", entries)
	}
}

func TestUpdate_UploadThenReplaceDeletesOldFile(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := e.post(t, "/admin/blogs-page-settings/update", nil,
		map[string]testutil.File{"banner_vector_right": pngFile("one.png")}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d; body = %s", rec.Code, rec.Body.String())
	}
	s, _ := e.store.Get(ctx, models.PageBlogs)
	first, _ := s.Value("banner_vector_right")
	if first == "" {
		t.Fatal("banner_vector_right not stored")
	}
	if _, err := os.Stat(filepath.Join(e.dir, first)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	rec = e.post(t, "/admin/blogs-page-settings/update", nil,
		map[string]testutil.File{"banner_vector_right": pngFile("two.png")}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("second upload status = %d", rec.Code)
	}
	s, _ = e.store.Get(ctx, models.PageBlogs)
	second, _ := s.Value("banner_vector_right")
	if second == first || second == "" {
		t.Errorf("banner_vector_right = %q, want a new path", second)
	}
	if _, err := os.Stat(filepath.Join(e.dir, first)); !os.IsNotExist(err) {
		t.Errorf("old file still present (err = %v)", err)
	}

	rec = e.post(t, "/admin/blogs-page-settings/update", [][2]string{{"remove_banner_vector_right", "1"}}, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	s, _ = e.store.Get(ctx, models.PageBlogs)
	if v, ok := s.Value("banner_vector_right"); !ok || v != "" {
		t.Errorf("banner_vector_right = %q, %v; want cleared", v, ok)
	}
	if _, err := os.Stat(filepath.Join(e.dir, second)); !os.IsNotExist(err) {
		t.Errorf("removed file still present (err = %v)", err)
	}
}

func TestUpdate_FormsOnOnePageDoNotOverwriteEachOther(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if rec := e.post(t, "/admin/about-me-page-settings/update-banner", [][2]string{{"title", "Banner"}}, nil, true); rec.Code != http.StatusOK {
		t.Fatalf("banner status = %d", rec.Code)
	}
	if rec := e.post(t, "/admin/about-me-page-settings/update-awards", [][2]string{{"section_title", "Awards"}}, nil, true); rec.Code != http.StatusOK {
		t.Fatalf("awards status = %d", rec.Code)
	}

	s, _ := e.store.Get(ctx, models.PageAboutMe)
	if v, _ := s.Value("banner:title"); v != "Banner" {
		t.Errorf("banner:title = %q", v)
	}
	if v, _ := s.Value("awards:section_title"); v != "Awards" {
		t.Errorf("awards:section_title = %q", v)
	}
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := e.cache.Get(ctx, models.PageDonation); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if rec := e.post(t, "/admin/donation-page-settings/update", [][2]string{{"page_title", "Give"}}, nil, true); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	s, err := e.cache.Get(ctx, models.PageDonation)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v, _ := s.Value("page_title"); v != "Give" {
		t.Errorf("cached page_title = %q, want fresh value", v)
	}
}

func TestUpdate_URLEncodedBody(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/admin/life-events-page-settings/update",
		strings.NewReader("page_title=Milestones"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = testutil.AcceptJSON(testutil.WithCSRFToken(req))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
	}
	s, _ := e.store.Get(ctx, models.PageLifeEvents)
	if v, _ := s.Value("page_title"); v != "Milestones" {
		t.Errorf("page_title = %q", v)
	}
}

func TestShowPage(t *testing.T) {
	testutil.MustBootTemplates(t)
	e := newTestEnv(t)

	for _, p := range pageschema.Pages() {
		t.Run(p.Slug, func(t *testing.T) {
			req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, p.Path, nil))
			rec := httptest.NewRecorder()
			e.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestShowPage_JSONReturnsStoredRecord(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/admin/blogs-page-settings/update",
		[][2]string{{"banner_title", "Fresh Writing"}}, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req := testutil.AcceptJSON(httptest.NewRequest(http.MethodGet, "/admin/blogs-page-settings", nil))
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got models.PageSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Page != models.PageBlogs {
		t.Errorf("page = %q, want %q", got.Page, models.PageBlogs)
	}
	if v, _ := got.Value("banner_title"); v != "Fresh Writing" {
		t.Errorf("banner_title = %q, want %q", v, "Fresh Writing")
	}
}

func TestIndex(t *testing.T) {
	testutil.MustBootTemplates(t)
	e := newTestEnv(t)

	req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/admin", nil))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

type fakeUsage struct {
	sums []apistatsstore.Summary
	err  error
}

func (f fakeUsage) GetSummary(ctx context.Context, start, end time.Time) ([]apistatsstore.Summary, error) {
	return f.sums, f.err
}

func TestIndex_UsageTable(t *testing.T) {
	testutil.MustBootTemplates(t)

	tests := []struct {
		name  string
		usage UsageSource
		want  bool
	}{
		{"with stats", fakeUsage{sums: []apistatsstore.Summary{
			{StatType: apistatsstore.StatTypePageRead, TotalRequests: 42, AvgMs: 3.5, MaxMs: 9},
		}}, true},
		{"read fails", fakeUsage{err: errors.New("boom")}, false},
		{"no source", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.h.usage = tt.usage

			req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/admin", nil))
			rec := httptest.NewRecorder()
			e.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			body := rec.Body.String()
			if got := strings.Contains(body, "Public page reads"); got != tt.want {
				t.Errorf("usage table shown = %v, want %v", got, tt.want)
			}
			if tt.want && !strings.Contains(body, "3.5") {
				t.Error("average latency missing from usage table")
			}
		})
	}
}

func TestUpdate_HTMLValidationErrorRerenders(t *testing.T) {
	testutil.MustBootTemplates(t)
	e := newTestEnv(t)

	rec := e.post(t, "/admin/about-me-page-settings/update-banner",
		[][2]string{{"video_url", "not a url"}}, nil, false)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}
