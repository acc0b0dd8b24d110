package apistats

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	"github.com/dalemusser/pagecms/internal/testutil"
	"go.uber.org/zap"
)

func TestMiddleware_NilRecorderPassesThrough(t *testing.T) {
	called := false
	h := Middleware(nil, apistatsstore.StatTypePageRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("next handler not called")
	}
}

func TestMiddleware_RecordsStatusAsError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := apistatsstore.New(db)
	rec := NewRecorder(store, zap.NewNop(), time.Hour)
	rec.wait = func(fn func()) { fn() }

	status := http.StatusOK
	h := Middleware(rec, apistatsstore.StatTypeSettingsUpdate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	status = http.StatusUnprocessableEntity
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	now := time.Now()
	sums, err := store.GetSummary(ctx, now.Add(-2*time.Hour), now)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if len(sums) != 1 || sums[0].TotalRequests != 2 || sums[0].TotalErrors != 1 {
		t.Errorf("summaries = %+v, want 2 requests with 1 error", sums)
	}
}
