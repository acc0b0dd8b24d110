package pageform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type fakeTransport struct {
	mu       sync.Mutex
	calls    int
	endpoint string
	payload  *Payload
	resp     *Response
	err      error
	started  chan struct{} // closed when Post is entered, if set
	release  chan struct{} // Post waits on it, if set
}

func (ft *fakeTransport) Post(ctx context.Context, endpoint string, p *Payload) (*Response, error) {
	ft.mu.Lock()
	ft.calls++
	ft.endpoint = endpoint
	ft.payload = p
	started, release := ft.started, ft.release
	ft.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return ft.resp, ft.err
}

type countingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *countingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func TestSubmit_SuccessResetsPreviewsAndNotifiesOnce(t *testing.T) {
	n := &countingNotifier{}
	f := New(mustForm(t, "blogs"), nil, nil, WithNotifier(n))
	_ = f.SelectFile("banner_vector_right", pngUpload("r.png"))
	f.WaitPreviews()
	if f.PreviewCount() != 1 {
		t.Fatal("preview not built")
	}

	ft := &fakeTransport{resp: &Response{}}
	if err := f.Submit(context.Background(), ft); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if ft.endpoint != "/admin/blogs-page-settings/update" {
		t.Errorf("endpoint = %q", ft.endpoint)
	}
	if f.PreviewCount() != 0 {
		t.Errorf("PreviewCount() = %d, want 0", f.PreviewCount())
	}
	if len(n.messages) != 1 || n.messages[0] != "Blogs page settings updated successfully" {
		t.Errorf("notifications = %v", n.messages)
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %v, want idle", f.State())
	}
}

func TestSubmit_ServerMessageWins(t *testing.T) {
	n := &countingNotifier{}
	f := New(mustForm(t, "about-me.banner"), nil, nil, WithNotifier(n))
	ft := &fakeTransport{resp: &Response{Message: "Saved!"}}
	if err := f.Submit(context.Background(), ft); err != nil {
		t.Fatal(err)
	}
	if ft.endpoint != "/admin/about-me-page-settings/update-banner" {
		t.Errorf("endpoint = %q", ft.endpoint)
	}
	if len(n.messages) != 1 || n.messages[0] != "Saved!" {
		t.Errorf("notifications = %v", n.messages)
	}
}

func TestSubmit_ValidationErrorKeepsPreviews(t *testing.T) {
	n := &countingNotifier{}
	f := New(mustForm(t, "entrepreneurship"), nil, nil, WithNotifier(n))
	_, _ = f.AddItem("quotes")
	_ = f.SelectItemFile("quotes", 0, "image", pngUpload("q.png"))
	_ = f.SelectFile("banner_image", pngUpload("b.png"))
	f.WaitPreviews()

	verr := &ValidationError{Fields: map[string]string{
		"banner_quote":     "Banner Quote must be at most 5000 characters.",
		"quotes.0.content": "Quote is required.",
	}}
	err := f.Submit(context.Background(), &fakeTransport{err: verr})

	var got *ValidationError
	if !errors.As(err, &got) {
		t.Fatalf("Submit() error = %v, want *ValidationError", err)
	}
	if f.PreviewCount() != 2 {
		t.Errorf("PreviewCount() = %d, want 2", f.PreviewCount())
	}
	if msg := f.FieldError(ErrorKey("quotes", 0, "content")); msg != "Quote is required." {
		t.Errorf("FieldError(quotes.0.content) = %q", msg)
	}
	if msg := f.FieldError("banner_quote"); msg == "" {
		t.Error("FieldError(banner_quote) empty")
	}
	if len(n.messages) != 0 {
		t.Errorf("notifications = %v, want none", n.messages)
	}

	// a later success clears the errors
	if err := f.Submit(context.Background(), &fakeTransport{resp: &Response{}}); err != nil {
		t.Fatal(err)
	}
	if len(f.Errors()) != 0 {
		t.Errorf("Errors() = %v, want empty", f.Errors())
	}
}

func TestSubmit_TransportErrorReturned(t *testing.T) {
	n := &countingNotifier{}
	f := New(mustForm(t, "donation"), nil, nil, WithNotifier(n))
	_ = f.SelectFile("banner_default_image", pngUpload("d.png"))
	f.WaitPreviews()

	boom := errors.New("connection refused")
	err := f.Submit(context.Background(), &fakeTransport{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("Submit() error = %v, want %v", err, boom)
	}
	if f.PreviewCount() != 1 {
		t.Error("previews reset on failure")
	}
	if len(n.messages) != 0 {
		t.Error("notified on failure")
	}
	if f.State() != StateIdle {
		t.Errorf("State() = %v, want idle", f.State())
	}
}

func TestSubmit_SecondSubmitWhileInFlight(t *testing.T) {
	f := New(mustForm(t, "books"), nil, nil)
	ft := &fakeTransport{
		resp:    &Response{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background(), ft) }()
	<-ft.started

	if f.State() != StateSubmitting {
		t.Errorf("State() = %v, want submitting", f.State())
	}
	if err := f.Submit(context.Background(), &fakeTransport{resp: &Response{}}); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("second Submit() error = %v, want ErrSubmitInProgress", err)
	}

	close(ft.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if ft.calls != 1 {
		t.Errorf("transport calls = %d, want 1", ft.calls)
	}
}

func TestSubmit_SuccessSettlesSentUploads(t *testing.T) {
	stored := &models.PageSettings{
		Page: models.PageEntrepreneurship,
		Lists: map[string][]models.ListItem{
			"quotes": {{ID: "q1", Values: map[string]string{"content": "Hi", "image": ""}}},
		},
	}
	f := New(mustForm(t, "entrepreneurship"), stored, nil)
	_ = f.SelectFile("banner_image", pngUpload("b.png"))
	_ = f.SelectItemFile("quotes", 0, "image", pngUpload("q.png"))
	f.WaitPreviews()

	saved := &models.PageSettings{
		Page:   models.PageEntrepreneurship,
		Values: map[string]string{"banner_image": "pages/entrepreneurship/b.png"},
		Lists: map[string][]models.ListItem{
			"quotes": {{ID: "q1", Values: map[string]string{"content": "Hi", "image": "pages/entrepreneurship/q.png"}}},
		},
	}
	if err := f.Submit(context.Background(), &fakeTransport{resp: &Response{Settings: saved}}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, ok := f.PendingUpload("banner_image"); ok {
		t.Error("banner_image upload still pending after success")
	}
	if got := f.Value("banner_image"); got != "pages/entrepreneurship/b.png" {
		t.Errorf("banner_image = %q, want the saved path", got)
	}
	item := f.Items("quotes")[0]
	if len(item.Uploads) != 0 {
		t.Errorf("item uploads = %v, want none", item.Uploads)
	}
	if item.Values["image"] != "pages/entrepreneurship/q.png" {
		t.Errorf("item image = %q, want the saved path", item.Values["image"])
	}

	again := &fakeTransport{resp: &Response{}}
	if err := f.Submit(context.Background(), again); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	mf := readPayload(t, again.payload)
	if len(mf.File) != 0 {
		t.Errorf("second payload re-sent files: %v", mf.File)
	}
	if got := mf.Value[ItemKey("quotes", 0, "image")]; len(got) != 1 || got[0] != "pages/entrepreneurship/q.png" {
		t.Errorf("second payload item image = %v", got)
	}
}

func TestSubmit_SuccessSettlesRemoval(t *testing.T) {
	stored := &models.PageSettings{Values: map[string]string{"banner_image": "pages/entrepreneurship/old.png"}}
	f := New(mustForm(t, "entrepreneurship"), stored, nil)
	_ = f.RemoveFile("banner_image")

	first := &fakeTransport{resp: &Response{}}
	if err := f.Submit(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if got := readPayload(t, first.payload).Value[RemovePrefix+"banner_image"]; len(got) != 1 {
		t.Fatalf("first payload remove flag = %v", got)
	}
	if got := f.Value("banner_image"); got != "" {
		t.Errorf("banner_image = %q, want cleared", got)
	}

	again := &fakeTransport{resp: &Response{}}
	if err := f.Submit(context.Background(), again); err != nil {
		t.Fatal(err)
	}
	if got := readPayload(t, again.payload).Value[RemovePrefix+"banner_image"]; len(got) != 0 {
		t.Errorf("second payload repeated the removal: %v", got)
	}
}

func TestSubmit_VideoUploadBecomesStored(t *testing.T) {
	f := New(mustForm(t, "videos"), nil, nil)
	id, _ := f.AddItem("short_videos")
	_ = f.SetVideoSource("short_videos", 0, VideoUpload{Upload: Upload{Filename: "s.mp4", ContentType: "video/mp4", Data: []byte("mp4")}})

	saved := &models.PageSettings{Lists: map[string][]models.ListItem{
		"short_videos": {{ID: id, Video: ptr(models.VideoFromFile("pages/videos/2025/01/s.mp4"))}},
	}}
	if err := f.Submit(context.Background(), &fakeTransport{resp: &Response{Settings: saved}}); err != nil {
		t.Fatal(err)
	}

	want := VideoStored{Path: "pages/videos/2025/01/s.mp4", Name: "s.mp4"}
	if diff := cmp.Diff(VideoInput(want), f.Items("short_videos")[0].Video); diff != "" {
		t.Errorf("video after success (-want +got):
%s", diff)
	}

	again := &fakeTransport{resp: &Response{}}
	if err := f.Submit(context.Background(), again); err != nil {
		t.Fatal(err)
	}
	mf := readPayload(t, again.payload)
	if len(mf.File) != 0 {
		t.Errorf("second payload re-sent the video: %v", mf.File)
	}
	if got := mf.Value[ItemKey("short_videos", 0, VideoSourceField)]; len(got) != 1 || got[0] != SourceFile {
		t.Errorf("second payload video source = %v, want %q", got, SourceFile)
	}
}

func TestSubmit_SelectionsDuringFlightStayPending(t *testing.T) {
	f := New(mustForm(t, "blogs"), nil, nil)
	_ = f.SelectFile("banner_vector_right", pngUpload("first.png"))
	f.WaitPreviews()

	ft := &fakeTransport{
		resp:    &Response{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background(), ft) }()
	<-ft.started

	// one key picked for the first time, one replaced, both after encoding
	_ = f.SelectFile("banner_vector_left", pngUpload("late.png"))
	_ = f.SelectFile("banner_vector_right", pngUpload("second.png"))
	f.WaitPreviews()

	close(ft.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	sent := readPayload(t, ft.payload).File
	if _, ok := sent["banner_vector_left"]; ok {
		t.Fatal("late selection was in the submitted payload")
	}
	if fh := sent["banner_vector_right"]; len(fh) != 1 || fh[0].Filename != "first.png" {
		t.Fatalf("submitted banner_vector_right = %v", fh)
	}

	for _, tc := range []struct{ field, file string }{
		{"banner_vector_left", "late.png"},
		{"banner_vector_right", "second.png"},
	} {
		up, ok := f.PendingUpload(tc.field)
		if !ok || up.Filename != tc.file {
			t.Errorf("%s pending = %v %v, want %s", tc.field, up.Filename, ok, tc.file)
		}
		if _, ok := f.Preview(tc.field); !ok {
			t.Errorf("%s preview dropped by the earlier success", tc.field)
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	schema := mustForm(t, "videos")
	f := New(schema, nil, mustDefaults(t), WithIDGenerator(seqIDs()))
	_ = f.SetField("banner_title", "Watch")
	_ = f.SelectFile("banner_image", pngUpload("banner.png"))
	_, _ = f.AddItem("short_videos")
	_ = f.UpdateItemField("short_videos", 0, "title", "Short one")
	_ = f.SetVideoSource("short_videos", 0, VideoUpload{Upload: Upload{Filename: "s.mp4", ContentType: "video/mp4", Data: []byte("mp4")}})
	_ = f.SetVideoSource("banner_videos", 2, VideoStored{Path: "pages/videos/2025/01/keep.mp4"})

	p, err := f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	sub := Decode(schema, readPayload(t, p))

	if sub.Values["banner_title"] != "Watch" {
		t.Errorf("banner_title = %q", sub.Values["banner_title"])
	}
	if fh := sub.Files["banner_image"]; fh == nil || fh.Filename != "banner.png" {
		t.Errorf("banner_image file = %v", fh)
	}
	if _, ok := sub.Files["banner_vector"]; ok {
		t.Error("unexpected file")
	}

	if !sub.HasList("banner_videos") || !sub.HasList("all_videos") || !sub.HasList("short_videos") {
		t.Fatalf("lists = %v", sub.Lists)
	}
	if n := len(sub.Lists["all_videos"]); n != 0 {
		t.Errorf("all_videos = %d items, want 0", n)
	}

	banner := sub.Lists["banner_videos"]
	gotTitles := []string{}
	for _, it := range banner {
		gotTitles = append(gotTitles, it.Values["title"])
	}
	if diff := cmp.Diff([]string{"Featured Video 1", "Featured Video 2", "Featured Video 3"}, gotTitles); diff != "" {
		t.Errorf("banner titles (-want +got):\n%s", diff)
	}
	want := SubmittedVideo{Source: SourceFile, Path: "pages/videos/2025/01/keep.mp4"}
	if diff := cmp.Diff(want, banner[2].Video); diff != "" {
		t.Errorf("stored video (-want +got):\n%s", diff)
	}
	if banner[0].Video.Source != SourceURL || banner[0].Video.URL == "" {
		t.Errorf("url video = %+v", banner[0].Video)
	}

	short := sub.Lists["short_videos"][0]
	if short.ID == "" || short.Values["title"] != "Short one" {
		t.Errorf("short item = %+v", short)
	}
	if short.Video.Source != SourceUpload || short.Video.File == nil || short.Video.File.Filename != "s.mp4" {
		t.Errorf("short video = %+v", short.Video)
	}
}

func TestDecode_AbsentMeansUnchanged(t *testing.T) {
	schema := mustForm(t, "entrepreneurship")
	mf := &multipart.Form{Value: map[string][]string{
		"page_title":         {"Founders"},
		"unknown_field":      {"x"},
		"quotes[0][content]": {"not marked, ignored"},
	}}
	sub := Decode(schema, mf)

	if diff := cmp.Diff(map[string]string{"page_title": "Founders"}, sub.Values); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
	if len(sub.Lists) != 0 {
		t.Errorf("lists = %v, want none", sub.Lists)
	}
}

func TestDecode_GapsAndShorthand(t *testing.T) {
	schema := mustForm(t, "events")
	mf := &multipart.Form{Value: map[string][]string{
		"_list":                         {"year_filter_options", "nope"},
		"year_filter_options[5]":        {"2019"},
		"year_filter_options[0]":        {"2025"},
		"year_filter_options[2][value]": {"2022"},
	}}
	sub := Decode(schema, mf)

	var got []string
	for _, it := range sub.Lists["year_filter_options"] {
		got = append(got, it.Values["value"])
	}
	if diff := cmp.Diff([]string{"2025", "2022", "2019"}, got); diff != "" {
		t.Errorf("years (-want +got):\n%s", diff)
	}
	if _, ok := sub.Lists["nope"]; ok {
		t.Error("unknown list accepted")
	}
}

func TestDecode_RemoveFlag(t *testing.T) {
	schema := mustForm(t, "life-events")
	sub := Decode(schema, &multipart.Form{Value: map[string][]string{
		"remove_banner_image": {"1"},
		"remove_page_title":   {"1"},
	}})
	if diff := cmp.Diff(map[string]bool{"banner_image": true}, sub.Remove, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("remove (-want +got):\n%s", diff)
	}
}

func TestParseItemKey(t *testing.T) {
	tests := []struct {
		key   string
		list  string
		index int
		field string
		ok    bool
	}{
		{"quotes[0][content]", "quotes", 0, "content", true},
		{"year_filter_options[12]", "year_filter_options", 12, "", true},
		{"quotes[x][content]", "", 0, "", false},
		{"quotes", "", 0, "", false},
		{"quotes[0][content][x]", "", 0, "", false},
	}
	for _, tt := range tests {
		list, index, field, ok := ParseItemKey(tt.key)
		if list != tt.list || index != tt.index || field != tt.field || ok != tt.ok {
			t.Errorf("ParseItemKey(%q) = %q, %d, %q, %v", tt.key, list, index, field, ok)
		}
	}
}

func TestHTTPTransport(t *testing.T) {
	var gotAuth, gotAccept, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/admin/blogs-page-settings/update":
			_, _ = io.Copy(io.Discard, r.Body)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok!"})
		case "/admin/books-page-settings/update":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": map[string]string{"banner_title": "too long"}})
		case "/admin/awards/abc":
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Award deleted successfully"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
		}
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/", "secret")
	tr.Client = srv.Client()
	ctx := context.Background()
	body := &Payload{ContentType: "multipart/form-data; boundary=x", Body: []byte("--x--\r\n")}

	resp, err := tr.Post(ctx, "/admin/blogs-page-settings/update", body)
	if err != nil || resp.Message != "ok!" {
		t.Fatalf("Post() = %+v, %v", resp, err)
	}
	if gotAuth != "Bearer secret" || gotAccept != "application/json" {
		t.Errorf("headers: auth=%q accept=%q", gotAuth, gotAccept)
	}

	_, err = tr.Post(ctx, "/admin/books-page-settings/update", body)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["banner_title"] != "too long" {
		t.Errorf("422 error = %v", err)
	}

	_, err = tr.Post(ctx, "/elsewhere", body)
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != 500 || serr.Message != "internal error" {
		t.Errorf("500 error = %v", err)
	}

	resp, err = tr.Delete(ctx, "/admin/awards/abc")
	if err != nil || resp.Message != "Award deleted successfully" || gotMethod != http.MethodDelete {
		t.Errorf("Delete() = %+v, %v (method %s)", resp, err, gotMethod)
	}
}

type fakeDeleter struct {
	paths []string
}

func (d *fakeDeleter) Delete(ctx context.Context, path string) (*Response, error) {
	d.paths = append(d.paths, path)
	return &Response{}, nil
}

func TestDeleteEntity(t *testing.T) {
	kind, _ := pageschema.Entity("awards")

	t.Run("declined sends nothing", func(t *testing.T) {
		d := &fakeDeleter{}
		n := &countingNotifier{}
		var prompt string
		err := DeleteEntity(context.Background(), d, ConfirmFunc(func(p string) bool {
			prompt = p
			return false
		}), n, kind, "abc")
		if !errors.Is(err, ErrDeleteCancelled) {
			t.Errorf("error = %v, want ErrDeleteCancelled", err)
		}
		if prompt != "Are you sure you want to delete this award?" {
			t.Errorf("prompt = %q", prompt)
		}
		if len(d.paths) != 0 || len(n.messages) != 0 {
			t.Errorf("declined delete had effects: %v %v", d.paths, n.messages)
		}
	})

	t.Run("confirmed deletes and notifies", func(t *testing.T) {
		d := &fakeDeleter{}
		n := &countingNotifier{}
		err := DeleteEntity(context.Background(), d, ConfirmFunc(func(string) bool { return true }), n, kind, "abc")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"/admin/awards/abc"}, d.paths); diff != "" {
			t.Errorf("paths (-want +got):\n%s", diff)
		}
		if len(n.messages) != 1 || n.messages[0] != "Award deleted successfully" {
			t.Errorf("notifications = %v", n.messages)
		}
	})
}
