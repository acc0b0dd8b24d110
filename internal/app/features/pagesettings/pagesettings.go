// internal/app/features/pagesettings/pagesettings.go
package pagesettings

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	errorsfeature "github.com/dalemusser/pagecms/internal/app/features/errors"
	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	entitystore "github.com/dalemusser/pagecms/internal/app/store/entities"
	pagesettingsstore "github.com/dalemusser/pagecms/internal/app/store/pagesettings"
	"github.com/dalemusser/pagecms/internal/app/system/auditlog"
	"github.com/dalemusser/pagecms/internal/app/system/flash"
	"github.com/dalemusser/pagecms/internal/app/system/formutil"
	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/settingscache"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxUpload bounds a settings submit when no limit is configured.
const DefaultMaxUpload = 32 << 20

// usageWindow is how far back the admin index totals API usage.
const usageWindow = 24 * time.Hour

// UsageSource totals API request statistics over a time range.
type UsageSource interface {
	GetSummary(ctx context.Context, start, end time.Time) ([]apistatsstore.Summary, error)
}

// Handler serves the admin settings pages and their update endpoints.
type Handler struct {
	store     *pagesettingsstore.Store
	entities  *entitystore.Store
	uploads   *uploads.Store
	cache     *settingscache.Cache
	defaults  *pagedefaults.Table
	flash     *flash.Manager
	audit     *auditlog.Logger
	errLog    *errorsfeature.ErrorLogger
	usage     UsageSource
	maxUpload int64
	logger    *zap.Logger
	newID     func() string
}

// Deps groups what the handler needs beyond the database.
type Deps struct {
	Uploads   *uploads.Store
	Cache     *settingscache.Cache
	Defaults  *pagedefaults.Table
	Flash     *flash.Manager
	Audit     *auditlog.Logger
	ErrLog    *errorsfeature.ErrorLogger
	Usage     UsageSource // optional; nil hides the usage table
	MaxUpload int64       // bytes; 0 uses DefaultMaxUpload
}

// NewHandler creates a new page settings Handler.
func NewHandler(db *mongo.Database, deps Deps, logger *zap.Logger) *Handler {
	maxUpload := deps.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	errLog := deps.ErrLog
	if errLog == nil {
		errLog = errorsfeature.NewErrorLogger(logger)
	}
	return &Handler{
		store:     pagesettingsstore.New(db),
		entities:  entitystore.New(db),
		uploads:   deps.Uploads,
		cache:     deps.Cache,
		defaults:  deps.Defaults,
		flash:     deps.Flash,
		audit:     deps.Audit,
		errLog:    errLog,
		usage:     deps.Usage,
		maxUpload: maxUpload,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// MountRoutes mounts the admin index, one settings screen per page and one
// update endpoint per form. updates wrap the update endpoints only.
func (h *Handler) MountRoutes(r chi.Router, updates ...func(http.Handler) http.Handler) {
	r.Get("/admin", h.index)
	u := r.With(updates...)
	for _, p := range pageschema.Pages() {
		r.Get(p.Path, h.show(p))
		for _, f := range p.Forms {
			u.Post(f.Endpoint, h.update(p, f))
		}
	}
}

// index lists every settings page and entity collection.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saved, err := h.store.All(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to list page settings", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	updated := make(map[string]string, len(saved))
	for _, s := range saved {
		if s.UpdatedAt != nil {
			updated[s.Page] = s.UpdatedAt.Format("Jan 2, 2006 15:04")
		}
	}

	vm := indexVM{Base: formutil.NewBase(w, r, "Page Settings", "/admin")}
	for _, p := range pageschema.Pages() {
		vm.Pages = append(vm.Pages, pageRow{
			Title:     p.Title,
			Path:      p.Path,
			Forms:     len(p.Forms),
			UpdatedAt: updated[p.Slug],
		})
	}
	vm.Entities = h.entityRows(ctx, r, kindsOf(pageschema.Entities()))
	vm.Usage = h.usageRows(ctx, r)

	templates.Render(w, r, "pagesettings/index", vm)
}

// usageRows totals API traffic over the last usageWindow. A failed read
// only hides the table.
func (h *Handler) usageRows(ctx context.Context, r *http.Request) []usageRow {
	if h.usage == nil {
		return nil
	}
	end := time.Now()
	sums, err := h.usage.GetSummary(ctx, end.Add(-usageWindow), end)
	if err != nil {
		h.errLog.Log(r, "failed to load API usage", err)
		return nil
	}
	rows := make([]usageRow, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, usageRow{
			Label:    usageLabel(s.StatType),
			Requests: s.TotalRequests,
			Errors:   s.TotalErrors,
			AvgMs:    fmt.Sprintf("%.1f", s.AvgMs),
			MaxMs:    s.MaxMs,
		})
	}
	return rows
}

func usageLabel(t apistatsstore.StatType) string {
	switch t {
	case apistatsstore.StatTypePageRead:
		return "Public page reads"
	case apistatsstore.StatTypeSettingsUpdate:
		return "Settings updates"
	case apistatsstore.StatTypeEntityWrite:
		return "Collection changes"
	}
	return string(t)
}

// show renders every form of one page. JSON clients get the stored
// record as is: paths, not URLs, and no defaults applied.
func (h *Handler) show(p *pageschema.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := h.store.Get(r.Context(), p.Slug)
		if err != nil {
			h.errLog.Log(r, "failed to get page settings", err)
			if jsonutil.Wants(r) {
				jsonutil.InternalError(w, "Failed to load settings.")
				return
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if jsonutil.Wants(r) {
			jsonutil.OK(w, current)
			return
		}
		h.renderPage(w, r, http.StatusOK, p, current, nil, nil, nil)
	}
}

// renderPage renders the settings screen. When failed is set, that form is
// shown with the rejected submission and its field errors.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, p *pageschema.Page, current *models.PageSettings,
	failed *pageschema.Form, sub *pageform.Submission, errs map[string]string) {
	vm := pageVM{
		Base: formutil.NewBase(w, r, p.Title, "/admin"),
		Page: p,
	}
	for _, f := range p.Forms {
		st := stateFromForm(pageform.New(f, current, h.defaults))
		if f == failed {
			st = st.echo(f, sub, current)
			vm.Forms = append(vm.Forms, h.buildForm(f, st, errs))
			continue
		}
		vm.Forms = append(vm.Forms, h.buildForm(f, st, nil))
	}
	if failed != nil {
		vm.SetFieldErrors(errs)
	}
	vm.Entities = h.entityRows(r.Context(), r, p.Entities)

	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "pagesettings/show", vm)
}

func (h *Handler) entityRows(ctx context.Context, r *http.Request, kinds []string) []entityRow {
	var rows []entityRow
	for _, kind := range kinds {
		k, ok := pageschema.Entity(kind)
		if !ok {
			continue
		}
		n, err := h.entities.Count(ctx, kind)
		if err != nil {
			h.errLog.LogWithFields(r, "failed to count entities", err, zap.String("kind", kind))
		}
		rows = append(rows, entityRow{Title: k.Title, Path: k.AdminPath(), Count: n})
	}
	return rows
}

func kindsOf(ks []*pageschema.EntityKind) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.Kind
	}
	return out
}

// savedJSON answers an API client with the success message and the page
// record as written, so the client can learn the paths of stored uploads.
func (h *Handler) savedJSON(w http.ResponseWriter, r *http.Request, p *pageschema.Page, form *pageschema.Form) {
	saved, err := h.store.Get(r.Context(), p.Slug)
	if err != nil {
		h.logger.Warn("failed to reload page settings", zap.String("page", p.Slug), zap.Error(err))
		jsonutil.Message(w, form.SuccessMessage)
		return
	}
	jsonutil.OK(w, map[string]any{
		"message":  form.SuccessMessage,
		"settings": saved,
	})
}

// update applies one form's submission. Only the fields, files and lists
// the request carried are written; everything else on the page is kept.
func (h *Handler) update(p *pageschema.Page, form *pageschema.Form) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			if !errors.Is(err, http.ErrNotMultipart) {
				h.badRequest(w, r, "Request is too large or malformed.", err)
				return
			}
			if err := r.ParseForm(); err != nil {
				h.badRequest(w, r, "Request is malformed.", err)
				return
			}
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		mf := r.MultipartForm
		if mf == nil {
			mf = &multipart.Form{Value: r.PostForm}
		}
		sub := pageform.Decode(form, mf)

		ctx := r.Context()
		current, err := h.store.Get(ctx, p.Slug)
		if err != nil {
			h.fail(w, r, "failed to get page settings", err)
			return
		}

		if errs := validate(form, sub, current); len(errs) > 0 {
			h.reject(w, r, p, form, current, sub, errs)
			return
		}

		stored, err := h.uploads.PutAll(ctx, p.Slug, pendingFiles(form, sub))
		if err != nil {
			if errors.Is(err, uploads.ErrNotAccepted) {
				h.reject(w, r, p, form, current, sub, map[string]string{"_form": "One of the files is not of an accepted type."})
				return
			}
			h.fail(w, r, "failed to store uploads", err)
			return
		}
		paths := make(map[string]string, len(stored))
		var newPaths []string
		for _, st := range stored {
			paths[st.Key] = st.Path
			newPaths = append(newPaths, st.Path)
		}

		ch := merge(form, sub, current, paths, h.newID)
		if err := h.store.Update(ctx, p.Slug, ch.values, ch.lists); err != nil {
			h.uploads.DeleteAll(context.WithoutCancel(ctx), newPaths)
			h.fail(w, r, "failed to save page settings", err)
			return
		}

		h.uploads.DeleteAll(context.WithoutCancel(ctx), ch.superseded)
		if h.cache != nil {
			h.cache.Invalidate(p.Slug)
		}
		sort.Strings(ch.changed)
		h.audit.PageSettingsUpdated(r, p.Slug, form.Key, ch.changed, len(stored))
		h.logger.Info("page settings updated",
			zap.String("page", p.Slug),
			zap.String("form", form.Key),
			zap.Strings("changed", ch.changed),
			zap.Int("files_stored", len(stored)),
			zap.Int("files_removed", len(ch.superseded)))

		if jsonutil.Wants(r) {
			h.savedJSON(w, r, p, form)
			return
		}
		if err := h.flash.Success(w, r, form.SuccessMessage); err != nil {
			h.logger.Warn("failed to queue toast", zap.Error(err))
		}
		http.Redirect(w, r, p.Path, http.StatusSeeOther)
	}
}

// reject answers a submission that failed validation with 422.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, p *pageschema.Page, form *pageschema.Form,
	current *models.PageSettings, sub *pageform.Submission, errs map[string]string) {
	h.audit.PageSettingsRejected(r, p.Slug, form.Key, len(errs))
	if jsonutil.Wants(r) {
		jsonutil.ValidationError(w, errs)
		return
	}
	h.renderPage(w, r, http.StatusUnprocessableEntity, p, current, form, sub, errs)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Warn("settings request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	if jsonutil.Wants(r) {
		jsonutil.BadRequest(w, msg)
		return
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.errLog.Log(r, msg, err)
	if jsonutil.Wants(r) {
		jsonutil.InternalError(w, "Failed to save settings. Please try again.")
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
