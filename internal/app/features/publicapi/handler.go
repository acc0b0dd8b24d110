// Package publicapi serves the resolved settings of each marketing page to
// the public site.
//
// Endpoints:
//   - GET /api/pages         - list page slugs and titles
//   - GET /api/pages/{page}  - resolved settings of one page
//
// Values are resolved the way the admin forms show them: a stored value
// wins, otherwise the defaults table, otherwise "". Media values are
// returned as URLs. Reads go through the settings cache, which saves
// invalidate.
package publicapi

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/pagecms/internal/app/features/errors"
	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/pageform"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/settingscache"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves page settings read-only.
type Handler struct {
	cache    *settingscache.Cache
	defaults *pagedefaults.Table
	uploads  *uploads.Store
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a publicapi handler.
func NewHandler(cache *settingscache.Cache, defaults *pagedefaults.Table, up *uploads.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	if errLog == nil {
		errLog = errorsfeature.NewErrorLogger(logger)
	}
	return &Handler{
		cache:    cache,
		defaults: defaults,
		uploads:  up,
		errLog:   errLog,
		logger:   logger,
	}
}

// PageSummary is one entry of the page index.
type PageSummary struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PageResponse is the resolved content of one page.
type PageResponse struct {
	Page      string                  `json:"page"`
	Title     string                  `json:"title"`
	UpdatedAt *time.Time              `json:"updated_at,omitempty"`
	Forms     map[string]FormResponse `json:"forms"` // keyed by group, "main" on single-form pages
}

// FormResponse holds the values and lists of one form.
type FormResponse struct {
	Values map[string]string         `json:"values"`
	Lists  map[string][]ItemResponse `json:"lists,omitempty"`
}

// ItemResponse is one list item.
type ItemResponse struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
	Video  *VideoResponse    `json:"video,omitempty"`
}

// VideoResponse is the video of a list item. Type is "url" or "file".
type VideoResponse struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"` // file name of stored videos
}

// mainForm names the only form of single-form pages.
const mainForm = "main"

// List handles GET /api/pages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pages := pageschema.Pages()
	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageSummary{Slug: p.Slug, Title: p.Title})
	}
	jsonutil.OK(w, map[string]any{"pages": out})
}

// Get handles GET /api/pages/{page}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "page")
	p, ok := pageschema.Lookup(slug)
	if !ok {
		jsonutil.NotFound(w, "Unknown page.")
		return
	}

	s, err := h.cache.Get(r.Context(), p.Slug)
	if err != nil {
		h.errLog.LogWithFields(r, "failed to read page settings", err, zap.String("page", p.Slug))
		jsonutil.InternalError(w, "Failed to load page settings.")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	jsonutil.OK(w, h.resolve(p, s))
}

// resolve builds the response for a page from its stored settings.
func (h *Handler) resolve(p *pageschema.Page, s *models.PageSettings) PageResponse {
	resp := PageResponse{
		Page:  p.Slug,
		Title: p.Title,
		Forms: make(map[string]FormResponse, len(p.Forms)),
	}
	if s != nil {
		resp.UpdatedAt = s.UpdatedAt
	}

	for _, schema := range p.Forms {
		f := pageform.New(schema, s, h.defaults)
		fr := FormResponse{Values: f.Values()}
		for _, fd := range schema.Fields() {
			if fd.IsMedia() {
				fr.Values[fd.Name] = h.uploads.URL(fr.Values[fd.Name])
			}
		}

		for _, l := range schema.Lists() {
			if fr.Lists == nil {
				fr.Lists = map[string][]ItemResponse{}
			}
			items := f.Items(l.Name)
			out := make([]ItemResponse, 0, len(items))
			for _, it := range items {
				ir := ItemResponse{ID: it.ID, Values: it.Values}
				for _, fd := range l.Fields {
					if fd.IsMedia() {
						ir.Values[fd.Name] = h.uploads.URL(ir.Values[fd.Name])
					}
				}
				if l.Video {
					ir.Video = h.video(it.Video)
				}
				out = append(out, ir)
			}
			fr.Lists[l.Name] = out
		}

		key := schema.Group
		if key == "" {
			key = mainForm
		}
		resp.Forms[key] = fr
	}
	return resp
}

func (h *Handler) video(in pageform.VideoInput) *VideoResponse {
	switch v := in.(type) {
	case pageform.VideoStored:
		return &VideoResponse{Type: pageform.SourceFile, URL: h.uploads.URL(v.Path), Name: v.Name}
	case pageform.VideoURL:
		return &VideoResponse{Type: pageform.SourceURL, URL: v.URL}
	}
	return &VideoResponse{Type: pageform.SourceURL}
}
