package publicapi

import (
	"net/http"

	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	"github.com/dalemusser/pagecms/internal/app/system/apicors"
	"github.com/dalemusser/pagecms/internal/app/system/apistats"
	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the read endpoints.
//
// When mounted at /api/pages:
//   - GET /api/pages
//   - GET /api/pages/{page}
//
// The endpoints need no authentication. origins restricts which sites may
// read them from a browser; none allows any origin.
func Routes(h *Handler, recorder *apistats.Recorder, origins ...string) http.Handler {
	r := chi.NewRouter()
	r.Use(apicors.Middleware(origins...))
	r.Use(apistats.Middleware(recorder, apistatsstore.StatTypePageRead))

	r.Get("/", h.List)
	r.Get("/{page}", h.Get)
	return r
}
