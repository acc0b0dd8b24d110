// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// checkTimeout bounds each dependency probe.
const checkTimeout = 5 * time.Second

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// Handler provides health check endpoints.
type Handler struct {
	checks map[string]Check
	logger *zap.Logger
}

// NewHandler creates a health Handler that pings mongoClient and runs any
// extra named checks (the file store, for example).
func NewHandler(mongoClient *mongo.Client, logger *zap.Logger, extra map[string]Check) *Handler {
	checks := make(map[string]Check, len(extra)+1)
	if mongoClient != nil {
		checks["mongodb"] = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}
	}
	for name, c := range extra {
		checks[name] = c
	}
	return &Handler{checks: checks, logger: logger}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns /health (full check) with /ready and /live beneath it.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes probe paths /ready, /readyz and
// /livez on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// run executes every check and reports which failed.
func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make(map[string]string, len(names))
	ok := true
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checks[name](cctx)
		cancel()
		if err != nil {
			ok = false
			services[name] = "unavailable"
			h.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
			continue
		}
		services[name] = "ok"
	}
	return services, ok
}

// Check runs every dependency check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services, ok := h.run(r.Context())
	resp := Response{Status: "ok", Services: services}
	if !ok {
		resp.Status = "degraded"
		jsonutil.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonutil.OK(w, resp)
}

// Ready reports whether the service can take traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.run(r.Context()); !ok {
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
		return
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}
