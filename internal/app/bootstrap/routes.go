// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	auditlogfeature "github.com/dalemusser/pagecms/internal/app/features/auditlog"
	entitiesfeature "github.com/dalemusser/pagecms/internal/app/features/entities"
	errorsfeature "github.com/dalemusser/pagecms/internal/app/features/errors"
	healthfeature "github.com/dalemusser/pagecms/internal/app/features/health"
	pagesettingsfeature "github.com/dalemusser/pagecms/internal/app/features/pagesettings"
	publicapifeature "github.com/dalemusser/pagecms/internal/app/features/publicapi"
	appresources "github.com/dalemusser/pagecms/internal/app/resources"
	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	"github.com/dalemusser/pagecms/internal/app/store/audit"
	pagesettingsstore "github.com/dalemusser/pagecms/internal/app/store/pagesettings"
	"github.com/dalemusser/pagecms/internal/app/system/apistats"
	"github.com/dalemusser/pagecms/internal/app/system/auditlog"
	"github.com/dalemusser/pagecms/internal/app/system/auth"
	"github.com/dalemusser/pagecms/internal/app/system/flash"
	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/settingscache"
	"github.com/dalemusser/pagecms/internal/app/system/uploads"
	"github.com/dalemusser/pagecms/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Two kinds of client share the admin routes:
//   - Browsers: CSRF-protected forms, toasts and redirects
//   - Scripted clients: Bearer API key, no CSRF, JSON answers
//
// The public read API under /api/pages needs neither and carries its own
// CORS policy.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	flashMgr, err := flash.NewManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("flash manager init failed", zap.Error(err))
		return nil, err
	}
	viewdata.Init(appCfg.SiteName, flashMgr)

	defaults, err := pagedefaults.Load(appCfg.PageDefaultsPath)
	if err != nil {
		logger.Error("page defaults load failed", zap.Error(err))
		return nil, err
	}

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Admin: appCfg.AuditLogAdmin,
	})

	// Create API stats store and recorder for request statistics.
	apiStatsStore := apistatsstore.New(deps.MongoDatabase)
	apiStatsRecorder := apistats.NewRecorder(apiStatsStore, logger, appCfg.APIStatsBucket)

	uploadStore := uploads.New(deps.FileStorage, logger)
	settingsCache := settingscache.New(pagesettingsstore.New(deps.MongoDatabase), appCfg.SettingsCacheTTL)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Bearer requests are checked against the API key and marked as API
	// clients. Requests without the header pass through as browsers.
	r.Use(auth.APIKeyAuth(appCfg.APIKey, logger))

	// CSRF protection for browsers. The cookie name avoids collisions with
	// other services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("pagecms_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(csrfFailed(logger)),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	// API clients authenticated by key skip CSRF. Safe methods (the public
	// API, health probes) pass gorilla/csrf untouched.
	csrfMiddleware := func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if auth.IsAPIClient(req) {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}
	r.Use(csrfMiddleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	maxUpload := int64(appCfg.MaxUploadMB) << 20
	settingsHandler := pagesettingsfeature.NewHandler(deps.MongoDatabase, pagesettingsfeature.Deps{
		Uploads:   uploadStore,
		Cache:     settingsCache,
		Defaults:  defaults,
		Flash:     flashMgr,
		Audit:     auditLogger,
		ErrLog:    errLog,
		Usage:     apiStatsStore,
		MaxUpload: maxUpload,
	}, logger)
	settingsHandler.MountRoutes(r, apistats.Middleware(apiStatsRecorder, apistatsstore.StatTypeSettingsUpdate))

	entitiesHandler := entitiesfeature.NewHandler(deps.MongoDatabase, uploadStore, flashMgr, auditLogger, errLog, logger)
	entitiesHandler.MountRoutes(r, apistats.Middleware(apiStatsRecorder, apistatsstore.StatTypeEntityWrite))

	r.Mount(auditlogfeature.Path, auditlogfeature.Routes(auditlogfeature.NewHandler(deps.MongoDatabase, errLog, logger)))

	// Public read API
	publicHandler := publicapifeature.NewHandler(settingsCache, defaults, uploadStore, errLog, logger)
	r.Mount("/api/pages", publicapifeature.Routes(publicHandler, apiStatsRecorder, appCfg.APICORSOrigins...))

	// Health check endpoints for load balancers and orchestrators
	var checks map[string]healthfeature.Check
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		checks = map[string]healthfeature.Check{"uploads": localStorageCheck(appCfg.StorageLocalPath)}
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger, checks)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Uploaded files (local storage only)
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admin", http.StatusFound)
	})

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}

// localStorageCheck reports whether the upload directory is reachable.
func localStorageCheck(dir string) healthfeature.Check {
	return func(ctx context.Context) error {
		fi, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}

// csrfFailed answers a request that failed CSRF validation with 403.
func csrfFailed(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		reason := "unknown"
		if err := csrf.FailureReason(req); err != nil {
			reason = err.Error()
		}
		logger.Warn("CSRF validation failed",
			zap.String("path", req.URL.Path),
			zap.String("method", req.Method),
			zap.String("reason", reason),
		)
		if jsonutil.Wants(req) {
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
			return
		}
		http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
	})
}
