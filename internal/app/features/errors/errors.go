// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"github.com/dalemusser/pagecms/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// Handler renders error pages. API clients get a JSON body instead.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

type errorVM struct {
	viewdata.BaseVM
	Message string
}

func render(w http.ResponseWriter, r *http.Request, status int, name, title, msg string) {
	if jsonutil.Wants(r) {
		jsonutil.Error(w, status, msg)
		return
	}
	vm := errorVM{BaseVM: viewdata.New(w, r), Message: msg}
	vm.Title = title

	w.WriteHeader(status)
	templates.Render(w, r, name, vm)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusNotFound, "errors/not_found", "Not Found",
		"The page you are looking for does not exist.")
}

// MethodNotAllowed renders the 405 page.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusMethodNotAllowed, "errors/method_not_allowed", "Method Not Allowed",
		"This address does not accept "+r.Method+" requests.")
}

// InternalError renders the 500 page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusInternalServerError, "errors/internal", "Server Error",
		"Something went wrong. Please try again.")
}
