// Package flash carries one-shot toast messages across the redirect that
// follows a form submit. Messages live in a signed cookie (gorilla/sessions)
// and are removed the first time they are read.
package flash

import (
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Toast kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Toast is a message shown once at the top of the next page.
type Toast struct {
	Kind    string
	Message string
}

// Manager reads and writes flash cookies.
type Manager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
	name   string
}

// ConfigError is returned when the flash cookie configuration is invalid.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewManager creates a Manager.
//
// Parameters:
//   - key: signing key for cookies (must be ≥32 chars in production)
//   - name: cookie name (defaults to "pagecms-flash" if empty)
//   - domain: cookie domain (empty means current host)
//   - secure: if true, cookies are Secure and weak keys are refused
//   - logger: zap logger for cookie error logging
func NewManager(key, name, domain string, secure bool, logger *zap.Logger) (*Manager, error) {
	if key == "" {
		return nil, &ConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	isWeak := len(key) < 32 || isDefaultKey(key)
	if secure && isWeak {
		return nil, &ConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	} else if isWeak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(key)),
			zap.Bool("is_default", isDefaultKey(key)))
	}

	if name == "" {
		name = "pagecms-flash"
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   300, // a toast that is never read expires quickly
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store, logger: logger, name: name}, nil
}

// Set queues a toast for the next request. A nil Manager drops it.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, t Toast) error {
	if m == nil {
		return nil
	}
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		// A bad cookie is replaced rather than blocking the redirect.
		m.logCookieError(r, err)
		sess, _ = m.store.New(r, m.name)
	}
	sess.AddFlash(t.Message, t.Kind)
	return sess.Save(r, w)
}

// Success queues a success toast.
func (m *Manager) Success(w http.ResponseWriter, r *http.Request, msg string) error {
	return m.Set(w, r, Toast{Kind: KindSuccess, Message: msg})
}

// Pop returns and clears the pending toast, or nil if there is none.
// When several were queued the last one wins.
func (m *Manager) Pop(w http.ResponseWriter, r *http.Request) *Toast {
	if m == nil {
		return nil
	}
	if _, err := r.Cookie(m.name); err != nil {
		return nil
	}
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		m.logCookieError(r, err)
		return nil
	}

	var toast *Toast
	for _, kind := range []string{KindError, KindSuccess} {
		for _, v := range sess.Flashes(kind) {
			if msg, ok := v.(string); ok {
				toast = &Toast{Kind: kind, Message: msg}
			}
		}
	}
	if toast == nil {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		m.logger.Warn("failed to clear flash cookie", zap.Error(err))
	}
	return toast
}

func (m *Manager) logCookieError(r *http.Request, err error) {
	reason := classifyCookieError(err)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if reason == "mac_invalid" {
		m.logger.Warn("flash cookie rejected", fields...)
		return
	}
	m.logger.Debug("flash cookie unreadable", fields...)
}

// isDefaultKey checks if the key appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	patterns := []string{
		"dev-only",
		"change-me",
		"placeholder",
		"default",
		"example",
		"insecure",
		"test-key",
		"secret123",
		"password",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifyCookieError categorizes a cookie error for logging.
func classifyCookieError(err error) string {
	if err == nil {
		return "none"
	}

	errStr := strings.ToLower(err.Error())

	if scErr, ok := err.(securecookie.Error); ok {
		if !scErr.IsDecode() {
			return "backend"
		}
		switch {
		case strings.Contains(errStr, "expired timestamp"):
			return "expired"
		case strings.Contains(errStr, "mac") || strings.Contains(errStr, "hash"):
			return "mac_invalid"
		case strings.Contains(errStr, "base64") || strings.Contains(errStr, "decode"):
			return "decode_failed"
		default:
			return "decode_other"
		}
	}
	return "unknown"
}
