// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/store/audit"
	"github.com/dalemusser/pagecms/internal/app/system/auth"
	"github.com/dalemusser/pagecms/internal/app/system/network"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for content changes (settings updates, entity create/delete).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// actor tells API clients (Bearer token) apart from the browser admin.
func actor(r *http.Request) string {
	if auth.IsAPIClient(r) {
		return audit.ActorAPI
	}
	return audit.ActorBrowser
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("actor", event.Actor),
		zap.String("ip", event.IP),
	}

	if event.Page != "" {
		fields = append(fields, zap.String("page", event.Page))
	}
	if event.EntityKind != "" {
		fields = append(fields, zap.String("entity_kind", event.EntityKind), zap.String("entity_id", event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := "all"
	if event.Category == audit.CategoryAdmin && l.config.Admin != "" {
		setting = l.config.Admin
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// PageSettingsUpdated logs a saved settings form.
func (l *Logger) PageSettingsUpdated(r *http.Request, page, form string, fieldsChanged []string, filesStored int) {
	l.Log(r.Context(), audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventPageSettingsUpdated,
		Page:      page,
		Actor:     actor(r),
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"form":           form,
			"fields_changed": strings.Join(fieldsChanged, ","),
			"files_stored":   strconv.Itoa(filesStored),
		},
	})
}

// PageSettingsRejected logs a settings submit that failed validation.
func (l *Logger) PageSettingsRejected(r *http.Request, page, form string, errorCount int) {
	l.Log(r.Context(), audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventPageSettingsRejected,
		Page:          page,
		Actor:         actor(r),
		IP:            network.GetClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "validation failed",
		Details: map[string]string{
			"form":   form,
			"errors": strconv.Itoa(errorCount),
		},
	})
}

// EntityCreated logs a new About-page entity.
func (l *Logger) EntityCreated(r *http.Request, kind, id string) {
	l.Log(r.Context(), audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventEntityCreated,
		EntityKind: kind,
		EntityID:   id,
		Actor:      actor(r),
		IP:         network.GetClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    true,
	})
}

// EntityUpdated logs an edited About-page entity. replaced counts the
// stored files the edit superseded.
func (l *Logger) EntityUpdated(r *http.Request, kind, id string, fieldsChanged []string, replaced int) {
	l.Log(r.Context(), audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventEntityUpdated,
		EntityKind: kind,
		EntityID:   id,
		Actor:      actor(r),
		IP:         network.GetClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    true,
		Details: map[string]string{
			"fields_changed": strings.Join(fieldsChanged, ","),
			"files_replaced": strconv.Itoa(replaced),
		},
	})
}

// EntityDeleted logs a deleted About-page entity.
func (l *Logger) EntityDeleted(r *http.Request, kind, id string) {
	l.Log(r.Context(), audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventEntityDeleted,
		EntityKind: kind,
		EntityID:   id,
		Actor:      actor(r),
		IP:         network.GetClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    true,
	})
}
