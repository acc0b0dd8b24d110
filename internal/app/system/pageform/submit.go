package pageform

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"sort"
	"strings"

	"github.com/dalemusser/pagecms/internal/domain/models"
	"go.uber.org/zap"
)

// Transport delivers an encoded form to its endpoint.
type Transport interface {
	Post(ctx context.Context, endpoint string, p *Payload) (*Response, error)
}

// Response is the server's answer to an accepted submit or delete.
// Settings is the page record after a settings update, when the server
// sends it.
type Response struct {
	Message  string               `json:"message"`
	Settings *models.PageSettings `json:"settings,omitempty"`
}

// Notifier receives user-facing success messages.
type Notifier interface {
	Success(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Success calls fn(message).
func (fn NotifierFunc) Success(message string) { fn(message) }

// ValidationError is a rejected submit with messages keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

// StatusError is an unexpected HTTP status from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Submit posts the whole form. Only one submit may be in flight.
//
// On success the uploads and removals the payload carried are settled,
// their previews cleared along with the field errors, and the notifier is
// called once. Files picked while the request was in flight stay pending. On a validation error the field errors are stored and the
// previews kept. Other failures are logged and returned; nothing retries.
func (f *Form) Submit(ctx context.Context, t Transport) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	payload, err := f.encodeLocked()
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("encode %s: %w", f.schema.Key, err)
	}
	sent := maps.Clone(f.selected)
	f.state = StateSubmitting
	f.mu.Unlock()

	resp, err := t.Post(ctx, f.schema.Endpoint, payload)

	f.mu.Lock()
	f.state = StateIdle
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			f.errors = make(map[string]string, len(ve.Fields))
			for k, v := range ve.Fields {
				f.errors[k] = v
			}
			f.mu.Unlock()
			f.logger.Warn("settings update rejected",
				zap.String("form", f.schema.Key),
				zap.Int("field_errors", len(ve.Fields)))
			return err
		}
		f.mu.Unlock()
		f.logger.Error("settings update failed",
			zap.String("form", f.schema.Key),
			zap.String("endpoint", f.schema.Endpoint),
			zap.Error(err))
		return err
	}

	var saved *models.PageSettings
	msg := f.schema.SuccessMessage
	if resp != nil {
		saved = resp.Settings
		if resp.Message != "" {
			msg = resp.Message
		}
	}
	f.settleLocked(sent, saved)
	f.errors = map[string]string{}
	n := f.notifier
	f.mu.Unlock()

	f.logger.Info("settings updated", zap.String("form", f.schema.Key))
	if n != nil {
		n.Success(msg)
	}
	return nil
}

// settleLocked forgets the uploads and removals a successful submit
// carried. A key whose selection changed while the request was in flight
// is left alone. Media values are refreshed from saved when the server
// returned the record. Caller holds f.mu.
func (f *Form) settleLocked(sent map[string]uint64, saved *models.PageSettings) {
	for key, token := range sent {
		if f.selected[key] != token {
			continue
		}
		delete(f.selected, key)
		delete(f.pending, key)
		delete(f.previews, key)

		itemID, field, inList := strings.Cut(key, "/")
		if !inList {
			delete(f.uploads, key)
			if f.removed[key] {
				delete(f.removed, key)
				f.values[key] = ""
			} else if v, ok := saved.Value(f.schema.Qualify(key)); ok {
				f.values[key] = v
			}
			continue
		}

		list, it := f.itemByIDLocked(itemID)
		if it == nil {
			continue
		}
		stored, found := savedItem(saved, f.schema.Qualify(list), itemID)
		if field == VideoFileField {
			up, ok := it.Video.(VideoUpload)
			if !ok {
				continue
			}
			vs := VideoStored{Name: up.Upload.Filename}
			if found && stored.Video != nil {
				if p, ok := stored.Video.FilePath(); ok {
					vs = VideoStored{Path: p, Name: path.Base(p)}
				}
			}
			it.Video = vs
			continue
		}
		delete(it.Uploads, field)
		if found {
			it.Values[field] = stored.Values[field]
		}
	}
}

func savedItem(saved *models.PageSettings, list, id string) (models.ListItem, bool) {
	items, _ := saved.List(list)
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.ListItem{}, false
}
