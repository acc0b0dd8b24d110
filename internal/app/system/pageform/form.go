// Package pageform is the settings form controller: the in-memory state of
// one page-settings form between load and submit. It owns scalar values,
// pending uploads and their previews, list items with stable IDs, video
// sources, and the submit state machine. The same package decodes the
// multipart wire format on the server side.
package pageform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/pagecms/internal/app/system/pagedefaults"
	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSubmitInProgress = errors.New("pageform: submit already in progress")
	ErrUnknownField     = errors.New("pageform: unknown field")
	ErrUnknownList      = errors.New("pageform: unknown list")
	ErrIndexOutOfRange  = errors.New("pageform: item index out of range")
	ErrNotVideoList     = errors.New("pageform: list has no video source")
	ErrWrongKind        = errors.New("pageform: wrong field kind")
)

// State is the submit state of a form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger used for submit outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithNotifier sets the receiver of success notifications.
func WithNotifier(n Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

// WithIDGenerator replaces the item ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(f *Form) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithPreviewReader replaces the function that turns an upload into a
// preview string. The default builds a base64 data URL.
func WithPreviewReader(read func(Upload) string) Option {
	return func(f *Form) {
		if read != nil {
			f.readPreview = read
		}
	}
}

// Item is a list entry. Values holds scalar fields and stored media paths;
// Uploads holds files picked for media fields; Video is set on video lists.
type Item struct {
	ID      string
	Values  map[string]string
	Uploads map[string]Upload
	Video   VideoInput
}

func (it *Item) clone() Item {
	out := Item{ID: it.ID, Video: it.Video}
	out.Values = make(map[string]string, len(it.Values))
	for k, v := range it.Values {
		out.Values[k] = v
	}
	out.Uploads = make(map[string]Upload, len(it.Uploads))
	for k, v := range it.Uploads {
		out.Uploads[k] = v
	}
	return out
}

// Form is the state of one settings form. All methods are safe for
// concurrent use.
type Form struct {
	schema      *pageschema.Form
	logger      *zap.Logger
	notifier    Notifier
	newID       func() string
	readPreview func(Upload) string

	mu       sync.Mutex
	values   map[string]string
	uploads  map[string]Upload
	removed  map[string]bool
	lists    map[string][]*Item
	previews map[string]string
	pending  map[string]uint64 // preview key -> token of the newest read
	selected map[string]uint64 // upload or removal key -> token of the newest selection
	seq      uint64
	errors   map[string]string
	state    State
	wg       sync.WaitGroup
}

// New builds a form from stored settings. A value present in settings wins;
// otherwise the default table supplies it; otherwise it is empty.
func New(schema *pageschema.Form, settings *models.PageSettings, defaults *pagedefaults.Table, opts ...Option) *Form {
	f := &Form{
		schema:      schema,
		logger:      zap.NewNop(),
		newID:       uuid.NewString,
		readPreview: Upload.DataURL,
		values:      map[string]string{},
		uploads:     map[string]Upload{},
		removed:     map[string]bool{},
		lists:       map[string][]*Item{},
		previews:    map[string]string{},
		pending:     map[string]uint64{},
		selected:    map[string]uint64{},
		errors:      map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, fd := range schema.Fields() {
		if v, ok := settings.Value(schema.Qualify(fd.Name)); ok {
			f.values[fd.Name] = v
		} else if v, ok := defaults.Value(schema.Key, fd.Name); ok {
			f.values[fd.Name] = v
		} else {
			f.values[fd.Name] = ""
		}
	}

	for _, l := range schema.Lists() {
		if stored, ok := settings.List(schema.Qualify(l.Name)); ok {
			items := make([]*Item, 0, len(stored))
			for _, si := range stored {
				items = append(items, f.itemFromStored(l, si))
			}
			f.lists[l.Name] = items
			continue
		}
		defs, _ := defaults.List(schema.Key, l.Name)
		items := make([]*Item, 0, len(defs))
		for _, d := range defs {
			it := f.blankItem(l)
			for k, v := range d.Values {
				it.Values[k] = v
			}
			if l.Video {
				it.Video = VideoURL{URL: d.VideoURL}
			}
			items = append(items, it)
		}
		f.lists[l.Name] = items
	}
	return f
}

func (f *Form) itemFromStored(l pageschema.List, si models.ListItem) *Item {
	it := f.blankItem(l)
	if si.ID != "" {
		it.ID = si.ID
	}
	for k, v := range si.Values {
		it.Values[k] = v
	}
	if l.Video {
		it.Video = videoInputFromStored(si.Video)
	}
	return it
}

func (f *Form) blankItem(l pageschema.List) *Item {
	it := &Item{
		ID:      f.newID(),
		Values:  make(map[string]string, len(l.Fields)),
		Uploads: map[string]Upload{},
	}
	for _, fd := range l.Fields {
		if fd.Kind == pageschema.KindBool {
			it.Values[fd.Name] = "false"
		} else {
			it.Values[fd.Name] = ""
		}
	}
	if l.Video {
		it.Video = VideoURL{}
	}
	return it
}

// Schema returns the form's schema.
func (f *Form) Schema() *pageschema.Form { return f.schema }

// State returns the submit state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Value returns the current value of a scalar field, or the stored path
// of a media field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// Values returns a copy of all field values.
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// SetField overwrites a scalar field.
func (f *Form) SetField(name, value string) error {
	fd, ok := f.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if fd.IsMedia() {
		return fmt.Errorf("%w: %s takes a file", ErrWrongKind, name)
	}
	f.mu.Lock()
	f.values[name] = value
	f.mu.Unlock()
	return nil
}

// SelectFile records a new upload for a media field and starts building
// its preview. The upload supersedes the stored file on submit.
func (f *Form) SelectFile(name string, up Upload) error {
	if err := f.mediaField(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[name] = up
	delete(f.removed, name)
	f.startPreviewLocked(name, f.markLocked(name), up)
	return nil
}

// RemoveFile clears a media field. The stored file is deleted on submit.
func (f *Form) RemoveFile(name string) error {
	if err := f.mediaField(name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, name)
	f.dropPreviewLocked(name)
	f.removed[name] = true
	f.markLocked(name)
	return nil
}

// PendingUpload returns the upload selected for a media field.
func (f *Form) PendingUpload(name string) (Upload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	up, ok := f.uploads[name]
	return up, ok
}

func (f *Form) mediaField(name string) error {
	fd, ok := f.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if !fd.IsMedia() {
		return fmt.Errorf("%w: %s is not a file field", ErrWrongKind, name)
	}
	return nil
}

// FieldError returns the server's error for a field key ("banner_title",
// "quotes.0.content"), or "".
func (f *Form) FieldError(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[key]
}

// Errors returns a copy of all field errors from the last submit.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}
