// Package pageschema describes the editable content of every marketing page:
// which forms a page has, which fields and lists each form carries, and where
// each form posts. The admin UI, the request decoder, the client form
// controller and the public read API are all driven by this registry.
package pageschema

import "strings"

// Kind is the input kind of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindRichText Kind = "richtext" // sanitized HTML
	KindURL      Kind = "url"      // http(s) URL or site-relative path
	KindBool     Kind = "bool"     // "true" / "false"
	KindSelect   Kind = "select"
	KindImage    Kind = "image" // upload, accept image/*
	KindSVG      Kind = "svg"   // upload, accept image/svg+xml
)

// Field is one input of a form, list item or entity.
type Field struct {
	Name        string
	Label       string
	Kind        Kind
	Placeholder string
	Help        string
	Options     []string // KindSelect only
	Required    bool     // entities only; page settings are all optional
	Max         int      // max length in characters; 0 uses the kind default
}

// IsMedia reports whether the field takes a file upload.
func (f Field) IsMedia() bool {
	return f.Kind == KindImage || f.Kind == KindSVG
}

// Accept returns the accept filter for media fields.
func (f Field) Accept() string {
	switch f.Kind {
	case KindImage:
		return "image/*"
	case KindSVG:
		return "image/svg+xml"
	}
	return ""
}

// MaxLen returns the maximum accepted length of a scalar value.
func (f Field) MaxLen() int {
	if f.Max > 0 {
		return f.Max
	}
	switch f.Kind {
	case KindTextArea:
		return 5000
	case KindRichText:
		return 50000
	case KindURL:
		return 2048
	case KindBool:
		return 5
	}
	return 500
}

// List is a list-valued field: an ordered sequence of uniform items.
type List struct {
	Name      string
	Label     string
	ItemLabel string // "Quote", "Video"
	Help      string
	Fields    []Field // per-item fields
	Video     bool    // items also carry a video source (URL or upload)
}

// Field returns the item field with the given name.
func (l List) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Section groups fields and lists under one heading.
type Section struct {
	Title       string
	Description string
	Fields      []Field
	Lists       []List
}

// Form is one independently submitted settings form.
type Form struct {
	Key            string // "blogs", "about-me.banner"
	Page           string // page slug
	Group          string // "" for single-form pages
	Title          string
	Endpoint       string // POST target, relative to the site root
	SuccessMessage string
	Sections       []Section
}

// Qualify returns the storage key of a field or list of this form.
// Single-form pages store bare names; grouped forms prefix the group.
func (f *Form) Qualify(name string) string {
	if f.Group == "" {
		return name
	}
	return f.Group + ":" + name
}

// Fields returns all scalar and media fields in display order.
func (f *Form) Fields() []Field {
	var out []Field
	for _, s := range f.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Lists returns all list fields in display order.
func (f *Form) Lists() []List {
	var out []List
	for _, s := range f.Sections {
		out = append(out, s.Lists...)
	}
	return out
}

// Field looks up a scalar or media field by name.
func (f *Form) Field(name string) (Field, bool) {
	for _, s := range f.Sections {
		for _, fd := range s.Fields {
			if fd.Name == name {
				return fd, true
			}
		}
	}
	return Field{}, false
}

// List looks up a list field by name.
func (f *Form) List(name string) (List, bool) {
	for _, s := range f.Sections {
		for _, l := range s.Lists {
			if l.Name == name {
				return l, true
			}
		}
	}
	return List{}, false
}

// Page is one admin settings page.
type Page struct {
	Slug     string
	Title    string
	Path     string // admin path, e.g. /admin/blogs-page-settings
	Forms    []*Form
	Entities []string // entity kinds managed from this page
}

// Form returns the page's form with the given group ("" on single-form pages).
func (p *Page) Form(group string) (*Form, bool) {
	for _, f := range p.Forms {
		if f.Group == group {
			return f, true
		}
	}
	return nil, false
}

// EntityKind describes an independently managed collection.
type EntityKind struct {
	Kind           string // URL segment under /admin
	Title          string // "Awards"
	Singular       string // "award"
	Fields         []Field
	ConfirmPrompt  string
	CreatedMessage string
	UpdatedMessage string
	DeletedMessage string
}

// Field looks up an entity field by name.
func (k *EntityKind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AdminPath returns the entity collection path.
func (k *EntityKind) AdminPath() string {
	return "/admin/" + k.Kind
}

// Pages returns every page in menu order.
func Pages() []*Page { return pages }

// Lookup finds a page by slug.
func Lookup(slug string) (*Page, bool) {
	p, ok := pagesBySlug[slug]
	return p, ok
}

// Forms returns every form of every page.
func Forms() []*Form {
	var out []*Form
	for _, p := range pages {
		out = append(out, p.Forms...)
	}
	return out
}

// FormByKey finds a form by its key ("blogs", "about-me.banner").
func FormByKey(key string) (*Form, bool) {
	page, group, _ := strings.Cut(key, ".")
	p, ok := Lookup(page)
	if !ok {
		return nil, false
	}
	return p.Form(group)
}

// Entities returns every entity kind.
func Entities() []*EntityKind { return entityKinds }

// Entity finds an entity kind.
func Entity(kind string) (*EntityKind, bool) {
	for _, k := range entityKinds {
		if k.Kind == kind {
			return k, true
		}
	}
	return nil, false
}

var pagesBySlug = func() map[string]*Page {
	m := make(map[string]*Page, len(pages))
	for _, p := range pages {
		m[p.Slug] = p
	}
	return m
}()
