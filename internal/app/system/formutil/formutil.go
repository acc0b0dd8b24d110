// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form should be re-rendered with:
// - The user's previously entered values (echoed back)
// - A summary message and a message under each offending input
// - All the context data needed for the form
//
// This package provides a Base struct that can be embedded in form data structs
// to handle the common fields.
//
// Example usage:
//
//	type newAwardData struct {
//		formutil.Base
//		Values map[string]string
//	}
//
//	data := newAwardData{
//		Base:   formutil.NewBase(w, r, "Add award", "/admin/awards"),
//		Values: values,
//	}
//	data.SetFieldErrors(errs)
//	templates.Render(w, r, "entities/form", data)
package formutil

import (
	"html/template"
	"net/http"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"github.com/dalemusser/pagecms/internal/app/system/viewdata"
)

// Base contains common fields for form pages that can be embedded in form data structs.
type Base struct {
	viewdata.BaseVM
	Error       template.HTML
	FieldErrors map[string]string // keyed like the payload: "title", "quotes.0.content"
}

// NewBase creates a fully populated Base for a form page.
func NewBase(w http.ResponseWriter, r *http.Request, title, backDefault string) Base {
	return Base{
		BaseVM: viewdata.NewBaseVM(w, r, title, backDefault),
	}
}

// SetError sets the error message on a Base struct.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(template.HTMLEscapeString(msg))
}

// SetFieldErrors stores per-field messages and sets a summary.
func (b *Base) SetFieldErrors(errs map[string]string) {
	b.FieldErrors = errs
	if len(errs) == 1 {
		b.SetError("Please correct the highlighted field.")
	} else if len(errs) > 1 {
		b.SetError("Please correct the highlighted fields.")
	}
}

// FieldError returns the message for one field key, or "".
func (b Base) FieldError(key string) string {
	return b.FieldErrors[key]
}

// Input is one rendered form control, consumed by the shared "input"
// template. InputName is the wire name; ErrorKey addresses FieldErrors.
type Input struct {
	pageschema.Field
	InputName  string
	ErrorKey   string
	Value      string
	MediaURL   string        // resolved URL of a stored media value
	RemoveName string        // remove flag of top-level media; items clear their stored value instead
	Checked    bool          // bool fields
	Preview    template.HTML // rich text fields
	Error      string
}
