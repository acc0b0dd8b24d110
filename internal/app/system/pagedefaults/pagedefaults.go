// Package pagedefaults holds the content shown for page settings that were
// never saved. The table ships embedded in the binary and can be overridden
// per deployment with a YAML file of the same shape.
package pagedefaults

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dalemusser/pagecms/internal/app/system/pageschema"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embedded []byte

// Item is a default list item. VideoURL is only read for video lists.
type Item struct {
	Values   map[string]string `yaml:"values"`
	VideoURL string            `yaml:"video_url,omitempty"`
}

// Form holds the defaults of one form.
type Form struct {
	Values map[string]string `yaml:"values"`
	Lists  map[string][]Item `yaml:"lists"`
}

// Table maps form keys to their defaults. A nil *Table has no defaults.
type Table struct {
	forms map[string]Form
}

type document struct {
	Forms map[string]Form `yaml:"forms"`
}

// Embedded returns the built-in defaults table.
func Embedded() (*Table, error) {
	t, err := Parse(embedded)
	if err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	return t, nil
}

// Parse decodes a defaults document.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Forms == nil {
		doc.Forms = map[string]Form{}
	}
	return &Table{forms: doc.Forms}, nil
}

// Load returns the embedded table with the file at overridePath merged over
// it. An empty path returns the embedded table unchanged.
func Load(overridePath string) (*Table, error) {
	t, err := Embedded()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return t, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read page defaults %s: %w", overridePath, err)
	}
	over, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse page defaults %s: %w", overridePath, err)
	}
	t.Merge(over)
	return t, nil
}

// Merge overlays o onto t. Scalar defaults are replaced key by key; a list
// present in o replaces the whole list.
func (t *Table) Merge(o *Table) {
	if o == nil {
		return
	}
	for key, of := range o.forms {
		f := t.forms[key]
		if f.Values == nil {
			f.Values = map[string]string{}
		}
		for k, v := range of.Values {
			f.Values[k] = v
		}
		if len(of.Lists) > 0 && f.Lists == nil {
			f.Lists = map[string][]Item{}
		}
		for k, items := range of.Lists {
			f.Lists[k] = items
		}
		t.forms[key] = f
	}
}

// Value returns the default of a scalar field.
func (t *Table) Value(formKey, field string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.forms[formKey].Values[field]
	return v, ok
}

// List returns a copy of the default items of a list field.
func (t *Table) List(formKey, list string) ([]Item, bool) {
	if t == nil {
		return nil, false
	}
	items, ok := t.forms[formKey].Lists[list]
	if !ok {
		return nil, false
	}
	out := make([]Item, len(items))
	for i, it := range items {
		vals := make(map[string]string, len(it.Values))
		for k, v := range it.Values {
			vals[k] = v
		}
		out[i] = Item{Values: vals, VideoURL: it.VideoURL}
	}
	return out, true
}

// Validate checks every entry against the page schema so a misspelled key
// fails at startup instead of silently never applying.
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.forms))
	for k := range t.forms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		fd := t.forms[key]
		form, ok := pageschema.FormByKey(key)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown form %q", key))
			continue
		}
		for name := range fd.Values {
			field, ok := form.Field(name)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%s: unknown field %q", key, name))
			case field.IsMedia():
				errs = append(errs, fmt.Errorf("%s: %q is a file field", key, name))
			}
		}
		for name, items := range fd.Lists {
			list, ok := form.List(name)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: unknown list %q", key, name))
				continue
			}
			for i, it := range items {
				for fname := range it.Values {
					if _, ok := list.Field(fname); !ok {
						errs = append(errs, fmt.Errorf("%s: %s[%d]: unknown field %q", key, name, i, fname))
					}
				}
				if it.VideoURL != "" && !list.Video {
					errs = append(errs, fmt.Errorf("%s: %s[%d]: video_url on a non-video list", key, name, i))
				}
			}
		}
	}
	return errors.Join(errs...)
}
